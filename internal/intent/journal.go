// Package intent provides narrow, purpose-specific message classifiers
// layered on top of normalized text, for flows too idiosyncratic for a
// generic catalog entry.
package intent

import (
	"regexp"
	"strings"

	"github.com/productif-io/assistant/pkg/flexmatch"
)

// exclusionPatterns match questions about a feature ("qu'est-ce que ...",
// "montre-moi ..."). These should not start a journal entry unless an
// explicit journal keyword is also present.
var exclusionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^qu'est.ce qu`),
	regexp.MustCompile(`^c'est quoi`),
	regexp.MustCompile(`^quel(le)?s? (est|sont)`),
	regexp.MustCompile(`^explique`),
	regexp.MustCompile(`^montre.moi`),
	regexp.MustCompile(`^comment (ça marche|fonctionne|marche)`),
	regexp.MustCompile(`^combien`),
}

// journalKeywords explicitly signal journaling.
var journalKeywords = []string{
	"journal",
	"raconte ma journée",
	"résumé de ma journée",
	"bilan de ma journée",
	"note de ma journée",
}

// dayIndicators are narrative markers of talking about one's day.
var dayIndicators = []string{
	"aujourd'hui",
	"ce matin",
	"ce midi",
	"cet après-midi",
	"ce soir",
	"cette nuit",
	"ma journée",
	"hier soir",
}

// ratingPattern catches self-assessments like "7/10" or "note de 8".
var ratingPattern = regexp.MustCompile(`\b\d{1,2}\s*/\s*10\b|\bnote de \d{1,2}\b`)

// IsJournalingIntent reports whether the message should be treated as a
// journal entry. The rules are ordered and recall-oriented: this gates a
// voice-transcription pipeline where missing a real entry is costly, while
// the exclusion patterns keep generic feature questions out.
func IsJournalingIntent(text string) bool {
	normalized := flexmatch.Normalize(text)
	if normalized == "" {
		return false
	}

	hasJournalKeyword := containsAny(normalized, journalKeywords)

	// Questions about the product are not entries, unless the user is
	// explicitly asking about their journal.
	if matchesExclusion(normalized) {
		return hasJournalKeyword
	}

	if hasJournalKeyword {
		return true
	}

	indicators := countDayIndicators(normalized)

	// A self-rating plus any day narrative reads as a journal entry.
	if ratingPattern.MatchString(normalized) && indicators >= 1 {
		return true
	}

	// Enough narrative markers alone carry the intent.
	return indicators >= 2
}

func matchesExclusion(text string) bool {
	for _, re := range exclusionPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func countDayIndicators(text string) int {
	count := 0
	for _, indicator := range dayIndicators {
		if strings.Contains(text, indicator) {
			count++
		}
	}
	return count
}
