package flexmatch

import "strings"

// MatchResult is the outcome of one matching attempt. Confidence is only
// meaningful for threshold decisions when Matches is true.
type MatchResult struct {
	Matches    bool
	Confidence float64
	// MatchedVariation is set when the match came from the
	// variation-similarity tier.
	MatchedVariation string
	// MatchedKeywords is set when the match came from a keyword tier,
	// primary keywords first.
	MatchedKeywords []string
}

// BestMatch pairs a command identifier with its match result.
type BestMatch struct {
	Command string
	Result  MatchResult
}

// Matcher scores messages against an injected, read-only catalog.
type Matcher struct {
	catalog Catalog
}

// NewMatcher creates a matcher over the given catalog. The catalog must not
// be mutated after construction.
func NewMatcher(catalog Catalog) *Matcher {
	return &Matcher{catalog: catalog}
}

const (
	primaryKeywordWeight = 0.6
	contextKeywordWeight = 0.4

	// Partial primary matching: base confidence plus a bump per keyword.
	partialBaseConfidence = 0.6
	partialPerKeyword     = 0.1

	// Loose total-signal tier: fires when enough distinct signal words are
	// present, regardless of the command's configured minimum. Preserved
	// deliberately as a recall catch-all for telegraphic messages.
	looseSignalMinKeywords = 3
	looseSignalConfidence  = 0.65
)

// Match evaluates the message against one catalog command. It is total: any
// string input yields a result, and an unknown command is a non-match rather
// than an error.
func (m *Matcher) Match(message, commandID string) MatchResult {
	command, ok := m.catalog[commandID]
	if !ok {
		return MatchResult{}
	}

	normalized := Normalize(message)

	// Tier 1: similarity against known variations.
	bestConfidence := 0.0
	bestVariation := ""
	for _, variation := range command.Variations {
		if sim := similarity(normalized, variation); sim > bestConfidence {
			bestConfidence = sim
			bestVariation = variation
		}
	}
	if bestConfidence >= command.MinConfidence && bestVariation != "" {
		return MatchResult{
			Matches:          true,
			Confidence:       bestConfidence,
			MatchedVariation: bestVariation,
		}
	}

	// Keyword containment is substring-based, not word-boundary: "jour"
	// matches inside "aujourd'hui". Pinned by regression tests.
	matchedPrimary := containedKeywords(normalized, command.PrimaryKeywords)
	matchedContext := containedKeywords(normalized, command.ContextKeywords)

	// Tier 2: primary and context keywords co-occur.
	if len(matchedPrimary) > 0 && len(matchedContext) > 0 {
		confidence := keywordConfidence(matchedPrimary, matchedContext, command)
		if confidence >= command.MinConfidence {
			return MatchResult{
				Matches:         true,
				Confidence:      confidence,
				MatchedKeywords: concat(matchedPrimary, matchedContext),
			}
		}
	}

	// Tier 3: partial match on primary keywords alone.
	if len(matchedPrimary) >= 2 {
		confidence := partialBaseConfidence + float64(len(matchedPrimary))*partialPerKeyword
		if confidence >= command.MinConfidence {
			return MatchResult{
				Matches:         true,
				Confidence:      confidence,
				MatchedKeywords: matchedPrimary,
			}
		}
	}

	// Tier 4: enough total signal, threshold bypassed.
	if len(matchedPrimary)+len(matchedContext) >= looseSignalMinKeywords {
		return MatchResult{
			Matches:         true,
			Confidence:      looseSignalConfidence,
			MatchedKeywords: concat(matchedPrimary, matchedContext),
		}
	}

	return MatchResult{}
}

// FindBestMatch evaluates every candidate command and returns the one with
// the highest confidence. Ties go to the earlier candidate (strict >
// comparison). The second return is false when nothing matches.
func (m *Matcher) FindBestMatch(message string, commandIDs []string) (BestMatch, bool) {
	var best BestMatch
	found := false

	for _, id := range commandIDs {
		result := m.Match(message, id)
		if !result.Matches {
			continue
		}
		if !found || result.Confidence > best.Result.Confidence {
			best = BestMatch{Command: id, Result: result}
			found = true
		}
	}

	return best, found
}

// similarity blends rune-level Levenshtein similarity (weight 0.6) with
// token-overlap similarity (weight 0.4).
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	runesA := []rune(a)
	runesB := []rune(b)
	longest := len(runesA)
	if len(runesB) > longest {
		longest = len(runesB)
	}
	if longest == 0 {
		return 1.0
	}

	charSim := float64(longest-levenshtein(runesA, runesB)) / float64(longest)

	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	wordSim := 0.0
	if larger := max(len(tokensA), len(tokensB)); larger > 0 {
		setB := make(map[string]struct{}, len(tokensB))
		for _, t := range tokensB {
			setB[t] = struct{}{}
		}
		shared := 0
		for _, t := range tokensA {
			if _, ok := setB[t]; ok {
				shared++
			}
		}
		wordSim = float64(shared) / float64(larger)
	}

	return charSim*0.6 + wordSim*0.4
}

// levenshtein computes the edit distance with unit insert/delete/substitute
// costs, using a two-row dynamic program.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j-1]+cost, min(curr[j-1]+1, prev[j]+1))
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func keywordConfidence(matchedPrimary, matchedContext []string, command Command) float64 {
	primaryScore := coverage(len(matchedPrimary), len(command.PrimaryKeywords))
	contextScore := coverage(len(matchedContext), len(command.ContextKeywords))
	return primaryScore*primaryKeywordWeight + contextScore*contextKeywordWeight
}

func coverage(matched, total int) float64 {
	if total == 0 {
		return 0
	}
	score := float64(matched) / float64(total)
	if score > 1 {
		score = 1
	}
	return score
}

func containedKeywords(text string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
