// Package flexmatch provides tolerant natural-language command matching for
// the WhatsApp assistant. It normalizes noisy SMS-style French text and scores
// candidate commands with a cascade of similarity and keyword heuristics.
//
// All operations are pure functions over in-memory strings and a read-only
// catalog; they are safe for concurrent use without synchronization.
package flexmatch

import (
	"regexp"
	"strings"
)

// DefaultSimilarityThreshold is the token-overlap threshold used by callers
// that do not have a command-specific threshold.
const DefaultSimilarityThreshold = 0.8

// abbreviations maps common French text-speak tokens to their expansions.
// Applied before typo correction, whole tokens only.
var abbreviations = map[string]string{
	"j":    "je",
	"t":    "tu",
	"c":    "c'est",
	"g":    "j'ai",
	"pk":   "pourquoi",
	"pq":   "pourquoi",
	"pr":   "pour",
	"qd":   "quand",
	"koi":  "quoi",
	"ms":   "mais",
	"ds":   "dans",
	"tt":   "tout",
	"bcp":  "beaucoup",
	"auj":  "aujourd'hui",
	"ajd":  "aujourd'hui",
	"slt":  "salut",
	"stp":  "s'il te plaît",
	"svp":  "s'il vous plaît",
	"dsl":  "désolé",
	"tkt":  "t'inquiète",
	"mdr":  "mort de rire",
	"rdv":  "rendez-vous",
	"dmn":  "demain",
	"mnt":  "maintenant",
	"jsp":  "je sais pas",
	"jv":   "je vais",
	"tjrs": "toujours",
	"tjs":  "toujours",
}

// typoCorrections maps frequent misspellings (mostly dropped accents) to the
// canonical spelling. Applied after abbreviation expansion.
var typoCorrections = map[string]string{
	"tache":      "tâche",
	"taches":     "tâches",
	"journee":    "journée",
	"journe":     "journée",
	"seance":     "séance",
	"demarre":    "démarre",
	"demarrer":   "démarrer",
	"arrete":     "arrête",
	"arreter":    "arrêter",
	"comence":    "commence",
	"commance":   "commence",
	"resume":     "résumé",
	"resumé":     "résumé",
	"résume":     "résumé",
	"abitude":    "habitude",
	"abitudes":   "habitudes",
	"energie":    "énergie",
	"aujourdhui": "aujourd'hui",
	"deja":       "déjà",
	"apres":      "après",
}

// tokenPattern matches runs of letters, digits and apostrophes. Substitution
// operates on whole tokens so a table entry like "c" can never corrupt "sac"
// or the elision in "c'est".
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}']+`)

var (
	apostropheReplacer = strings.NewReplacer("’", "'", "‘", "'", "`", "'", "´", "'")
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes raw user text: lowercase, trimmed, single-spaced,
// apostrophes unified, known abbreviations expanded and known typos corrected.
// Empty input yields the empty string; normalization never fails.
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return ""
	}
	s = apostropheReplacer.Replace(s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = replaceTokens(s, abbreviations)
	s = replaceTokens(s, typoCorrections)
	return s
}

// replaceTokens substitutes whole tokens found in table, leaving everything
// else (punctuation, unknown tokens) untouched.
func replaceTokens(s string, table map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		if repl, ok := table[tok]; ok {
			return repl
		}
		return tok
	})
}

// AreSimilar reports whether two texts are similar enough after
// normalization. Exact equality short-circuits; otherwise the fraction of
// tokens of a that also occur in b, relative to the larger token count, must
// meet threshold.
func AreSimilar(a, b string, threshold float64) bool {
	na := Normalize(a)
	nb := Normalize(b)
	if na == nb {
		return true
	}

	tokensA := strings.Fields(na)
	tokensB := strings.Fields(nb)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return false
	}

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

	larger := len(tokensA)
	if len(tokensB) > larger {
		larger = len(tokensB)
	}

	return float64(shared)/float64(larger) >= threshold
}
