// Package checkin implements the behavior check-in flow: typed rating
// questions, parsing of 1-10 replies, and tiered feedback messages.
package checkin

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Type identifies what a check-in question measures.
type Type string

const (
	TypeMood       Type = "mood"
	TypeFocus      Type = "focus"
	TypeMotivation Type = "motivation"
	TypeEnergy     Type = "energy"
	TypeStress     Type = "stress"
)

// Types lists all check-in types in a stable order.
var Types = []Type{TypeMood, TypeFocus, TypeMotivation, TypeEnergy, TypeStress}

// ParseType validates a stored type tag. Unknown tags are an error so stale
// state never silently produces a mislabeled check-in.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown check-in type %q", s)
}

var typeEmojis = map[Type]string{
	TypeMood:       "😊",
	TypeFocus:      "🎯",
	TypeMotivation: "🔥",
	TypeEnergy:     "⚡",
	TypeStress:     "😰",
}

// Emoji returns the fixed emoji for a check-in type.
func (t Type) Emoji() string {
	if e, ok := typeEmojis[t]; ok {
		return e
	}
	return "📊"
}

// Questions are the prompt templates per type. The scheduler picks one at
// random when triggering a check-in.
var Questions = map[Type][]string{
	TypeMood: {
		"😊 Comment te sens-tu en ce moment ? (1-10)",
		"😊 Quelle est ton humeur actuellement ? (1-10)",
		"🌟 Comment évalues-tu ton humeur ? (1-10)",
	},
	TypeFocus: {
		"🎯 Quel est ton niveau de concentration ? (1-10)",
		"🎯 Es-tu concentré en ce moment ? (1-10)",
		"🔍 Comment évalues-tu ta capacité de focus actuelle ? (1-10)",
	},
	TypeMotivation: {
		"🔥 Quel est ton niveau de motivation ? (1-10)",
		"💪 Te sens-tu motivé(e) en ce moment ? (1-10)",
		"🚀 Comment est ta motivation aujourd'hui ? (1-10)",
	},
	TypeEnergy: {
		"⚡ Quel est ton niveau d'énergie ? (1-10)",
		"⚡ Comment te sens-tu niveau énergie ? (1-10)",
		"🔋 Évalue ton niveau d'énergie actuel (1-10)",
	},
	TypeStress: {
		"😰 Quel est ton niveau de stress ? (1-10)",
		"😌 Te sens-tu stressé(e) ? (1-10)",
		"💆 Comment évalues-tu ton stress actuellement ? (1-10)",
	},
}

// Rating parse failures. Callers re-prompt and keep the pending state.
var (
	ErrNoNumber   = errors.New("reply contains no number")
	ErrOutOfRange = errors.New("rating outside 1-10")
)

var firstNumberPattern = regexp.MustCompile(`\d+`)

// ParseRating extracts the first integer token of a reply and validates it
// is within [1,10].
func ParseRating(reply string) (int, error) {
	match := firstNumberPattern.FindString(reply)
	if match == "" {
		return 0, ErrNoNumber
	}

	value, err := strconv.Atoi(match)
	if err != nil {
		// Digits too long for an int are out of range by definition.
		return 0, ErrOutOfRange
	}
	if value < 1 || value > 10 {
		return 0, ErrOutOfRange
	}

	return value, nil
}

// Feedback returns the confirmation message for a recorded rating, tiered by
// value: celebratory (>=8), encouraging (5-7), supportive (<5).
func Feedback(t Type, value int) string {
	emoji := t.Emoji()
	switch {
	case value >= 8:
		return fmt.Sprintf("%s Super ! %d/10 - Continue comme ça ! 🎉", emoji, value)
	case value >= 5:
		return fmt.Sprintf("%s Ok, %d/10 enregistré. Tu peux faire mieux ! 💪", emoji, value)
	default:
		return fmt.Sprintf("%s %d/10... Prends soin de toi ! 🫂\n\nBesoin d'une pause ?", emoji, value)
	}
}

// RetryPrompt returns the corrective message for an unparseable reply.
func RetryPrompt(err error) string {
	if errors.Is(err, ErrOutOfRange) {
		return "📊 Le chiffre doit être entre 1 et 10. Réessaye !"
	}
	return "🤔 Réponds simplement avec un chiffre de 1 à 10 !"
}
