package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/productif-io/assistant/internal/restapi"
	"github.com/productif-io/assistant/pkg/flexmatch"
)

// HabitsAPI is the habit-tracking slice of the REST API.
// Satisfied by restapi.Client.
type HabitsAPI interface {
	ListHabits(ctx context.Context, userID string) ([]restapi.Habit, error)
}

// HabitsHandler shows the user's habits and today's completion state.
type HabitsHandler struct {
	matcher   *flexmatch.Matcher
	api       HabitsAPI
	messenger Messenger
}

// NewHabitsHandler creates the habits overview handler.
func NewHabitsHandler(matcher *flexmatch.Matcher, api HabitsAPI, messenger Messenger) *HabitsHandler {
	return &HabitsHandler{matcher: matcher, api: api, messenger: messenger}
}

// Handle serves the habits overview when the command matches.
func (h *HabitsHandler) Handle(ctx context.Context, user User, message string) (bool, error) {
	result := h.matcher.Match(message, "show_habits")
	if !result.Matches {
		return false, nil
	}

	habits, err := h.api.ListHabits(ctx, user.ID)
	if err != nil {
		if sendErr := h.messenger.SendText(ctx, user.Phone,
			"❌ Impossible de récupérer tes habitudes pour le moment. Réessaye plus tard !"); sendErr != nil {
			return true, sendErr
		}
		return true, err
	}
	if len(habits) == 0 {
		return true, h.messenger.SendText(ctx, user.Phone,
			"💪 Tu n'as pas encore d'habitudes suivies.\n\nCrée ta première habitude depuis l'application !")
	}

	var b strings.Builder
	b.WriteString("💪 *Tes habitudes du jour*\n\n")
	done := 0
	for _, habit := range habits {
		mark := "⬜"
		if habit.DoneToday {
			mark = "✅"
			done++
		}
		fmt.Fprintf(&b, "%s %s", mark, habit.Name)
		if habit.Streak > 1 {
			fmt.Fprintf(&b, " — 🔥 %d jours", habit.Streak)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n📊 %d/%d complétée(s) aujourd'hui", done, len(habits))
	if done == len(habits) {
		b.WriteString("\n\n🎉 Toutes tes habitudes sont faites, bravo !")
	}

	return true, h.messenger.SendText(ctx, user.Phone, b.String())
}
