package agent

import (
	"context"
	"fmt"

	"github.com/productif-io/assistant/pkg/flexmatch"
)

// PlanningAPI is the task-planning slice of the REST API.
// Satisfied by restapi.Client.
type PlanningAPI interface {
	PlanTomorrow(ctx context.Context, userID, input string) (int, error)
}

// PlanningHandler runs the two-step "plan tomorrow" conversation: the
// command opens the flow, the next message carries the task list.
type PlanningHandler struct {
	matcher   *flexmatch.Matcher
	api       PlanningAPI
	messenger Messenger
	states    StateStore
}

// NewPlanningHandler creates the task-planning handler.
func NewPlanningHandler(matcher *flexmatch.Matcher, api PlanningAPI, messenger Messenger, states StateStore) *PlanningHandler {
	return &PlanningHandler{matcher: matcher, api: api, messenger: messenger, states: states}
}

// Handle opens the planning flow when the command matches.
func (h *PlanningHandler) Handle(ctx context.Context, user User, message string) (bool, error) {
	result := h.matcher.Match(message, "plan_tomorrow")
	if !result.Matches || result.Confidence < commandConfidence {
		return false, nil
	}

	reply := "📋 *Planification intelligente*\n\n" +
		"Dis-moi tout ce que tu as à faire demain, dans l'ordre que tu veux !\n\n" +
		"💡 *Tu peux mentionner :*\n" +
		"• Les tâches importantes ou urgentes\n" +
		"• Si une tâche est longue ou rapide\n" +
		"• Si ça demande beaucoup de concentration\n" +
		"• Les deadlines\n\n" +
		"*Exemple :*\n" +
		"\"J'ai une réunion importante avec le client à 10h, puis je dois finir le rapport marketing urgent avant 16h.\""
	if err := h.messenger.SendText(ctx, user.Phone, reply); err != nil {
		return true, err
	}

	return true, h.states.SetState(ctx, user.ID, "awaiting_tasks_list", "")
}

// HandleTaskList processes the free-form task list the user sent after
// the planning prompt.
func (h *PlanningHandler) HandleTaskList(ctx context.Context, user User, message string) error {
	if err := h.messenger.SendText(ctx, user.Phone,
		"🤖 *Analyse en cours...*\n\nJe réfléchis à la meilleure organisation pour ta journée. ⏳"); err != nil {
		return err
	}

	created, err := h.api.PlanTomorrow(ctx, user.ID, message)
	if err != nil {
		if clearErr := h.states.ClearState(ctx, user.ID); clearErr != nil {
			return clearErr
		}
		if sendErr := h.messenger.SendText(ctx, user.Phone,
			"❌ Oups, impossible de créer tes tâches. Réessaye dans quelques instants !"); sendErr != nil {
			return sendErr
		}
		return err
	}

	plural := ""
	if created > 1 {
		plural = "s"
	}
	reply := fmt.Sprintf("✅ *%d tâche%s créée%s !*\n\n🌙 Repose-toi bien, demain est déjà organisé. 💪", created, plural, plural)
	if err := h.messenger.SendText(ctx, user.Phone, reply); err != nil {
		return err
	}

	return h.states.ClearState(ctx, user.ID)
}
