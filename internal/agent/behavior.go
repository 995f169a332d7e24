package agent

import (
	"context"
	"strings"

	"github.com/productif-io/assistant/internal/checkin"
)

// BehaviorAPI is the behavior-tracking slice of the REST API.
// Satisfied by restapi.Client.
type BehaviorAPI interface {
	RecordCheckIn(ctx context.Context, userID, checkinType string, value int) error
	BehaviorAnalysis(ctx context.Context, userID string) (string, error)
	BehaviorTrends(ctx context.Context, userID string) (string, error)
}

// BehaviorHandler serves behavior analysis commands and processes replies
// to scheduled check-in questions.
type BehaviorHandler struct {
	api       BehaviorAPI
	messenger Messenger
	states    StateStore
}

// NewBehaviorHandler creates the behavior handler.
func NewBehaviorHandler(api BehaviorAPI, messenger Messenger, states StateStore) *BehaviorHandler {
	return &BehaviorHandler{api: api, messenger: messenger, states: states}
}

// Handle serves analysis and trend requests.
func (h *BehaviorHandler) Handle(ctx context.Context, user User, message string) (bool, error) {
	lower := strings.ToLower(message)

	if strings.Contains(lower, "analyse") || strings.Contains(lower, "rapport") || strings.Contains(lower, "pattern") {
		return true, h.analysis(ctx, user)
	}
	if strings.Contains(lower, "tendance") || strings.Contains(lower, "évolution") {
		return true, h.trends(ctx, user)
	}

	return false, nil
}

// HandleRating processes the reply to a pending check-in question.
// A valid rating is recorded remotely and locally, then the state clears;
// anything else keeps the question pending.
func (h *BehaviorHandler) HandleRating(ctx context.Context, user User, stateTag, message string) error {
	pending, ok := checkin.ParseState(stateTag).(checkin.AwaitingRating)
	if !ok {
		// Stale tag; drop it and treat the message as unhandled next time.
		return h.states.ClearState(ctx, user.ID)
	}

	outcome := checkin.HandleRating(pending, message)
	if !outcome.Recorded {
		return h.messenger.SendText(ctx, user.Phone, outcome.Reply)
	}

	if err := h.api.RecordCheckIn(ctx, user.ID, string(pending.Type), outcome.Value); err != nil {
		// Keep the question pending so the user can retry.
		if sendErr := h.messenger.SendText(ctx, user.Phone,
			"❌ Oups, erreur d'enregistrement. Réessaye plus tard !"); sendErr != nil {
			return sendErr
		}
		return err
	}

	if _, err := h.states.RecordCheckIn(ctx, user.ID, string(pending.Type), outcome.Value, "scheduled"); err != nil {
		return err
	}
	if err := h.states.ClearState(ctx, user.ID); err != nil {
		return err
	}

	return h.messenger.SendText(ctx, user.Phone, outcome.Reply)
}

func (h *BehaviorHandler) analysis(ctx context.Context, user User) error {
	summary, err := h.api.BehaviorAnalysis(ctx, user.ID)
	if err != nil || summary == "" {
		return h.messenger.SendText(ctx, user.Phone,
			"📊 Continue à répondre aux questions quotidiennes pour recevoir ton analyse comportementale !")
	}
	return h.messenger.SendText(ctx, user.Phone, "📊 *Ton analyse des 7 derniers jours*\n\n"+summary)
}

func (h *BehaviorHandler) trends(ctx context.Context, user User) error {
	summary, err := h.api.BehaviorTrends(ctx, user.ID)
	if err != nil || summary == "" {
		return h.messenger.SendText(ctx, user.Phone,
			"📊 Pas assez de données pour afficher les tendances. Continue à répondre aux questions !")
	}
	return h.messenger.SendText(ctx, user.Phone, "📈 *Tes tendances sur 7 jours*\n\n"+summary)
}
