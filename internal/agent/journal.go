package agent

import (
	"context"

	"github.com/productif-io/assistant/internal/intent"
	"github.com/productif-io/assistant/internal/restapi"
	"github.com/productif-io/assistant/pkg/flexmatch"
)

// JournalAPI is the journaling slice of the REST API.
// Satisfied by restapi.Client.
type JournalAPI interface {
	CreateJournalEntry(ctx context.Context, userID, content, source string) (*restapi.JournalEntry, error)
	JournalSummary(ctx context.Context, userID string) (string, error)
}

// JournalHandler records day notes and serves journal summaries.
type JournalHandler struct {
	matcher   *flexmatch.Matcher
	api       JournalAPI
	messenger Messenger
}

// NewJournalHandler creates the journaling handler.
func NewJournalHandler(matcher *flexmatch.Matcher, api JournalAPI, messenger Messenger) *JournalHandler {
	return &JournalHandler{matcher: matcher, api: api, messenger: messenger}
}

// Handle serves summary requests, then records messages that read like a
// day note. Questions about the journal feature fall through to other
// handlers.
func (h *JournalHandler) Handle(ctx context.Context, user User, message, source string) (bool, error) {
	result := h.matcher.Match(message, "journal_summary")
	if result.Matches && result.Confidence >= commandConfidence {
		return true, h.summary(ctx, user)
	}

	if !intent.IsJournalingIntent(message) {
		return false, nil
	}

	entry, err := h.api.CreateJournalEntry(ctx, user.ID, message, source)
	if err != nil {
		if sendErr := h.messenger.SendText(ctx, user.Phone,
			"❌ Oups, je n'ai pas pu enregistrer ta note. Réessaye dans quelques instants !"); sendErr != nil {
			return true, sendErr
		}
		return true, err
	}

	reply := "📝 *C'est noté dans ton journal !*\n\nContinue à raconter tes journées, ça t'aidera à voir le chemin parcouru. 💙"
	if source == "voice" {
		reply = "🎙️ *Message vocal transcrit et noté dans ton journal !*\n\n_« " + truncate(entry.Content, 120) + " »_"
	}
	return true, h.messenger.SendText(ctx, user.Phone, reply)
}

func (h *JournalHandler) summary(ctx context.Context, user User) error {
	summary, err := h.api.JournalSummary(ctx, user.ID)
	if err != nil {
		if sendErr := h.messenger.SendText(ctx, user.Phone,
			"❌ Impossible de récupérer ton résumé pour le moment. Réessaye plus tard !"); sendErr != nil {
			return sendErr
		}
		return err
	}
	if summary == "" {
		return h.messenger.SendText(ctx, user.Phone,
			"📓 Ton journal est encore vide.\n\nÉcris \"note de ma journée\" suivi de ton récit pour commencer !")
	}
	return h.messenger.SendText(ctx, user.Phone, "📓 *Résumé de ton journal*\n\n"+summary)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
