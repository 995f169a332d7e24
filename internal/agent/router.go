// Package agent routes inbound WhatsApp messages to feature handlers.
// Messages flow through an ordered chain mirroring the conversation
// priorities: pending question replies first, then help, task planning,
// journaling, behavior commands, and deep-work commands. Unhandled
// messages get a fallback reply.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/productif-io/assistant/internal/convstate"
)

// User identifies the conversation participant.
type User struct {
	ID    string
	Phone string
}

// Messenger sends outbound messages. Satisfied by transport.WhatsAppClient.
type Messenger interface {
	SendText(ctx context.Context, to string, body string) error
}

// StateStore persists per-user conversation state between messages.
// Satisfied by convstate.SQLiteStore.
type StateStore interface {
	GetState(ctx context.Context, userID string) (*convstate.Record, error)
	SetState(ctx context.Context, userID, state, data string) error
	ClearState(ctx context.Context, userID string) error
	RecordCheckIn(ctx context.Context, userID, checkInType string, value int, triggeredBy string) (*convstate.Entry, error)
}

// MediaFetcher downloads inbound media. Satisfied by transport.WhatsAppClient.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, mediaID string) (data []byte, mimeType string, err error)
}

// Transcriber converts audio to text. Satisfied by transcribe.Whisper.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Archiver retains a copy of voice notes. Satisfied by media.S3Archiver.
type Archiver interface {
	Archive(ctx context.Context, userID, messageID string, audio []byte, mimeType string) (string, error)
}

const fallbackReply = `🤔 Je n'ai pas bien compris ta demande...

Voici ce que je sais faire :
• "je commence à travailler" → session Deep Work
• "planifie demain" → organiser ta journée
• "note de ma journée" → journaling
• "résumé du journal" → relire tes notes
• "analyse" ou "tendances" → ton suivi comportemental

Ou écris "aide" pour en savoir plus !`

const transcriptionFailedReply = "❌ Je n'ai pas pu transcrire ton message vocal. Réessaye dans quelques instants."

// Router dispatches one inbound message to the right handler.
type Router struct {
	states    StateStore
	messenger Messenger

	fetcher     MediaFetcher
	transcriber Transcriber
	archiver    Archiver

	help     *HelpHandler
	planning *PlanningHandler
	journal  *JournalHandler
	behavior *BehaviorHandler
	habits   *HabitsHandler
	deepwork *DeepWorkHandler
}

// NewRouter assembles the handler chain.
func NewRouter(
	states StateStore,
	messenger Messenger,
	fetcher MediaFetcher,
	transcriber Transcriber,
	archiver Archiver,
	help *HelpHandler,
	planning *PlanningHandler,
	journal *JournalHandler,
	behavior *BehaviorHandler,
	habits *HabitsHandler,
	deepwork *DeepWorkHandler,
) *Router {
	return &Router{
		states:      states,
		messenger:   messenger,
		fetcher:     fetcher,
		transcriber: transcriber,
		archiver:    archiver,
		help:        help,
		planning:    planning,
		journal:     journal,
		behavior:    behavior,
		habits:      habits,
		deepwork:    deepwork,
	}
}

// HandleText routes a text message through the chain.
func (r *Router) HandleText(ctx context.Context, user User, text string) error {
	return r.dispatch(ctx, user, text, "text")
}

// HandleVoice downloads, transcribes and archives a voice note, then
// routes the transcript through the same chain as text.
func (r *Router) HandleVoice(ctx context.Context, user User, messageID, mediaID string) error {
	audio, mimeType, err := r.fetcher.FetchMedia(ctx, mediaID)
	if err != nil {
		slog.Error("voice note download failed",
			"user_id", user.ID,
			"media_id", mediaID,
			"error", err)
		return r.messenger.SendText(ctx, user.Phone, transcriptionFailedReply)
	}

	text, err := r.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		slog.Error("voice note transcription failed",
			"user_id", user.ID,
			"media_id", mediaID,
			"error", err)
		return r.messenger.SendText(ctx, user.Phone, transcriptionFailedReply)
	}

	// Archiving is best-effort; the transcript is already in hand.
	if key, err := r.archiver.Archive(ctx, user.ID, messageID, audio, mimeType); err != nil {
		slog.Warn("voice note archive failed",
			"user_id", user.ID,
			"message_id", messageID,
			"error", err)
	} else if key != "" {
		slog.Debug("voice note archived", "user_id", user.ID, "key", key)
	}

	slog.Info("voice note transcribed",
		"user_id", user.ID,
		"chars", len(text))

	return r.dispatch(ctx, user, text, "voice")
}

func (r *Router) dispatch(ctx context.Context, user User, text, source string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// A pending question owns the next reply, whatever it says.
	tag, err := r.stateTag(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load conversation state: %w", err)
	}

	switch {
	case tag == "awaiting_deepwork_duration":
		return r.deepwork.HandleDuration(ctx, user, text)
	case tag == "awaiting_tasks_list":
		return r.planning.HandleTaskList(ctx, user, text)
	case strings.HasPrefix(tag, "awaiting_checkin_"):
		return r.behavior.HandleRating(ctx, user, tag, text)
	}

	steps := []struct {
		name string
		fn   func(context.Context, User, string) (bool, error)
	}{
		{"help", r.help.Handle},
		{"planning", r.planning.Handle},
		{"journal", func(ctx context.Context, u User, msg string) (bool, error) {
			return r.journal.Handle(ctx, u, msg, source)
		}},
		{"behavior", r.behavior.Handle},
		{"habits", r.habits.Handle},
		{"deepwork", r.deepwork.Handle},
	}

	for _, step := range steps {
		handled, err := step.fn(ctx, user, text)
		if err != nil {
			return fmt.Errorf("%s handler: %w", step.name, err)
		}
		if handled {
			slog.Info("message handled",
				"user_id", user.ID,
				"handler", step.name,
				"source", source)
			return nil
		}
	}

	slog.Info("message unhandled", "user_id", user.ID, "source", source)
	return r.messenger.SendText(ctx, user.Phone, fallbackReply)
}

// stateTag returns the persisted state tag for the user, or "idle" when
// none exists.
func (r *Router) stateTag(ctx context.Context, userID string) (string, error) {
	record, err := r.states.GetState(ctx, userID)
	if err != nil {
		if errors.Is(err, convstate.ErrNotFound) {
			return "idle", nil
		}
		return "", err
	}
	return record.State, nil
}
