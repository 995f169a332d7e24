package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/productif-io/assistant/internal/agent"
)

// MessageRouter dispatches inbound messages. Satisfied by agent.Router.
type MessageRouter interface {
	HandleText(ctx context.Context, user agent.User, text string) error
	HandleVoice(ctx context.Context, user agent.User, messageID, mediaID string) error
}

// Handler implements the webhook endpoints.
type Handler struct {
	router      MessageRouter
	verifyToken string
	version     string
}

// NewHandler creates the webhook handler.
func NewHandler(router MessageRouter, verifyToken, version string) *Handler {
	return &Handler{
		router:      router,
		verifyToken: verifyToken,
		version:     version,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}{
		Status:  "healthy",
		Version: h.version,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Verify handles the GET subscription handshake: Meta sends hub.mode,
// hub.verify_token and hub.challenge, and expects the raw challenge back.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || token != h.verifyToken {
		slog.Warn("webhook verification rejected", "mode", mode)
		WriteProblem(w, r, http.StatusForbidden, "Verification failed")
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

// cloudPayload mirrors the WhatsApp Cloud API webhook envelope, down to the
// one message per delivery we care about.
type cloudPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []cloudMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type cloudMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Audio *struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
	} `json:"audio"`
	Voice *struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
	} `json:"voice"`
}

// simplePayload is the flat test format used by local tooling.
type simplePayload struct {
	MessageText string `json:"messageText"`
	Text        string `json:"text"`
	PhoneNumber string `json:"phoneNumber"`
	From        string `json:"from"`
}

// Receive handles POST webhook deliveries. Status updates and other
// non-message events are acknowledged and ignored. Handler failures are
// logged but still acknowledged: Meta retries non-200 responses, and a
// retried delivery would just fail the same way.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Invalid JSON")
		return
	}

	msg, ok := extractMessage(raw)
	if !ok {
		acknowledge(w)
		return
	}

	user := agent.User{ID: msg.From, Phone: msg.From}
	ctx := r.Context()

	var err error
	switch {
	case msg.Type == "text" && msg.Text != nil:
		err = h.router.HandleText(ctx, user, msg.Text.Body)
	case msg.Audio != nil:
		err = h.router.HandleVoice(ctx, user, msg.ID, msg.Audio.ID)
	case msg.Voice != nil:
		err = h.router.HandleVoice(ctx, user, msg.ID, msg.Voice.ID)
	default:
		slog.Info("unsupported message type ignored", "type", msg.Type, "from", msg.From)
	}
	if err != nil {
		slog.Error("message handling failed",
			"from", msg.From,
			"message_id", msg.ID,
			"error", err)
	}

	acknowledge(w)
}

// extractMessage pulls the first message out of a Cloud API envelope, or
// falls back to the flat format when the envelope carries none.
func extractMessage(raw json.RawMessage) (cloudMessage, bool) {
	var payload cloudPayload
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, entry := range payload.Entry {
			for _, change := range entry.Changes {
				if len(change.Value.Messages) > 0 {
					return change.Value.Messages[0], true
				}
			}
		}
	}

	var simple simplePayload
	if err := json.Unmarshal(raw, &simple); err != nil {
		return cloudMessage{}, false
	}
	text := simple.MessageText
	if text == "" {
		text = simple.Text
	}
	phone := simple.PhoneNumber
	if phone == "" {
		phone = simple.From
	}
	if strings.TrimSpace(text) == "" || strings.TrimSpace(phone) == "" {
		return cloudMessage{}, false
	}

	return cloudMessage{
		From: phone,
		Type: "text",
		Text: &struct {
			Body string `json:"body"`
		}{Body: text},
	}, true
}

func acknowledge(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("EVENT_RECEIVED"))
}
