package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/productif-io/assistant/internal/restapi"
	"github.com/productif-io/assistant/pkg/flexmatch"
)

// Deep-work sessions must stay within a focused range; shorter offers no
// benefit, longer erodes concentration.
const (
	minSessionMinutes = 5
	maxSessionMinutes = 240
)

// commandConfidence is the gate applied to matcher results before a
// deep-work or planning command fires.
const commandConfidence = 0.7

var digitsPattern = regexp.MustCompile(`\d+`)

// SessionAPI is the deep-work slice of the REST API.
// Satisfied by restapi.Client.
type SessionAPI interface {
	StartSession(ctx context.Context, userID string, minutes int) (*restapi.Session, error)
	StopSession(ctx context.Context, userID string) (*restapi.Session, error)
	PauseSession(ctx context.Context, userID string) (*restapi.Session, error)
	ResumeSession(ctx context.Context, userID string) (*restapi.Session, error)
	ActiveSession(ctx context.Context, userID string) (*restapi.Session, error)
	RecentSessions(ctx context.Context, userID string, limit int) ([]restapi.Session, error)
}

// DeepWorkHandler drives focus sessions through conversational commands.
type DeepWorkHandler struct {
	matcher   *flexmatch.Matcher
	api       SessionAPI
	messenger Messenger
	states    StateStore
	now       func() time.Time
}

// NewDeepWorkHandler creates the deep-work command handler.
func NewDeepWorkHandler(matcher *flexmatch.Matcher, api SessionAPI, messenger Messenger, states StateStore) *DeepWorkHandler {
	return &DeepWorkHandler{
		matcher:   matcher,
		api:       api,
		messenger: messenger,
		states:    states,
		now:       time.Now,
	}
}

// Handle dispatches deep-work commands detected by the matcher.
func (h *DeepWorkHandler) Handle(ctx context.Context, user User, message string) (bool, error) {
	if h.matches(message, "start_deepwork") {
		return true, h.start(ctx, user)
	}
	if h.matches(message, "end_deepwork") {
		return true, h.end(ctx, user)
	}
	if h.matches(message, "pause_deepwork") {
		return true, h.pause(ctx, user)
	}
	if h.matches(message, "resume_deepwork") {
		return true, h.resume(ctx, user)
	}
	if h.matches(message, "status_deepwork") {
		return true, h.status(ctx, user)
	}

	// History is keyword-only for now, it has no catalog entry.
	lower := strings.ToLower(message)
	if (strings.Contains(lower, "historique") || strings.Contains(lower, "sessions")) &&
		(strings.Contains(lower, "deep work") || strings.Contains(lower, "travail")) {
		return true, h.history(ctx, user)
	}

	return false, nil
}

func (h *DeepWorkHandler) matches(message, commandID string) bool {
	result := h.matcher.Match(message, commandID)
	return result.Matches && result.Confidence >= commandConfidence
}

func (h *DeepWorkHandler) start(ctx context.Context, user User) error {
	session, err := h.api.ActiveSession(ctx, user.ID)
	if err != nil && !errors.Is(err, restapi.ErrNotFound) {
		return h.technicalError(ctx, user, err)
	}
	if session != nil {
		reply := fmt.Sprintf("⚠️ Tu as déjà une session en cours !\n\n⏱️ Temps écoulé : %d/%d minutes\n\nÉcris \"termine session\" pour la terminer ou \"pause session\" pour faire une pause.",
			session.ElapsedMinutes, session.PlannedMinutes)
		return h.messenger.SendText(ctx, user.Phone, reply)
	}

	reply := "🚀 *C'est parti pour une session Deep Work !*\n\n" +
		"Combien de temps veux-tu travailler ?\n\n" +
		"💡 Choix rapides :\n" +
		"• 25 (Pomodoro)\n" +
		"• 50 (Session courte)\n" +
		"• 90 (Deep Work classique)\n" +
		"• 120 (Session intensive)\n\n" +
		"Ou réponds avec n'importe quel nombre de minutes !"
	if err := h.messenger.SendText(ctx, user.Phone, reply); err != nil {
		return err
	}

	return h.states.SetState(ctx, user.ID, "awaiting_deepwork_duration", "")
}

// HandleDuration processes the reply to the duration question.
func (h *DeepWorkHandler) HandleDuration(ctx context.Context, user User, message string) error {
	match := digitsPattern.FindString(message)
	if match == "" {
		return h.messenger.SendText(ctx, user.Phone,
			"🤔 Je n'ai pas compris... Réponds simplement avec un nombre de minutes !\n\nExemples : 25, 90, 120")
	}

	minutes, err := strconv.Atoi(match)
	if err != nil {
		// Absurdly long digit strings overflow; treat them as too long.
		minutes = maxSessionMinutes + 1
	}
	if minutes < minSessionMinutes {
		return h.messenger.SendText(ctx, user.Phone,
			"⚠️ Minimum 5 minutes pour une session Deep Work !\n\nRéessaye avec une durée plus longue.")
	}
	if minutes > maxSessionMinutes {
		return h.messenger.SendText(ctx, user.Phone,
			"⚠️ Maximum 240 minutes (4h) !\n\nAu-delà, tu risques de perdre en concentration. Réessaye avec une durée plus courte.")
	}

	session, err := h.api.StartSession(ctx, user.ID, minutes)
	if err != nil {
		if clearErr := h.states.ClearState(ctx, user.ID); clearErr != nil {
			return clearErr
		}
		return h.technicalError(ctx, user, err)
	}

	end := h.now().Add(time.Duration(minutes) * time.Minute)
	reply := fmt.Sprintf("✅ *Session Deep Work lancée !*\n\n⏱️ Durée : %d minutes\n🎯 Fin prévue : %s\n\n🔥 Reste concentré, tu peux le faire ! 💪\n\n_Je te préviendrai 5 minutes avant la fin._",
		session.PlannedMinutes, end.Format("15:04"))
	if err := h.messenger.SendText(ctx, user.Phone, reply); err != nil {
		return err
	}

	return h.states.ClearState(ctx, user.ID)
}

func (h *DeepWorkHandler) end(ctx context.Context, user User) error {
	session, err := h.api.StopSession(ctx, user.ID)
	if err != nil {
		if errors.Is(err, restapi.ErrNotFound) {
			return h.messenger.SendText(ctx, user.Phone, noActiveSessionReply)
		}
		return h.technicalError(ctx, user, err)
	}

	var b strings.Builder
	b.WriteString("✅ *Session terminée !*\n\n")
	fmt.Fprintf(&b, "⏱️ Durée prévue : %d min\n", session.PlannedMinutes)
	fmt.Fprintf(&b, "⏱️ Durée réelle : %d min\n\n", session.ElapsedMinutes)
	diff := session.ElapsedMinutes - session.PlannedMinutes
	if diff <= 2 {
		b.WriteString("🎉 Parfait ! Tu as tenu ton objectif !\n\n")
	} else {
		fmt.Fprintf(&b, "Tu as dépassé de %d minutes.\n\n", diff)
	}
	b.WriteString("💪 Bien joué ! Profite d'une pause bien méritée !")

	return h.messenger.SendText(ctx, user.Phone, b.String())
}

func (h *DeepWorkHandler) pause(ctx context.Context, user User) error {
	session, err := h.api.PauseSession(ctx, user.ID)
	if err != nil {
		if errors.Is(err, restapi.ErrNotFound) {
			return h.messenger.SendText(ctx, user.Phone, "ℹ️ Aucune session active à mettre en pause.")
		}
		return h.technicalError(ctx, user, err)
	}

	reply := fmt.Sprintf("⏸️ *Session mise en pause*\n\n⏱️ Temps écoulé : %d min\n\nÉcris \"reprendre session\" quand tu es prêt(e) à continuer !",
		session.ElapsedMinutes)
	return h.messenger.SendText(ctx, user.Phone, reply)
}

func (h *DeepWorkHandler) resume(ctx context.Context, user User) error {
	session, err := h.api.ResumeSession(ctx, user.ID)
	if err != nil {
		if errors.Is(err, restapi.ErrNotFound) {
			return h.messenger.SendText(ctx, user.Phone, "ℹ️ Aucune session en pause.\n\nTu veux démarrer une nouvelle session ?")
		}
		return h.technicalError(ctx, user, err)
	}

	remaining := session.PlannedMinutes - session.ElapsedMinutes
	reply := fmt.Sprintf("▶️ *Session reprise !*\n\n⏱️ Temps restant : %d min\n\n🔥 Allez, on y retourne ! 💪", remaining)
	return h.messenger.SendText(ctx, user.Phone, reply)
}

func (h *DeepWorkHandler) status(ctx context.Context, user User) error {
	session, err := h.api.ActiveSession(ctx, user.ID)
	if err != nil {
		if errors.Is(err, restapi.ErrNotFound) {
			return h.messenger.SendText(ctx, user.Phone, noActiveSessionReply)
		}
		return h.technicalError(ctx, user, err)
	}

	remaining := session.PlannedMinutes - session.ElapsedMinutes
	progress := 0
	if session.PlannedMinutes > 0 {
		progress = session.ElapsedMinutes * 100 / session.PlannedMinutes
	}

	var b strings.Builder
	b.WriteString("⏱️ *Session Deep Work en cours*\n\n")
	fmt.Fprintf(&b, "⏳ Temps écoulé : %d min\n", session.ElapsedMinutes)
	fmt.Fprintf(&b, "⏱️ Temps restant : %d min\n", remaining)
	fmt.Fprintf(&b, "📊 Progression : %d%%\n\n", progress)
	if remaining > 0 {
		b.WriteString("💪 Continue, tu es sur la bonne voie !")
	} else {
		b.WriteString("⚠️ Le temps est écoulé ! La session va se terminer automatiquement.")
	}

	return h.messenger.SendText(ctx, user.Phone, b.String())
}

func (h *DeepWorkHandler) history(ctx context.Context, user User) error {
	sessions, err := h.api.RecentSessions(ctx, user.ID, 5)
	if err != nil && !errors.Is(err, restapi.ErrNotFound) {
		return h.technicalError(ctx, user, err)
	}
	if len(sessions) == 0 {
		return h.messenger.SendText(ctx, user.Phone,
			"📊 Aucune session terminée pour le moment.\n\nCommence ta première session Deep Work maintenant !")
	}

	var b strings.Builder
	b.WriteString("📊 *Tes 5 dernières sessions*\n\n")
	totalMinutes := 0
	for _, s := range sessions {
		emoji := "✅"
		if s.ElapsedMinutes > s.PlannedMinutes+2 {
			emoji = "⚠️"
		}
		fmt.Fprintf(&b, "%s *%s*\n %d/%d min", emoji, s.StartedAt.Format("02 Jan à 15:04"), s.ElapsedMinutes, s.PlannedMinutes)
		if s.Interruptions > 0 {
			fmt.Fprintf(&b, " • %d interruption(s)", s.Interruptions)
		}
		b.WriteString("\n\n")
		totalMinutes += s.ElapsedMinutes
	}
	fmt.Fprintf(&b, "📈 *Stats :* %d min totales • Moyenne %d min/session",
		totalMinutes, totalMinutes/len(sessions))

	return h.messenger.SendText(ctx, user.Phone, b.String())
}

const noActiveSessionReply = "ℹ️ Aucune session en cours.\n\nÉcris \"je commence à travailler\" pour démarrer une nouvelle session !"

func (h *DeepWorkHandler) technicalError(ctx context.Context, user User, err error) error {
	if sendErr := h.messenger.SendText(ctx, user.Phone, "❌ Erreur technique. Réessaye dans quelques instants !"); sendErr != nil {
		return sendErr
	}
	return err
}
