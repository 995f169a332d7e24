package worker

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/productif-io/assistant/internal/checkin"
	"github.com/productif-io/assistant/internal/convstate"
)

// ScheduleStore defines the operations the check-in coordinator needs.
// Implemented by convstate.SQLiteStore.
type ScheduleStore interface {
	DueSchedules(ctx context.Context, now time.Time) ([]convstate.Schedule, error)
	MarkScheduleSent(ctx context.Context, userID string, at time.Time) error
	GetState(ctx context.Context, userID string) (*convstate.Record, error)
	SetState(ctx context.Context, userID, state, data string) error
}

// PromptSender sends the check-in question. Implemented by
// transport.WhatsAppClient.
type PromptSender interface {
	SendText(ctx context.Context, to, body string) error
}

// CheckInCoordinator periodically scans for due check-in schedules, picks a
// question, marks the user as awaiting a rating and sends the prompt.
type CheckInCoordinator struct {
	store    ScheduleStore
	sender   PromptSender
	interval time.Duration

	now  func() time.Time
	rand *rand.Rand
}

// NewCheckInCoordinator creates a coordinator scanning at the given interval.
func NewCheckInCoordinator(store ScheduleStore, sender PromptSender, interval time.Duration) *CheckInCoordinator {
	return &CheckInCoordinator{
		store:    store,
		sender:   sender,
		interval: interval,
		now:      time.Now,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run starts the coordinator loop. It blocks until ctx is cancelled.
//
// The first scan waits one full interval: prompting users the instant the
// server restarts would double-send around deploys.
func (c *CheckInCoordinator) Run(ctx context.Context) {
	slog.Info("check-in coordinator started",
		"component", "worker",
		"worker", "checkin-coordinator",
		"interval", c.interval.String(),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("check-in coordinator stopped",
				"component", "worker",
				"worker", "checkin-coordinator",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			c.promptDue(ctx)
		}
	}
}

// promptDue prompts every due schedule, continuing on individual failures.
func (c *CheckInCoordinator) promptDue(ctx context.Context) {
	now := c.now()
	due, err := c.store.DueSchedules(ctx, now)
	if err != nil {
		slog.Error("failed to list due check-in schedules",
			"component", "worker",
			"worker", "checkin-coordinator",
			"error", err,
		)
		return
	}

	var sent, skipped, failed int
	for _, sched := range due {
		if ctx.Err() != nil {
			return // Graceful shutdown
		}
		switch err := c.prompt(ctx, sched, now); {
		case err == nil:
			sent++
		case errors.Is(err, errConversationBusy):
			skipped++
		default:
			failed++
			slog.Error("check-in prompt failed",
				"component", "worker",
				"worker", "checkin-coordinator",
				"user_id", sched.UserID,
				"error", err,
			)
		}
	}

	if sent > 0 || failed > 0 {
		slog.Info("check-in scan complete",
			"component", "worker",
			"worker", "checkin-coordinator",
			"sent", sent,
			"skipped", skipped,
			"failed", failed,
		)
	}
}

// errConversationBusy marks a user skipped because another question is
// already pending.
var errConversationBusy = errors.New("conversation has a pending question")

// prompt sends one check-in question. The pending state is written before
// the send so a crash between the two cannot leave an unanswered question
// the router would misroute; the schedule is only marked sent afterwards so
// a failed send retries on the next scan.
func (c *CheckInCoordinator) prompt(ctx context.Context, sched convstate.Schedule, now time.Time) error {
	record, err := c.store.GetState(ctx, sched.UserID)
	if err != nil && !errors.Is(err, convstate.ErrNotFound) {
		return err
	}
	if record != nil && record.State != "" && record.State != "idle" {
		return errConversationBusy
	}

	checkInType := c.pickType(sched.Types)
	question := c.pickQuestion(checkInType)

	pending := checkin.AwaitingRating{Type: checkInType}
	if err := c.store.SetState(ctx, sched.UserID, pending.Tag(), ""); err != nil {
		return err
	}
	if err := c.sender.SendText(ctx, sched.PhoneNumber, question); err != nil {
		return err
	}

	slog.Debug("check-in prompt sent",
		"user_id", sched.UserID,
		"type", string(checkInType),
	)

	return c.store.MarkScheduleSent(ctx, sched.UserID, now)
}

// pickType draws a random type from the schedule's configured list, falling
// back to the full set when the list is empty or holds no valid type.
func (c *CheckInCoordinator) pickType(configured []string) checkin.Type {
	var valid []checkin.Type
	for _, s := range configured {
		if t, err := checkin.ParseType(s); err == nil {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		valid = checkin.Types
	}
	return valid[c.rand.Intn(len(valid))]
}

func (c *CheckInCoordinator) pickQuestion(t checkin.Type) string {
	templates := checkin.Questions[t]
	if len(templates) == 0 {
		return t.Emoji() + " Comment ça va ? (1-10)"
	}
	return templates[c.rand.Intn(len(templates))]
}
