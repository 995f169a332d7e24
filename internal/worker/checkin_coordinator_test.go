package worker

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/productif-io/assistant/internal/convstate"
)

type fakeScheduleStore struct {
	due    []convstate.Schedule
	dueErr error

	states     map[string]string
	setErr     error
	marked     []string
	markErr    error
	stateReads int
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{states: make(map[string]string)}
}

func (f *fakeScheduleStore) DueSchedules(ctx context.Context, now time.Time) ([]convstate.Schedule, error) {
	return f.due, f.dueErr
}

func (f *fakeScheduleStore) MarkScheduleSent(ctx context.Context, userID string, at time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, userID)
	return nil
}

func (f *fakeScheduleStore) GetState(ctx context.Context, userID string) (*convstate.Record, error) {
	f.stateReads++
	state, ok := f.states[userID]
	if !ok {
		return nil, convstate.ErrNotFound
	}
	return &convstate.Record{UserID: userID, State: state}, nil
}

func (f *fakeScheduleStore) SetState(ctx context.Context, userID, state, data string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.states[userID] = state
	return nil
}

type fakeSender struct {
	sent []struct{ to, body string }
	err  error
}

func (f *fakeSender) SendText(ctx context.Context, to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, struct{ to, body string }{to, body})
	return nil
}

func newTestCoordinator(store *fakeScheduleStore, sender *fakeSender) *CheckInCoordinator {
	c := NewCheckInCoordinator(store, sender, time.Minute)
	c.now = func() time.Time { return time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC) }
	c.rand = rand.New(rand.NewSource(1))
	return c
}

func moodSchedule(userID, phone string) convstate.Schedule {
	return convstate.Schedule{
		UserID:      userID,
		PhoneNumber: phone,
		Enabled:     true,
		Types:       []string{"mood"},
		Interval:    4 * time.Hour,
	}
}

func TestCheckIn_PromptsDueSchedule(t *testing.T) {
	store := newFakeScheduleStore()
	store.due = []convstate.Schedule{moodSchedule("user-1", "33612345678")}
	sender := &fakeSender{}

	newTestCoordinator(store, sender).promptDue(context.Background())

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d prompts, want 1", len(sender.sent))
	}
	if sender.sent[0].to != "33612345678" {
		t.Errorf("prompt sent to %q", sender.sent[0].to)
	}
	if !strings.Contains(sender.sent[0].body, "(1-10)") {
		t.Errorf("prompt = %q, want a 1-10 question", sender.sent[0].body)
	}
	if store.states["user-1"] != "awaiting_checkin_mood" {
		t.Errorf("state = %q, want awaiting_checkin_mood", store.states["user-1"])
	}
	if len(store.marked) != 1 || store.marked[0] != "user-1" {
		t.Errorf("marked = %v, want [user-1]", store.marked)
	}
}

func TestCheckIn_SkipsBusyConversation(t *testing.T) {
	store := newFakeScheduleStore()
	store.due = []convstate.Schedule{moodSchedule("user-1", "33612345678")}
	store.states["user-1"] = "awaiting_tasks_list"
	sender := &fakeSender{}

	newTestCoordinator(store, sender).promptDue(context.Background())

	if len(sender.sent) != 0 {
		t.Error("no prompt should interrupt a pending conversation")
	}
	if store.states["user-1"] != "awaiting_tasks_list" {
		t.Error("existing state must be left alone")
	}
	if len(store.marked) != 0 {
		t.Error("a skipped schedule must stay due")
	}
}

func TestCheckIn_SendFailureLeavesScheduleDue(t *testing.T) {
	store := newFakeScheduleStore()
	store.due = []convstate.Schedule{moodSchedule("user-1", "33612345678")}
	sender := &fakeSender{err: errors.New("network down")}

	newTestCoordinator(store, sender).promptDue(context.Background())

	if len(store.marked) != 0 {
		t.Error("a failed send must not mark the schedule sent")
	}
}

func TestCheckIn_OneFailureDoesNotStopOthers(t *testing.T) {
	store := newFakeScheduleStore()
	store.due = []convstate.Schedule{
		moodSchedule("user-1", "33611111111"),
		moodSchedule("user-2", "33622222222"),
	}
	store.states["user-1"] = "awaiting_deepwork_duration"
	sender := &fakeSender{}

	newTestCoordinator(store, sender).promptDue(context.Background())

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d prompts, want 1", len(sender.sent))
	}
	if sender.sent[0].to != "33622222222" {
		t.Errorf("prompt sent to %q, want the free user", sender.sent[0].to)
	}
}

func TestCheckIn_InvalidConfiguredTypesFallBack(t *testing.T) {
	store := newFakeScheduleStore()
	sched := moodSchedule("user-1", "33612345678")
	sched.Types = []string{"happiness", "zen"}
	store.due = []convstate.Schedule{sched}
	sender := &fakeSender{}

	newTestCoordinator(store, sender).promptDue(context.Background())

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d prompts, want 1", len(sender.sent))
	}
	if !strings.HasPrefix(store.states["user-1"], "awaiting_checkin_") {
		t.Errorf("state = %q, want a pending check-in", store.states["user-1"])
	}
}

func TestCheckIn_RunStopsOnCancel(t *testing.T) {
	coordinator := newTestCoordinator(newFakeScheduleStore(), &fakeSender{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		coordinator.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after context cancellation")
	}
}
