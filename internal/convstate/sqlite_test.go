package convstate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "assistant.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestState_SetGetClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetState(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetState(absent) error = %v, want ErrNotFound", err)
	}

	if err := store.SetState(ctx, "user-1", "awaiting_checkin_mood", ""); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}

	rec, err := store.GetState(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetState() error: %v", err)
	}
	if rec.State != "awaiting_checkin_mood" {
		t.Errorf("state = %q, want %q", rec.State, "awaiting_checkin_mood")
	}
	if rec.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}

	// Upsert replaces the existing state.
	if err := store.SetState(ctx, "user-1", "awaiting_deepwork_duration", "extra"); err != nil {
		t.Fatalf("SetState(upsert) error: %v", err)
	}
	rec, err = store.GetState(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetState() error: %v", err)
	}
	if rec.State != "awaiting_deepwork_duration" || rec.Data != "extra" {
		t.Errorf("after upsert: state = %q data = %q", rec.State, rec.Data)
	}

	if err := store.ClearState(ctx, "user-1"); err != nil {
		t.Fatalf("ClearState() error: %v", err)
	}
	if _, err := store.GetState(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetState(after clear) error = %v, want ErrNotFound", err)
	}

	// Clearing an absent record is not an error.
	if err := store.ClearState(ctx, "user-1"); err != nil {
		t.Errorf("ClearState(absent) error: %v", err)
	}
}

func TestRecordCheckIn_AndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry, err := store.RecordCheckIn(ctx, "user-1", "mood", 8, "scheduled")
	if err != nil {
		t.Fatalf("RecordCheckIn() error: %v", err)
	}
	if entry.ID == "" {
		t.Error("entry ID not generated")
	}
	if entry.Value != 8 {
		t.Errorf("value = %d, want 8", entry.Value)
	}

	if _, err := store.RecordCheckIn(ctx, "user-1", "energy", 5, "manual"); err != nil {
		t.Fatalf("RecordCheckIn() error: %v", err)
	}
	if _, err := store.RecordCheckIn(ctx, "user-2", "mood", 3, "scheduled"); err != nil {
		t.Fatalf("RecordCheckIn() error: %v", err)
	}

	entries, err := store.ListCheckIns(ctx, "user-1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListCheckIns() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.UserID != "user-1" {
			t.Errorf("entry for %q leaked into user-1 listing", e.UserID)
		}
	}

	// A future cutoff excludes everything.
	entries, err = store.ListCheckIns(ctx, "user-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ListCheckIns() error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0 with future cutoff", len(entries))
	}
}

func TestSchedules_DueAndMarkSent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	never := Schedule{
		UserID:      "user-1",
		PhoneNumber: "33600000001",
		Enabled:     true,
		Types:       []string{"mood", "energy"},
		Interval:    time.Hour,
	}
	recent := never
	recent.UserID = "user-2"
	recent.PhoneNumber = "33600000002"
	sentAt := now.Add(-10 * time.Minute)
	recent.LastSentAt = &sentAt

	stale := never
	stale.UserID = "user-3"
	stale.PhoneNumber = "33600000003"
	staleAt := now.Add(-2 * time.Hour)
	stale.LastSentAt = &staleAt

	disabled := never
	disabled.UserID = "user-4"
	disabled.Enabled = false

	for _, sched := range []Schedule{never, recent, stale, disabled} {
		if err := store.UpsertSchedule(ctx, sched); err != nil {
			t.Fatalf("UpsertSchedule(%s) error: %v", sched.UserID, err)
		}
	}

	due, err := store.DueSchedules(ctx, now)
	if err != nil {
		t.Fatalf("DueSchedules() error: %v", err)
	}

	dueUsers := make(map[string]bool)
	for _, sched := range due {
		dueUsers[sched.UserID] = true
	}
	if !dueUsers["user-1"] || !dueUsers["user-3"] {
		t.Errorf("due users = %v, want user-1 and user-3", dueUsers)
	}
	if dueUsers["user-2"] {
		t.Error("recently-prompted schedule reported due")
	}
	if dueUsers["user-4"] {
		t.Error("disabled schedule reported due")
	}

	if err := store.MarkScheduleSent(ctx, "user-1", now); err != nil {
		t.Fatalf("MarkScheduleSent() error: %v", err)
	}
	due, err = store.DueSchedules(ctx, now)
	if err != nil {
		t.Fatalf("DueSchedules() error: %v", err)
	}
	for _, sched := range due {
		if sched.UserID == "user-1" {
			t.Error("user-1 still due after MarkScheduleSent")
		}
	}

	if err := store.MarkScheduleSent(ctx, "no-such-user", now); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkScheduleSent(absent) error = %v, want ErrNotFound", err)
	}
}

func TestSchedule_TypesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sched := Schedule{
		UserID:      "user-1",
		PhoneNumber: "33600000001",
		Enabled:     true,
		Types:       []string{"mood", "focus", "stress"},
		Interval:    90 * time.Minute,
	}
	if err := store.UpsertSchedule(ctx, sched); err != nil {
		t.Fatalf("UpsertSchedule() error: %v", err)
	}

	due, err := store.DueSchedules(ctx, time.Now())
	if err != nil {
		t.Fatalf("DueSchedules() error: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("len(due) = %d, want 1", len(due))
	}
	got := due[0]
	if len(got.Types) != 3 || got.Types[0] != "mood" || got.Types[2] != "stress" {
		t.Errorf("types = %v, want round-tripped [mood focus stress]", got.Types)
	}
	if got.Interval != 90*time.Minute {
		t.Errorf("interval = %v, want 90m", got.Interval)
	}
}
