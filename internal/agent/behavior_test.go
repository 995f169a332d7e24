package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newBehaviorFixture(api *fakeBehaviorAPI) (*BehaviorHandler, *fakeMessenger, *fakeStates) {
	messenger := &fakeMessenger{}
	states := newFakeStates()
	return NewBehaviorHandler(api, messenger, states), messenger, states
}

func TestBehavior_AnalysisCommand(t *testing.T) {
	api := &fakeBehaviorAPI{analysis: "Tu es plus concentré le matin."}
	handler, messenger, _ := newBehaviorFixture(api)

	handled, err := handler.Handle(context.Background(), testUser, "envoie-moi mon analyse")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !handled {
		t.Fatal("Handle() should handle an analysis request")
	}

	reply := messenger.last()
	if !strings.Contains(reply, "7 derniers jours") {
		t.Errorf("reply = %q, want analysis header", reply)
	}
	if !strings.Contains(reply, "plus concentré le matin") {
		t.Errorf("reply = %q, want analysis content", reply)
	}
}

func TestBehavior_AnalysisUnavailable(t *testing.T) {
	api := &fakeBehaviorAPI{analysisErr: errors.New("api down")}
	handler, messenger, _ := newBehaviorFixture(api)

	handled, err := handler.Handle(context.Background(), testUser, "montre mon rapport")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !handled {
		t.Fatal("Handle() should handle a report request")
	}
	if !strings.Contains(messenger.last(), "questions quotidiennes") {
		t.Errorf("reply = %q, want encouragement fallback", messenger.last())
	}
}

func TestBehavior_TrendsCommand(t *testing.T) {
	api := &fakeBehaviorAPI{trends: "Énergie en hausse."}
	handler, messenger, _ := newBehaviorFixture(api)

	handled, err := handler.Handle(context.Background(), testUser, "quelle est la tendance")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !handled {
		t.Fatal("Handle() should handle a trends request")
	}
	if !strings.Contains(messenger.last(), "Énergie en hausse") {
		t.Errorf("reply = %q, want trends content", messenger.last())
	}
}

func TestBehavior_TrendsEmpty(t *testing.T) {
	handler, messenger, _ := newBehaviorFixture(&fakeBehaviorAPI{})

	handled, err := handler.Handle(context.Background(), testUser, "mon évolution cette semaine")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !handled {
		t.Fatal("Handle() should handle a trends request")
	}
	if !strings.Contains(messenger.last(), "Pas assez de données") {
		t.Errorf("reply = %q, want not-enough-data fallback", messenger.last())
	}
}

func TestBehavior_UnrelatedNotHandled(t *testing.T) {
	handler, _, _ := newBehaviorFixture(&fakeBehaviorAPI{})

	handled, err := handler.Handle(context.Background(), testUser, "bonjour")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if handled {
		t.Error("Handle() should ignore an unrelated message")
	}
}

func TestBehavior_RatingRecorded(t *testing.T) {
	api := &fakeBehaviorAPI{}
	handler, messenger, states := newBehaviorFixture(api)
	states.states[testUser.ID] = "awaiting_checkin_mood"

	if err := handler.HandleRating(context.Background(), testUser, "awaiting_checkin_mood", "8"); err != nil {
		t.Fatalf("HandleRating() error = %v", err)
	}

	if api.gotType != "mood" || api.gotValue != 8 {
		t.Errorf("recorded (%s, %d), want (mood, 8)", api.gotType, api.gotValue)
	}
	if len(states.entries) != 1 {
		t.Fatalf("local entries = %d, want 1", len(states.entries))
	}
	if states.entries[0].TriggeredBy != "scheduled" {
		t.Errorf("TriggeredBy = %q, want scheduled", states.entries[0].TriggeredBy)
	}
	if _, ok := states.states[testUser.ID]; ok {
		t.Error("state should be cleared after a recorded rating")
	}
	if !strings.Contains(messenger.last(), "8/10") {
		t.Errorf("reply = %q, want tiered feedback", messenger.last())
	}
}

func TestBehavior_RatingInvalidKeepsState(t *testing.T) {
	api := &fakeBehaviorAPI{}
	handler, messenger, states := newBehaviorFixture(api)
	states.states[testUser.ID] = "awaiting_checkin_energy"

	if err := handler.HandleRating(context.Background(), testUser, "awaiting_checkin_energy", "super bien"); err != nil {
		t.Fatalf("HandleRating() error = %v", err)
	}

	if api.gotType != "" {
		t.Error("invalid rating should not reach the API")
	}
	if states.states[testUser.ID] != "awaiting_checkin_energy" {
		t.Error("state should stay pending after an invalid rating")
	}
	if !strings.Contains(messenger.last(), "1 à 10") {
		t.Errorf("reply = %q, want retry prompt", messenger.last())
	}
}

func TestBehavior_RatingOutOfRangeKeepsState(t *testing.T) {
	handler, messenger, states := newBehaviorFixture(&fakeBehaviorAPI{})
	states.states[testUser.ID] = "awaiting_checkin_focus"

	if err := handler.HandleRating(context.Background(), testUser, "awaiting_checkin_focus", "15"); err != nil {
		t.Fatalf("HandleRating() error = %v", err)
	}

	if states.states[testUser.ID] != "awaiting_checkin_focus" {
		t.Error("state should stay pending after an out-of-range rating")
	}
	if !strings.Contains(messenger.last(), "entre 1 et 10") {
		t.Errorf("reply = %q, want range prompt", messenger.last())
	}
}

func TestBehavior_RatingRemoteFailureKeepsState(t *testing.T) {
	api := &fakeBehaviorAPI{recordErr: errors.New("api down")}
	handler, messenger, states := newBehaviorFixture(api)
	states.states[testUser.ID] = "awaiting_checkin_stress"

	err := handler.HandleRating(context.Background(), testUser, "awaiting_checkin_stress", "4")
	if err == nil {
		t.Fatal("HandleRating() should surface the record error")
	}

	if states.states[testUser.ID] != "awaiting_checkin_stress" {
		t.Error("state should stay pending so the user can retry")
	}
	if len(states.entries) != 0 {
		t.Error("no local entry should be written on remote failure")
	}
	if !strings.Contains(messenger.last(), "erreur d'enregistrement") {
		t.Errorf("reply = %q, want error notice", messenger.last())
	}
}

func TestBehavior_RatingStaleTagClears(t *testing.T) {
	handler, messenger, states := newBehaviorFixture(&fakeBehaviorAPI{})
	states.states[testUser.ID] = "awaiting_checkin_happiness"

	if err := handler.HandleRating(context.Background(), testUser, "awaiting_checkin_happiness", "7"); err != nil {
		t.Fatalf("HandleRating() error = %v", err)
	}

	if _, ok := states.states[testUser.ID]; ok {
		t.Error("a stale tag should be cleared")
	}
	if len(messenger.sent) != 0 {
		t.Errorf("no reply expected for a stale tag, got %q", messenger.last())
	}
}
