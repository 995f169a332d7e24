package agent

import (
	"context"
	"time"

	"github.com/productif-io/assistant/internal/convstate"
	"github.com/productif-io/assistant/internal/restapi"
	"github.com/productif-io/assistant/pkg/flexmatch"
)

func testMatcher() *flexmatch.Matcher {
	catalog, err := flexmatch.DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return flexmatch.NewMatcher(catalog)
}

// fakeMessenger records every message sent.
type fakeMessenger struct {
	sent []sentMessage
	err  error
}

type sentMessage struct {
	to   string
	body string
}

func (f *fakeMessenger) SendText(ctx context.Context, to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{to: to, body: body})
	return nil
}

func (f *fakeMessenger) last() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].body
}

// fakeStates is an in-memory StateStore.
type fakeStates struct {
	states  map[string]string
	entries []convstate.Entry
}

func newFakeStates() *fakeStates {
	return &fakeStates{states: make(map[string]string)}
}

func (f *fakeStates) GetState(ctx context.Context, userID string) (*convstate.Record, error) {
	state, ok := f.states[userID]
	if !ok {
		return nil, convstate.ErrNotFound
	}
	return &convstate.Record{UserID: userID, State: state, UpdatedAt: time.Now()}, nil
}

func (f *fakeStates) SetState(ctx context.Context, userID, state, data string) error {
	f.states[userID] = state
	return nil
}

func (f *fakeStates) ClearState(ctx context.Context, userID string) error {
	delete(f.states, userID)
	return nil
}

func (f *fakeStates) RecordCheckIn(ctx context.Context, userID, checkInType string, value int, triggeredBy string) (*convstate.Entry, error) {
	entry := convstate.Entry{
		ID:          "entry",
		UserID:      userID,
		Type:        checkInType,
		Value:       value,
		TriggeredBy: triggeredBy,
		CreatedAt:   time.Now(),
	}
	f.entries = append(f.entries, entry)
	return &entry, nil
}

// fakeSessionAPI returns canned deep-work sessions.
type fakeSessionAPI struct {
	active    *restapi.Session
	activeErr error

	started        *restapi.Session
	startedErr     error
	startedMinutes int

	stopped   *restapi.Session
	stopErr   error
	paused    *restapi.Session
	pauseErr  error
	resumed   *restapi.Session
	resumeErr error
	recent    []restapi.Session
}

func (f *fakeSessionAPI) StartSession(ctx context.Context, userID string, minutes int) (*restapi.Session, error) {
	f.startedMinutes = minutes
	return f.started, f.startedErr
}

func (f *fakeSessionAPI) StopSession(ctx context.Context, userID string) (*restapi.Session, error) {
	return f.stopped, f.stopErr
}

func (f *fakeSessionAPI) PauseSession(ctx context.Context, userID string) (*restapi.Session, error) {
	return f.paused, f.pauseErr
}

func (f *fakeSessionAPI) ResumeSession(ctx context.Context, userID string) (*restapi.Session, error) {
	return f.resumed, f.resumeErr
}

func (f *fakeSessionAPI) ActiveSession(ctx context.Context, userID string) (*restapi.Session, error) {
	return f.active, f.activeErr
}

func (f *fakeSessionAPI) RecentSessions(ctx context.Context, userID string, limit int) ([]restapi.Session, error) {
	return f.recent, nil
}

// fakeJournalAPI records journal calls.
type fakeJournalAPI struct {
	entry      *restapi.JournalEntry
	entryErr   error
	gotContent string
	gotSource  string
	summary    string
	summaryErr error
}

func (f *fakeJournalAPI) CreateJournalEntry(ctx context.Context, userID, content, source string) (*restapi.JournalEntry, error) {
	f.gotContent = content
	f.gotSource = source
	if f.entryErr != nil {
		return nil, f.entryErr
	}
	if f.entry != nil {
		return f.entry, nil
	}
	return &restapi.JournalEntry{ID: "e1", Content: content, Source: source}, nil
}

func (f *fakeJournalAPI) JournalSummary(ctx context.Context, userID string) (string, error) {
	return f.summary, f.summaryErr
}

// fakeBehaviorAPI records check-in calls.
type fakeBehaviorAPI struct {
	recordErr   error
	gotType     string
	gotValue    int
	analysis    string
	analysisErr error
	trends      string
	trendsErr   error
}

func (f *fakeBehaviorAPI) RecordCheckIn(ctx context.Context, userID, checkinType string, value int) error {
	f.gotType = checkinType
	f.gotValue = value
	return f.recordErr
}

func (f *fakeBehaviorAPI) BehaviorAnalysis(ctx context.Context, userID string) (string, error) {
	return f.analysis, f.analysisErr
}

func (f *fakeBehaviorAPI) BehaviorTrends(ctx context.Context, userID string) (string, error) {
	return f.trends, f.trendsErr
}

// fakePlanningAPI records planning calls.
type fakePlanningAPI struct {
	created  int
	err      error
	gotInput string
}

func (f *fakePlanningAPI) PlanTomorrow(ctx context.Context, userID, input string) (int, error) {
	f.gotInput = input
	return f.created, f.err
}

// fakeHabitsAPI returns canned habits.
type fakeHabitsAPI struct {
	habits []restapi.Habit
	err    error
}

func (f *fakeHabitsAPI) ListHabits(ctx context.Context, userID string) ([]restapi.Habit, error) {
	return f.habits, f.err
}

// fakeFetcher returns canned media.
type fakeFetcher struct {
	data     []byte
	mimeType string
	err      error
}

func (f *fakeFetcher) FetchMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	return f.data, f.mimeType, f.err
}

// fakeTranscriber returns a canned transcript.
type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return f.text, f.err
}

// fakeArchiver records archive calls.
type fakeArchiver struct {
	key      string
	err      error
	archived bool
}

func (f *fakeArchiver) Archive(ctx context.Context, userID, messageID string, audio []byte, mimeType string) (string, error) {
	f.archived = true
	return f.key, f.err
}

var testUser = User{ID: "user-1", Phone: "33612345678"}
