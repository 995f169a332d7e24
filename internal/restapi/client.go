// Package restapi is the JSON client for the Productif REST API. Handlers
// record deep-work sessions, journal entries and behavior check-ins through
// it. Requests carry bearer authentication; transient failures (429, 5xx)
// are retried with exponential backoff.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/productif-io/assistant/internal/config"
)

// ErrNotFound is returned when the API reports no matching resource,
// e.g. no active deep-work session.
var ErrNotFound = errors.New("resource not found")

// Session is a deep-work session as reported by the API.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Status         string    `json:"status"` // active, paused, completed
	PlannedMinutes int       `json:"plannedMinutes"`
	ElapsedMinutes int       `json:"elapsedMinutes"`
	Interruptions  int       `json:"interruptions"`
	StartedAt      time.Time `json:"startedAt"`
}

// JournalEntry is a created journal entry.
type JournalEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	Source    string    `json:"source"` // text, voice
	CreatedAt time.Time `json:"createdAt"`
}

// Habit is a tracked habit with its completion state for today.
type Habit struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DoneToday bool   `json:"doneToday"`
	Streak    int    `json:"streak"`
}

// Client calls the Productif REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a client from configuration.
func NewClient(cfg config.APIConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
	}
}

// StartSession starts a deep-work session of the given length.
func (c *Client) StartSession(ctx context.Context, userID string, minutes int) (*Session, error) {
	var session Session
	err := c.doJSON(ctx, http.MethodPost, "/api/deep-work/sessions", map[string]any{
		"userId":         userID,
		"plannedMinutes": minutes,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// StopSession ends the user's active deep-work session.
func (c *Client) StopSession(ctx context.Context, userID string) (*Session, error) {
	var session Session
	err := c.doJSON(ctx, http.MethodPost, "/api/deep-work/sessions/stop", map[string]any{
		"userId": userID,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// PauseSession pauses the user's active deep-work session.
func (c *Client) PauseSession(ctx context.Context, userID string) (*Session, error) {
	var session Session
	err := c.doJSON(ctx, http.MethodPost, "/api/deep-work/sessions/pause", map[string]any{
		"userId": userID,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ResumeSession resumes the user's paused deep-work session.
func (c *Client) ResumeSession(ctx context.Context, userID string) (*Session, error) {
	var session Session
	err := c.doJSON(ctx, http.MethodPost, "/api/deep-work/sessions/resume", map[string]any{
		"userId": userID,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ActiveSession returns the user's current session.
// Returns ErrNotFound when no session is running.
func (c *Client) ActiveSession(ctx context.Context, userID string) (*Session, error) {
	var session Session
	err := c.doJSON(ctx, http.MethodGet, "/api/deep-work/sessions/active?userId="+userID, nil, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateJournalEntry records a journal entry for the user.
// Source is "text" or "voice".
func (c *Client) CreateJournalEntry(ctx context.Context, userID, content, source string) (*JournalEntry, error) {
	var entry JournalEntry
	err := c.doJSON(ctx, http.MethodPost, "/api/journal/entries", map[string]any{
		"userId":  userID,
		"content": content,
		"source":  source,
	}, &entry)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// JournalSummary returns the user's recent journal summary text.
func (c *Client) JournalSummary(ctx context.Context, userID string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/journal/summary?userId="+userID, nil, &out)
	if err != nil {
		return "", err
	}
	return out.Summary, nil
}

// RecordCheckIn records a behavior check-in rating.
func (c *Client) RecordCheckIn(ctx context.Context, userID, checkinType string, value int) error {
	return c.doJSON(ctx, http.MethodPost, "/api/behavior/check-ins", map[string]any{
		"userId": userID,
		"type":   checkinType,
		"value":  value,
	}, nil)
}

// BehaviorAnalysis returns the user's 7-day behavior analysis text.
func (c *Client) BehaviorAnalysis(ctx context.Context, userID string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/behavior/analysis?userId="+userID+"&days=7", nil, &out)
	if err != nil {
		return "", err
	}
	return out.Summary, nil
}

// BehaviorTrends returns the user's behavior trend summary text.
func (c *Client) BehaviorTrends(ctx context.Context, userID string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/behavior/trends?userId="+userID, nil, &out)
	if err != nil {
		return "", err
	}
	return out.Summary, nil
}

// ListHabits returns the user's habits with today's completion state.
func (c *Client) ListHabits(ctx context.Context, userID string) ([]Habit, error) {
	var out struct {
		Habits []Habit `json:"habits"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/habits?userId="+userID, nil, &out)
	if err != nil {
		return nil, err
	}
	return out.Habits, nil
}

// PlanTomorrow submits the user's free-form task list for the next day and
// returns the number of tasks created.
func (c *Client) PlanTomorrow(ctx context.Context, userID, input string) (int, error) {
	var out struct {
		TasksCreated int `json:"tasksCreated"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/tasks/plan", map[string]any{
		"userId": userID,
		"input":  input,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.TasksCreated, nil
}

// RecentSessions returns the user's most recent completed deep-work sessions.
func (c *Client) RecentSessions(ctx context.Context, userID string, limit int) ([]Session, error) {
	var out struct {
		Sessions []Session `json:"sessions"`
	}
	path := fmt.Sprintf("/api/deep-work/sessions?userId=%s&status=completed&limit=%d", userID, limit)
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	if err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// doJSON performs a request with bearer auth and decodes the response into
// out (when non-nil). 429 and 5xx are retried with exponential backoff;
// 404 maps to ErrNotFound.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return retry.RetryableError(fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg)))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}
