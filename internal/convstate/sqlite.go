// Package convstate persists per-user conversation state, recorded
// check-ins, and check-in schedules in SQLite.
package convstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Record is one user's conversation state: a state tag plus opaque data.
type Record struct {
	UserID    string
	State     string
	Data      string
	UpdatedAt time.Time
}

// Entry is one recorded check-in rating.
type Entry struct {
	ID          string
	UserID      string
	Type        string
	Value       int
	TriggeredBy string
	CreatedAt   time.Time
}

// Schedule configures scheduled check-in prompts for a user.
type Schedule struct {
	UserID      string
	PhoneNumber string
	Enabled     bool
	Types       []string
	Interval    time.Duration
	LastSentAt  *time.Time
}

// SQLiteStore is the SQLite-backed conversation store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the database at dbPath,
// enables WAL mode, and applies migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetState returns the conversation state for a user, or ErrNotFound.
func (s *SQLiteStore) GetState(ctx context.Context, userID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, state, data, updated_at
		FROM conversation_state
		WHERE user_id = ?
	`, userID)

	var rec Record
	var updatedAt string
	if err := row.Scan(&rec.UserID, &rec.State, &rec.Data, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan conversation state: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		rec.UpdatedAt = t
	}

	return &rec, nil
}

// SetState upserts the conversation state for a user.
func (s *SQLiteStore) SetState(ctx context.Context, userID, state, data string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_state (user_id, state, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			state = excluded.state,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, userID, state, data, now)
	if err != nil {
		return fmt.Errorf("set conversation state: %w", err)
	}
	return nil
}

// ClearState removes the conversation state for a user. Clearing an absent
// record is not an error.
func (s *SQLiteStore) ClearState(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversation_state WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear conversation state: %w", err)
	}
	return nil
}

// RecordCheckIn stores a validated check-in rating and returns it with its
// generated ID.
func (s *SQLiteStore) RecordCheckIn(ctx context.Context, userID, checkInType string, value int, triggeredBy string) (*Entry, error) {
	entry := Entry{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Type:        checkInType,
		Value:       value,
		TriggeredBy: triggeredBy,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkin_entries (id, user_id, type, value, triggered_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.UserID, entry.Type, entry.Value, entry.TriggeredBy, entry.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert check-in: %w", err)
	}

	return &entry, nil
}

// ListCheckIns returns a user's check-ins since the given time, most recent
// first.
func (s *SQLiteStore) ListCheckIns(ctx context.Context, userID string, since time.Time) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, value, triggered_by, created_at
		FROM checkin_entries
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`, userID, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query check-ins: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Type, &entry.Value, &entry.TriggeredBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			entry.CreatedAt = t
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check-ins: %w", err)
	}

	return entries, nil
}

// UpsertSchedule creates or replaces a user's check-in schedule.
func (s *SQLiteStore) UpsertSchedule(ctx context.Context, sched Schedule) error {
	typesJSON, err := json.Marshal(sched.Types)
	if err != nil {
		return fmt.Errorf("marshal schedule types: %w", err)
	}

	enabled := 0
	if sched.Enabled {
		enabled = 1
	}

	var lastSent any
	if sched.LastSentAt != nil {
		lastSent = sched.LastSentAt.UTC().Format(time.RFC3339)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkin_schedules (user_id, phone_number, enabled, types, interval_s, last_sent_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			phone_number = excluded.phone_number,
			enabled = excluded.enabled,
			types = excluded.types,
			interval_s = excluded.interval_s,
			last_sent_at = excluded.last_sent_at
	`, sched.UserID, sched.PhoneNumber, enabled, string(typesJSON), int64(sched.Interval.Seconds()), lastSent)
	if err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}
	return nil
}

// DueSchedules returns enabled schedules whose interval has elapsed since
// their last prompt (or that have never been prompted).
func (s *SQLiteStore) DueSchedules(ctx context.Context, now time.Time) ([]Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, phone_number, enabled, types, interval_s, last_sent_at
		FROM checkin_schedules
		WHERE enabled = 1
	`)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	var due []Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		if sched.LastSentAt == nil || now.Sub(*sched.LastSentAt) >= sched.Interval {
			due = append(due, *sched)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}

	return due, nil
}

// MarkScheduleSent records that a prompt went out now, resetting the
// schedule's interval clock.
func (s *SQLiteStore) MarkScheduleSent(ctx context.Context, userID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE checkin_schedules SET last_sent_at = ? WHERE user_id = ?
	`, at.UTC().Format(time.RFC3339), userID)
	if err != nil {
		return fmt.Errorf("mark schedule sent: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSchedule(scanner interface{ Scan(...any) error }) (*Schedule, error) {
	var sched Schedule
	var enabled int
	var typesJSON string
	var intervalSeconds int64
	var lastSent sql.NullString

	if err := scanner.Scan(&sched.UserID, &sched.PhoneNumber, &enabled, &typesJSON, &intervalSeconds, &lastSent); err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}

	sched.Enabled = enabled != 0
	sched.Interval = time.Duration(intervalSeconds) * time.Second

	if typesJSON != "" {
		if err := json.Unmarshal([]byte(typesJSON), &sched.Types); err != nil {
			return nil, fmt.Errorf("parse schedule types: %w", err)
		}
	}

	if lastSent.Valid {
		if t, err := time.Parse(time.RFC3339, lastSent.String); err == nil {
			sched.LastSentAt = &t
		}
	}

	return &sched, nil
}
