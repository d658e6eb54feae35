package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"safestep/internal/dto"
	"safestep/internal/model"
)

// EventRepository implements repository.EventRepository for SQLite.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert adds a new event. A zero CreatedAt is set to the current time.
func (r *EventRepository) Insert(event *model.Event) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	// Timestamps are compared as text, so keep them all in UTC.
	event.CreatedAt = event.CreatedAt.UTC()

	result, err := r.db.Conn().Exec(`
		INSERT INTO events (camera, detected, confidence, snapshot, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, event.Camera, event.Detected, event.Confidence, event.Snapshot, event.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	event.ID = id
	return id, nil
}

// List returns events matching the filter, newest first.
func (r *EventRepository) List(filter *dto.EventFilter) ([]model.Event, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := eventConditions(filter)
	query := `SELECT id, camera, detected, confidence, snapshot, created_at FROM events` + where
	query += " ORDER BY created_at DESC, id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Camera, &e.Detected, &e.Confidence, &e.Snapshot, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// eventConditions builds the WHERE clause shared by List and Count.
func eventConditions(filter *dto.EventFilter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var conditions []string
	var args []interface{}

	if filter.Camera != "" {
		conditions = append(conditions, "camera = ?")
		args = append(args, filter.Camera)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	if filter.Detected != nil {
		conditions = append(conditions, "detected = ?")
		args = append(args, *filter.Detected)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Latest returns the most recent event or ErrNotFound.
func (r *EventRepository) Latest() (*model.Event, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var e model.Event
	err := r.db.Conn().QueryRow(`
		SELECT id, camera, detected, confidence, snapshot, created_at
		FROM events ORDER BY created_at DESC, id DESC LIMIT 1
	`).Scan(&e.ID, &e.Camera, &e.Detected, &e.Confidence, &e.Snapshot, &e.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest event: %w", err)
	}
	return &e, nil
}

// Count returns the number of events matching the filter; nil counts all.
func (r *EventRepository) Count(filter *dto.EventFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := eventConditions(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM events`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// DeleteBefore removes events older than t and returns how many were deleted.
func (r *EventRepository) DeleteBefore(t time.Time) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM events WHERE created_at < ?`, t.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	return result.RowsAffected()
}
