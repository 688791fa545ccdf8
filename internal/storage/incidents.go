package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ashita-ai/monban/internal/model"
)

// CreateIncident persists a new incident and assigns it the next
// sequential ID for the user ("BUG-00001" for their first report).
// Level, category, status, and the normalized hash must already be
// set by the caller.
func (s *DB) CreateIncident(ctx context.Context, inc model.Incident) (model.Incident, error) {
	if !model.ValidLevel(inc.Level) {
		return model.Incident{}, model.ErrInvalidLevel
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Incident{}, fmt.Errorf("storage: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM incidents WHERE user_id = ?`, inc.UserID,
	).Scan(&count); err != nil {
		return model.Incident{}, fmt.Errorf("storage: count incidents: %w", err)
	}

	now := time.Now().UTC()
	inc.ID = fmt.Sprintf("BUG-%05d", count+1)
	inc.CreatedAt = now
	inc.UpdatedAt = now
	if inc.Status == "" {
		inc.Status = model.StatusOpen
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO incidents
			(id, user_id, category, description, date_observed, level, status, normalized_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID, inc.UserID, inc.Category, inc.Description, inc.DateObserved,
		inc.Level, inc.Status, inc.NormalizedHash, inc.CreatedAt, inc.UpdatedAt,
	); err != nil {
		return model.Incident{}, fmt.Errorf("storage: insert incident: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Incident{}, fmt.Errorf("storage: commit: %w", err)
	}

	s.logger.Info("storage: incident created",
		"incident_id", inc.ID, "user_id", inc.UserID, "level", inc.Level)
	return inc, nil
}

// GetIncident fetches one incident by user and ID.
func (s *DB) GetIncident(ctx context.Context, userID, id string) (model.Incident, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, category, description, date_observed, level, status, normalized_hash, created_at, updated_at
		 FROM incidents WHERE user_id = ? AND id = ?`, userID, id)
	inc, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Incident{}, ErrNotFound
	}
	if err != nil {
		return model.Incident{}, fmt.Errorf("storage: get incident %s/%s: %w", userID, id, err)
	}
	return inc, nil
}

// ListIncidents returns a user's incidents, newest first. An empty
// status lists all; limit <= 0 means no limit.
func (s *DB) ListIncidents(ctx context.Context, userID string, status model.Status, limit int) ([]model.Incident, error) {
	query := `SELECT id, user_id, category, description, date_observed, level, status, normalized_hash, created_at, updated_at
		 FROM incidents WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list incidents: %w", err)
	}
	defer rows.Close()
	return collectIncidents(rows)
}

// RecentIncidents returns the newest incidents across all users.
func (s *DB) RecentIncidents(ctx context.Context, limit int) ([]model.Incident, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, category, description, date_observed, level, status, normalized_hash, created_at, updated_at
		 FROM incidents ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: recent incidents: %w", err)
	}
	defer rows.Close()
	return collectIncidents(rows)
}

// OpenIncidents returns the user's incidents with Open or
// In Progress status, used for duplicate checks.
func (s *DB) OpenIncidents(ctx context.Context, userID string) ([]model.Incident, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, category, description, date_observed, level, status, normalized_hash, created_at, updated_at
		 FROM incidents WHERE user_id = ? AND status IN (?, ?) ORDER BY created_at`,
		userID, model.StatusOpen, model.StatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("storage: open incidents: %w", err)
	}
	defer rows.Close()
	return collectIncidents(rows)
}

// ResolvedIncidents returns the user's Resolved and Closed
// incidents, used for recurrence checks.
func (s *DB) ResolvedIncidents(ctx context.Context, userID string) ([]model.Incident, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, category, description, date_observed, level, status, normalized_hash, created_at, updated_at
		 FROM incidents WHERE user_id = ? AND status IN (?, ?) ORDER BY created_at`,
		userID, model.StatusResolved, model.StatusClosed)
	if err != nil {
		return nil, fmt.Errorf("storage: resolved incidents: %w", err)
	}
	defer rows.Close()
	return collectIncidents(rows)
}

// UpdateStatus changes an incident's lifecycle status.
func (s *DB) UpdateStatus(ctx context.Context, userID, id string, status model.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE incidents SET status = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		status, time.Now().UTC(), userID, id)
	if err != nil {
		return fmt.Errorf("storage: update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLevel changes an incident's severity level.
func (s *DB) UpdateLevel(ctx context.Context, userID, id string, level int) error {
	if !model.ValidLevel(level) {
		return model.ErrInvalidLevel
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE incidents SET level = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		level, time.Now().UTC(), userID, id)
	if err != nil {
		return fmt.Errorf("storage: update level: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertContact sets the user's notification email.
func (s *DB) UpsertContact(ctx context.Context, contact model.Contact) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (user_id, email) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET email = excluded.email`,
		contact.UserID, contact.Email)
	if err != nil {
		return fmt.Errorf("storage: upsert contact: %w", err)
	}
	return nil
}

// GetContact fetches the user's notification email.
func (s *DB) GetContact(ctx context.Context, userID string) (model.Contact, error) {
	var c model.Contact
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, email FROM contacts WHERE user_id = ?`, userID,
	).Scan(&c.UserID, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, ErrNotFound
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("storage: get contact: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (model.Incident, error) {
	var inc model.Incident
	err := row.Scan(
		&inc.ID, &inc.UserID, &inc.Category, &inc.Description, &inc.DateObserved,
		&inc.Level, &inc.Status, &inc.NormalizedHash, &inc.CreatedAt, &inc.UpdatedAt,
	)
	return inc, err
}

func collectIncidents(rows *sql.Rows) ([]model.Incident, error) {
	var out []model.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan incident: %w", err)
		}
		out = append(out, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate incidents: %w", err)
	}
	return out, nil
}
