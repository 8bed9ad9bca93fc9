package votecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS votes (
	event_id TEXT PRIMARY KEY,
	plan_id TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLite is a durable Cache backed by a local database file.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open vote cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init vote cache schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, eventID string) (string, bool, error) {
	var planID string
	err := s.db.QueryRowContext(ctx, `SELECT plan_id FROM votes WHERE event_id = ?`, eventID).Scan(&planID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return planID, true, nil
}

func (s *SQLite) Set(ctx context.Context, eventID, planID string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO votes (event_id, plan_id) VALUES (?, ?)
ON CONFLICT (event_id) DO UPDATE SET plan_id = excluded.plan_id, updated_at = CURRENT_TIMESTAMP`,
		eventID, planID)
	return err
}

func (s *SQLite) Clear(ctx context.Context, eventID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM votes WHERE event_id = ?`, eventID)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
