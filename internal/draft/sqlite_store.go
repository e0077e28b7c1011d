package draft

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/myretriever/retriever/internal/db"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new SQLite-backed draft store.
func NewSQLiteStore(database *db.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

// Get returns the stored text for key, or "" when none exists.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var text string
	row := s.db.QueryRowContext(ctx, "SELECT text FROM drafts WHERE key = ?", key)
	if err := row.Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("reading draft: %w", err)
	}
	return text, nil
}

// Set persists text for key, replacing any prior value.
func (s *SQLiteStore) Set(ctx context.Context, key, text string) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO drafts (key, text, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET text = excluded.text, updated_at = excluded.updated_at`,
		key, text, now)
	if err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}
	return nil
}

// Delete removes the draft for key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	return nil
}
