package db

import (
	"context"
	"testing"
)

func TestOpen(t *testing.T) {
	t.Run("creates database and runs migrations", func(t *testing.T) {
		dbPath := t.TempDir() + "/retriever.db"
		database, err := Open(dbPath)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		t.Cleanup(func() { _ = database.Close() })

		if database.Path() != dbPath {
			t.Errorf("Path() = %q, want %q", database.Path(), dbPath)
		}

		// drafts table exists after migration.
		ctx := context.Background()
		var count int
		row := database.QueryRowContext(ctx, "SELECT COUNT(*) FROM drafts")
		if err := row.Scan(&count); err != nil {
			t.Fatalf("querying drafts: %v", err)
		}
		if count != 0 {
			t.Errorf("drafts count = %d, want 0", count)
		}
	})

	t.Run("reopening is idempotent", func(t *testing.T) {
		dbPath := t.TempDir() + "/retriever.db"
		first, err := Open(dbPath)
		if err != nil {
			t.Fatalf("first Open() error = %v", err)
		}
		if err := first.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		second, err := Open(dbPath)
		if err != nil {
			t.Fatalf("second Open() error = %v", err)
		}
		_ = second.Close()
	})
}
