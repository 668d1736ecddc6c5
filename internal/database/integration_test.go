package database

import (
	"context"
	"path/filepath"
	"testing"
)

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "integration.db")

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	tables := []string{"users", "families", "family_members", "family_invitations", "tasks", "task_assignees"}
	for _, table := range tables {
		query := "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
		var name string
		if err := db.QueryRowContext(ctx, query, table).Scan(&name); err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Running migrations a second time is a no-op
	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 recorded migration, got %d", count)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := Initialize(filepath.Join(t.TempDir(), "transactions.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	insert := `INSERT INTO families (id, name, created_by, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`

	t.Run("rollback", func(t *testing.T) {
		err := db.WithTx(ctx, func(tx *Tx) error {
			if _, err := tx.ExecContext(ctx, insert, "fam-rollback", "Rolled", "u1"); err != nil {
				return err
			}
			return context.Canceled
		})
		if err != context.Canceled {
			t.Fatalf("WithTx() error = %v, want context.Canceled", err)
		}

		var count int
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM families WHERE id = ?", "fam-rollback").Scan(&count)
		if count != 0 {
			t.Errorf("expected rolled back insert, found %d rows", count)
		}
	})

	t.Run("commit", func(t *testing.T) {
		err := db.WithTx(ctx, func(tx *Tx) error {
			_, err := tx.ExecContext(ctx, insert, "fam-commit", "Committed", "u1")
			return err
		})
		if err != nil {
			t.Fatalf("WithTx() error = %v", err)
		}

		var name string
		if err := db.QueryRowContext(ctx, "SELECT name FROM families WHERE id = ?", "fam-commit").Scan(&name); err != nil {
			t.Fatalf("committed row not found: %v", err)
		}
		if name != "Committed" {
			t.Errorf("name = %q", name)
		}
	})
}
