package db_test

import (
	"os"
	"path/filepath"
	"testing"

	"ticketwise/internal/db"
)

func TestOpenWorkspaceLayout(t *testing.T) {
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := conn.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".ticketwise", "ticketwise.db")); err != nil {
		t.Fatalf("db file not created in workspace layout: %v", err)
	}

	var fk int
	if err := conn.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("read foreign_keys pragma: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}
	var mode string
	if err := conn.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("read journal_mode pragma: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}
}

func TestOpenExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tickets.db")
	conn, err := db.Open(db.Config{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := conn.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created at explicit path: %v", err)
	}
}
