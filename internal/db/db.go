package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	workspaceDir  = ".ticketwise"
	defaultDBName = "ticketwise.db"
)

// Config selects where the database lives. An explicit Path wins over the
// workspace layout.
type Config struct {
	Workspace string
	Path      string
}

func (c Config) file() string {
	if c.Path != "" {
		return c.Path
	}
	ws := c.Workspace
	if ws == "" {
		ws = "."
	}
	return filepath.Join(ws, workspaceDir, defaultDBName)
}

// EnsureWorkspace creates the workspace data directory if missing.
func EnsureWorkspace(workspace string) (string, error) {
	path := filepath.Join(workspace, workspaceDir)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create workspace %s: %w", path, err)
	}
	return path, nil
}

// Open opens the SQLite database, creating its directory first. WAL lets
// readers proceed while a write transaction is open; busy_timeout covers the
// writer contention that remains.
func Open(cfg Config) (*sql.DB, error) {
	file := cfg.file()
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory %s: %w", filepath.Dir(file), err)
	}
	conn, err := sql.Open("sqlite", dsn(file))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", file, err)
	}
	return conn, nil
}

func dsn(file string) string {
	return "file:" + file +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)"
}
