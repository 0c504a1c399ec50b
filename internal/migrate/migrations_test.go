package migrate_test

import (
	"context"
	"testing"

	"ticketwise/internal/db"
	"ticketwise/internal/migrate"
)

func TestMigrateIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	v, err := migrate.Version(ctx, conn)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v < 1 {
		t.Fatalf("version = %d, want >= 1", v)
	}

	// running again must be a no-op, not a re-apply
	if err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	v2, err := migrate.Version(ctx, conn)
	if err != nil {
		t.Fatalf("version after rerun: %v", err)
	}
	if v2 != v {
		t.Fatalf("version changed on rerun: %d -> %d", v, v2)
	}

	for _, table := range []string{"tickets", "events"} {
		var count int
		if err := conn.QueryRowContext(ctx, `SELECT count(*) FROM `+table).Scan(&count); err != nil {
			t.Fatalf("table %s missing after migrate: %v", table, err)
		}
	}
}
