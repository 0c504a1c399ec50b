package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ticketwise/internal/config"
	"ticketwise/internal/db"
	"ticketwise/internal/engine"
	"ticketwise/internal/estimator"
	"ticketwise/internal/events"
	"ticketwise/internal/migrate"
	"ticketwise/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

type scriptedInvoker struct {
	reply string
	err   error
}

func (s scriptedInvoker) Generate(_ context.Context, _ string) (string, error) {
	return s.reply, s.err
}

func newTestEnv(t *testing.T, inv estimator.Invoker) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	if inv != nil {
		eng.Estimator = estimator.New(inv, nil)
	}
	return testEnv{Engine: eng, Ctx: context.Background()}
}

const modelReply = `{
	"title": "Add user email login",
	"estimated_time": "3 days",
	"priority": "High",
	"complexity_level": "Medium",
	"dependencies": ["User table migration"],
	"required_access": ["PostgreSQL Database Admin Rights"],
	"suggested_labels": ["feature", "auth"],
	"reasoning": "Phase 1: ok"
}`

func TestCreateTicketDefaults(t *testing.T) {
	env := newTestEnv(t, nil)
	ticket, err := env.Engine.CreateTicket(env.Ctx, engine.TicketCreateOptions{
		Description: "set up the staging database for the reporting team",
		Priority:    "HIGH",
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if ticket.Status != "new" {
		t.Fatalf("status = %q, want new", ticket.Status)
	}
	if ticket.Priority != "high" {
		t.Fatalf("priority = %q, want high", ticket.Priority)
	}
	if ticket.EstimatedTime != "TBD" {
		t.Fatalf("estimated_time = %q, want TBD", ticket.EstimatedTime)
	}
	if ticket.Title != "Set up the staging database for" {
		t.Fatalf("title = %q", ticket.Title)
	}
	if ticket.TicketID == "" || ticket.TicketNumber == "" {
		t.Fatalf("missing identity: %+v", ticket)
	}

	got, err := env.Engine.Repo.GetTicket(env.Ctx, ticket.TicketID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if got.Title != ticket.Title || got.Status != "new" {
		t.Fatalf("persisted ticket mismatch: %+v", got)
	}
	if got.Tags == nil || got.AccessRequired == nil || got.Dependencies == nil {
		t.Fatalf("list fields must round-trip non-nil: %+v", got)
	}

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, events.TypeTicketCreated, "", "")
	if err != nil {
		t.Fatalf("latest events: %v", err)
	}
	if len(evts) != 1 || evts[0].EntityID != ticket.TicketID {
		t.Fatalf("expected one ticket.created event, got %+v", evts)
	}
}

func TestCreateTicketRequiresDescription(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.Engine.CreateTicket(env.Ctx, engine.TicketCreateOptions{Description: "   "}); err == nil {
		t.Fatal("expected error for empty description")
	}
}

func TestCreateTicketDuplicateID(t *testing.T) {
	env := newTestEnv(t, nil)
	opts := engine.TicketCreateOptions{Description: "same task text"}
	if _, err := env.Engine.CreateTicket(env.Ctx, opts); err != nil {
		t.Fatalf("first create: %v", err)
	}
	// same description derives the same ticket_id
	if _, err := env.Engine.CreateTicket(env.Ctx, opts); err == nil {
		t.Fatal("expected primary key conflict for duplicate ticket_id")
	}
}

func TestEstimateRejectsEmptyTask(t *testing.T) {
	env := newTestEnv(t, scriptedInvoker{reply: modelReply})
	if _, err := env.Engine.Estimate(env.Ctx, "  \n "); err == nil {
		t.Fatal("expected error for empty task")
	}
}

func TestEstimateAppendsEvents(t *testing.T) {
	env := newTestEnv(t, scriptedInvoker{reply: modelReply})
	resp, err := env.Engine.Estimate(env.Ctx, "Add user login with email and password")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if !resp.Success || resp.Title != "Add user email login" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, events.TypeEstimateRequested, "ticket", resp.TicketID)
	if err != nil {
		t.Fatalf("latest events: %v", err)
	}
	if len(evts) != 1 {
		t.Fatalf("expected one estimate.requested event, got %d", len(evts))
	}
}

func TestEstimateDegradedAppendsEvent(t *testing.T) {
	env := newTestEnv(t, scriptedInvoker{reply: "not json at all"})
	resp, err := env.Engine.Estimate(env.Ctx, "Refactor the billing exporter")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if !resp.Degraded {
		t.Fatalf("expected degraded estimate, got %+v", resp)
	}
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, events.TypeEstimateDegraded, "", "")
	if err != nil {
		t.Fatalf("latest events: %v", err)
	}
	if len(evts) != 1 {
		t.Fatalf("expected one estimate.degraded event, got %d", len(evts))
	}
}

func TestCreateTicketFromEstimate(t *testing.T) {
	env := newTestEnv(t, scriptedInvoker{reply: modelReply})
	resp, err := env.Engine.Estimate(env.Ctx, "Add user login with email and password")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	ticket, err := env.Engine.CreateTicketFromEstimate(env.Ctx, resp)
	if err != nil {
		t.Fatalf("create from estimate: %v", err)
	}
	if ticket.TicketID != resp.TicketID || ticket.TicketNumber != resp.TicketNumber {
		t.Fatalf("identity must carry over: %+v vs %+v", ticket, resp)
	}
	if ticket.Priority != "high" {
		t.Fatalf("priority = %q, want high", ticket.Priority)
	}
	if ticket.EstimatedTime != "3 days" {
		t.Fatalf("estimated_time = %q", ticket.EstimatedTime)
	}
	if len(ticket.Tags) != 2 || ticket.Tags[0] != "feature" {
		t.Fatalf("tags = %v", ticket.Tags)
	}
}

func TestCreateTicketFromFailedEstimate(t *testing.T) {
	env := newTestEnv(t, scriptedInvoker{err: errors.New("invalid API key")})
	resp, err := env.Engine.Estimate(env.Ctx, "Add user login")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if resp.Success {
		t.Fatal("expected failed envelope")
	}
	if _, err := env.Engine.CreateTicketFromEstimate(env.Ctx, resp); err == nil {
		t.Fatal("expected refusal to create from failed estimate")
	}
}

func TestListTicketsStatusFilter(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, desc := range []string{"task one", "task two"} {
		if _, err := env.Engine.CreateTicket(env.Ctx, engine.TicketCreateOptions{Description: desc}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	all, err := env.Engine.Repo.ListTickets(env.Ctx, repo.TicketFilters{})
	if err != nil || len(all) != 2 {
		t.Fatalf("list all: %v (%d)", err, len(all))
	}
	filtered, err := env.Engine.Repo.ListTickets(env.Ctx, repo.TicketFilters{Status: "new"})
	if err != nil || len(filtered) != 2 {
		t.Fatalf("list new: %v (%d)", err, len(filtered))
	}
	none, err := env.Engine.Repo.ListTickets(env.Ctx, repo.TicketFilters{Status: "closed"})
	if err != nil || len(none) != 0 {
		t.Fatalf("list closed: %v (%d)", err, len(none))
	}
	counts, err := env.Engine.Repo.CountTicketsByStatus(env.Ctx)
	if err != nil || counts["new"] != 2 {
		t.Fatalf("counts: %v %v", err, counts)
	}
}
