package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketwise/internal/config"
	"ticketwise/internal/domain"
	"ticketwise/internal/estimator"
	"ticketwise/internal/events"
	"ticketwise/internal/repo"
)

type Engine struct {
	DB        *sql.DB
	Repo      repo.Repo
	Events    events.Writer
	Estimator *estimator.Service
	Config    *config.Config
	Now       func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Estimate runs the estimation pipeline for one task description and records
// the request in the event log. An empty task is rejected before the model is
// ever invoked.
func (e Engine) Estimate(ctx context.Context, task string) (domain.EstimateResponse, error) {
	if strings.TrimSpace(task) == "" {
		return domain.EstimateResponse{}, errors.New("task description is required")
	}
	if e.Estimator == nil {
		return domain.EstimateResponse{}, errors.New("estimator not configured")
	}

	resp := e.Estimator.Estimate(ctx, task)

	evtType := events.TypeEstimateRequested
	payload := events.EventPayload{"success": resp.Success, "title": resp.Title}
	if err := e.appendEvent(ctx, evtType, "ticket", resp.TicketID, payload); err != nil {
		return resp, err
	}
	if resp.Degraded {
		if err := e.appendEvent(ctx, events.TypeEstimateDegraded, "ticket", resp.TicketID, nil); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

// TicketCreateOptions are parameters for materializing a ticket.
type TicketCreateOptions struct {
	TicketID       string
	TicketNumber   string
	Title          string
	Description    string
	Priority       string
	EstimatedTime  string
	Tags           []string
	AccessRequired []string
	Dependencies   []string
}

// CreateTicket materializes a ticket row. Missing identity and title fields
// are derived from the description; priority is stored lowercased.
func (e Engine) CreateTicket(ctx context.Context, opts TicketCreateOptions) (domain.Ticket, error) {
	if e.Config == nil {
		return domain.Ticket{}, errors.New("config not loaded")
	}
	if strings.TrimSpace(opts.Description) == "" {
		return domain.Ticket{}, errors.New("description is required")
	}
	ticketID := opts.TicketID
	if ticketID == "" {
		ticketID = estimator.TicketID(opts.Description)
	}
	ticketNumber := opts.TicketNumber
	if ticketNumber == "" {
		ticketNumber = estimator.TicketNumber()
	}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = estimator.ShortTitle(opts.Description)
	}
	priority := strings.ToLower(strings.TrimSpace(opts.Priority))
	if priority == "" {
		priority = "medium"
	}
	estimatedTime := opts.EstimatedTime
	if estimatedTime == "" {
		estimatedTime = "TBD"
	}

	t := domain.Ticket{
		TicketID:       ticketID,
		TicketNumber:   ticketNumber,
		Title:          title,
		Description:    opts.Description,
		Status:         e.Config.Ticket.InitialStatus,
		Priority:       priority,
		EstimatedTime:  estimatedTime,
		Tags:           emptyIfNil(opts.Tags),
		AccessRequired: emptyIfNil(opts.AccessRequired),
		Dependencies:   emptyIfNil(opts.Dependencies),
		CreatedAt:      e.now().UTC().Format(time.RFC3339),
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Ticket{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertTicket(ctx, tx, t); err != nil {
		return domain.Ticket{}, fmt.Errorf("insert ticket: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeTicketCreated, "ticket", t.TicketID, events.EventPayload{
		"ticket_number": t.TicketNumber,
		"status":        t.Status,
		"priority":      t.Priority,
	}); err != nil {
		return domain.Ticket{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Ticket{}, err
	}
	return t, nil
}

// CreateTicketFromEstimate materializes a ticket from a successful estimate
// envelope, carrying over its identity, title, and estimate fields.
func (e Engine) CreateTicketFromEstimate(ctx context.Context, resp domain.EstimateResponse) (domain.Ticket, error) {
	if !resp.Success {
		return domain.Ticket{}, errors.New("cannot create ticket from a failed estimate")
	}
	return e.CreateTicket(ctx, TicketCreateOptions{
		TicketID:       resp.TicketID,
		TicketNumber:   resp.TicketNumber,
		Title:          resp.Title,
		Description:    resp.Task,
		Priority:       resp.Estimate.Priority,
		EstimatedTime:  resp.Estimate.EstimatedTime,
		Tags:           resp.Estimate.SuggestedLabels,
		AccessRequired: resp.Estimate.RequiredAccess,
		Dependencies:   resp.Estimate.Dependencies,
	})
}

func (e Engine) appendEvent(ctx context.Context, evtType, entityKind, entityID string, payload events.EventPayload) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, evtType, entityKind, entityID, payload); err != nil {
		return err
	}
	return tx.Commit()
}

func emptyIfNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
