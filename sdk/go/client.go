package ticketwisesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Ticketwise HTTP API client.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "api/v1",
		Timeout:  60 * time.Second,
	}
}

// Estimate mirrors the estimate payload inside the response envelope.
type Estimate struct {
	EstimatedTime   string   `json:"estimated_time"`
	Priority        string   `json:"priority"`
	ComplexityLevel string   `json:"complexity_level"`
	Dependencies    []string `json:"dependencies"`
	RequiredAccess  []string `json:"required_access"`
	SuggestedLabels []string `json:"suggested_labels"`
	Reasoning       string   `json:"reasoning"`
}

// EstimateResponse is the envelope returned by POST /estimate.
type EstimateResponse struct {
	Success      bool     `json:"success"`
	Error        string   `json:"error,omitempty"`
	TicketID     string   `json:"ticket_id"`
	TicketNumber string   `json:"ticket_number"`
	Task         string   `json:"task"`
	Title        string   `json:"title"`
	Estimate     Estimate `json:"estimate"`
}

// Ticket represents the API ticket model.
type Ticket struct {
	TicketID       string   `json:"ticket_id"`
	TicketNumber   string   `json:"ticket_number"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	EstimatedTime  string   `json:"estimated_time"`
	Tags           []string `json:"tags"`
	AccessRequired []string `json:"access_required"`
	Dependencies   []string `json:"dependencies"`
	CreatedAt      string   `json:"created_at"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// EstimateTask requests an estimate for a free-text task description.
// A model outage surfaces as an APIError with status 502 whose body still
// contains the success=false envelope.
func (c *Client) EstimateTask(ctx context.Context, task string) (EstimateResponse, error) {
	var resp EstimateResponse
	err := c.do(ctx, http.MethodPost, c.apiPath("estimate"), map[string]any{"task": task}, &resp)
	return resp, err
}

// CreateTicket materializes a ticket from a description and optional fields.
func (c *Client) CreateTicket(ctx context.Context, req Ticket) (Ticket, error) {
	body := map[string]any{
		"ticket_id":       req.TicketID,
		"ticket_number":   req.TicketNumber,
		"title":           req.Title,
		"description":     req.Description,
		"priority":        req.Priority,
		"estimated_time":  req.EstimatedTime,
		"tags":            req.Tags,
		"access_required": req.AccessRequired,
		"dependencies":    req.Dependencies,
	}
	var resp Ticket
	err := c.do(ctx, http.MethodPost, c.apiPath("tickets"), body, &resp)
	return resp, err
}

// GetTicket fetches a ticket by id.
func (c *Client) GetTicket(ctx context.Context, ticketID string) (Ticket, error) {
	var resp Ticket
	endpoint := c.apiPath("tickets/" + url.PathEscape(ticketID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// ListTickets returns tickets, optionally filtered by status.
func (c *Client) ListTickets(ctx context.Context, status string, limit int) ([]Ticket, error) {
	endpoint := c.apiPath("tickets")
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Ticket
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := c.apiPath("events")
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, c.apiPath("health"), nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) apiPath(p string) string {
	base := strings.Trim(c.BasePath, "/")
	if base == "" {
		base = "api/v1"
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
