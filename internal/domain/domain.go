package domain

// Estimate is the normalized output of the estimation pipeline for one task
// description. List fields are never nil and scalar fields carry defaults,
// whether the model cooperated, replied garbage, or was unreachable.
type Estimate struct {
	EstimatedTime   string   `json:"estimated_time"`
	Priority        string   `json:"priority"`
	ComplexityLevel string   `json:"complexity_level"`
	Dependencies    []string `json:"dependencies"`
	RequiredAccess  []string `json:"required_access"`
	SuggestedLabels []string `json:"suggested_labels"`
	Reasoning       string   `json:"reasoning"`
}

// EstimateResponse is the full envelope returned for one estimate request.
// Success=false carries a non-empty Error and neutral estimate defaults, so
// callers never need to null-check the payload shape.
type EstimateResponse struct {
	Success      bool     `json:"success"`
	Error        string   `json:"error,omitempty"`
	TicketID     string   `json:"ticket_id"`
	TicketNumber string   `json:"ticket_number"`
	Task         string   `json:"task"`
	Title        string   `json:"title"`
	Estimate     Estimate `json:"estimate"`

	// Degraded marks an estimate built from the canned fallback because the
	// model reply could not be parsed. It stays out of the wire envelope.
	Degraded bool `json:"-"`
}

// Ticket is the persisted record created after a user confirms an estimate.
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
	CreatedAt      string   `json:"created_at" format:"date-time"`
}

// Event is one entry in the append-only event log.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
