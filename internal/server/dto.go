package server

import (
	"ticketwise/internal/domain"
)

// EstimateRequest is the body for POST /estimate.
type EstimateRequest struct {
	Task string `json:"task" example:"Add user login with email and password"`
}

// CreateTicketRequest is the body for POST /tickets. Only description is
// required; everything else is derived or defaulted.
type CreateTicketRequest struct {
	TicketID       string   `json:"ticket_id,omitempty"`
	TicketNumber   string   `json:"ticket_number,omitempty"`
	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description"`
	Priority       string   `json:"priority,omitempty" example:"high"`
	EstimatedTime  string   `json:"estimated_time,omitempty" example:"3 days"`
	Tags           []string `json:"tags,omitempty"`
	AccessRequired []string `json:"access_required,omitempty"`
	Dependencies   []string `json:"dependencies,omitempty"`
}

type TicketResponse struct {
	TicketID       string   `json:"ticket_id"`
	TicketNumber   string   `json:"ticket_number" example:"TKT-1A2B3C4D"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Status         string   `json:"status" example:"new"`
	Priority       string   `json:"priority" example:"high"`
	EstimatedTime  string   `json:"estimated_time"`
	Tags           []string `json:"tags"`
	AccessRequired []string `json:"access_required"`
	Dependencies   []string `json:"dependencies"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
}

func ticketResponse(t domain.Ticket) TicketResponse {
	return TicketResponse{
		TicketID:       t.TicketID,
		TicketNumber:   t.TicketNumber,
		Title:          t.Title,
		Description:    t.Description,
		Status:         t.Status,
		Priority:       t.Priority,
		EstimatedTime:  t.EstimatedTime,
		Tags:           t.Tags,
		AccessRequired: t.AccessRequired,
		Dependencies:   t.Dependencies,
		CreatedAt:      t.CreatedAt,
	}
}

func ticketResponses(ts []domain.Ticket) []TicketResponse {
	res := make([]TicketResponse, 0, len(ts))
	for _, t := range ts {
		res = append(res, ticketResponse(t))
	}
	return res
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type" example:"ticket.created"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}

func eventResponses(evts []domain.Event) []EventResponse {
	res := make([]EventResponse, 0, len(evts))
	for _, e := range evts {
		res = append(res, EventResponse{
			ID:         e.ID,
			TS:         e.TS,
			Type:       e.Type,
			EntityKind: e.EntityKind,
			EntityID:   e.EntityID,
			Payload:    e.Payload,
		})
	}
	return res
}
