package dto

import (
	"encoding/json"
	"time"

	"github.com/tickhelp/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    *string `json:"priority"`
	AssigneeID  *string `json:"assigneeId"`
}

// UpdateTicketRequest is a partial update. It distinguishes a key that is
// absent from one that is present with null, which matters for clearing the
// assignee, so it unmarshals in two passes: typed values plus a key set.
type UpdateTicketRequest struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	AssigneeID  *string
	AssigneeSet bool
}

func (r *UpdateTicketRequest) UnmarshalJSON(data []byte) error {
	var fields struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
		Priority    *string `json:"priority"`
		AssigneeID  *string `json:"assigneeId"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	r.Title = fields.Title
	r.Description = fields.Description
	r.Status = fields.Status
	r.Priority = fields.Priority
	r.AssigneeID = fields.AssigneeID
	_, r.AssigneeSet = keys["assigneeId"]
	return nil
}

// TicketResponse is the full ticket shape with references expanded.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	AssigneeID  *string               `json:"assigneeId"`
	CreatedByID *string               `json:"createdById"`
	Assignee    *UserRefResponse      `json:"assignee"`
	Creator     *UserRefResponse      `json:"creator"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		AssigneeID:  ticket.AssigneeID,
		CreatedByID: ticket.CreatedByID,
		Assignee:    NewUserRefResponse(ticket.Assignee),
		Creator:     NewUserRefResponse(ticket.CreatedBy),
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

// HistoryEntryResponse is one audit trail row with the acting user expanded.
type HistoryEntryResponse struct {
	ID        int64              `json:"id"`
	TicketID  string             `json:"ticketId"`
	UserID    *string            `json:"userId"`
	User      *UserRefResponse   `json:"user"`
	Field     domain.TicketField `json:"field"`
	OldValue  *string            `json:"oldValue"`
	NewValue  *string            `json:"newValue"`
	CreatedAt time.Time          `json:"createdAt"`
}

// NewHistoryEntryResponse maps a domain history entry.
func NewHistoryEntryResponse(entry *domain.HistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:        entry.ID,
		TicketID:  entry.TicketID,
		UserID:    entry.UserID,
		User:      NewUserRefResponse(entry.User),
		Field:     entry.Field,
		OldValue:  entry.OldValue,
		NewValue:  entry.NewValue,
		CreatedAt: entry.CreatedAt,
	}
}
