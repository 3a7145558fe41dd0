package events

import (
	"time"

	"github.com/tickhelp/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketUpdated EventType = "ticket_updated"
	EventTicketDeleted EventType = "ticket_deleted"
	EventUserDeleted   EventType = "user_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actorId"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// FieldChange describes one audited change inside an update event.
type FieldChange struct {
	Field    domain.TicketField `json:"field"`
	OldValue *string            `json:"oldValue"`
	NewValue *string            `json:"newValue"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketID string                `json:"ticketId"`
	Title    string                `json:"title"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	TicketID string        `json:"ticketId"`
	Changes  []FieldChange `json:"changes"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	TicketID string `json:"ticketId"`
	Title    string `json:"title"`
}

// UserDeletedPayload payload.
type UserDeletedPayload struct {
	UserID string `json:"userId"`
}
