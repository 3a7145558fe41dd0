package domain

import (
	"time"

	apperrors "github.com/tickhelp/helpdesk-service/pkg/util"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusTodo       TicketStatus = "todo"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// ParseTicketStatus validates a raw status value.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	switch TicketStatus(raw) {
	case TicketStatusTodo, TicketStatusInProgress, TicketStatusResolved:
		return TicketStatus(raw), nil
	}
	return "", apperrors.NewValidationError("invalid status value", map[string]any{"status": raw})
}

// ParseTicketPriority validates a raw priority value.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	switch TicketPriority(raw) {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return TicketPriority(raw), nil
	}
	return "", apperrors.NewValidationError("invalid priority value", map[string]any{"priority": raw})
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	AssigneeID  *string
	CreatedByID *string
	Assignee    *UserRef
	CreatedBy   *UserRef
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserRef is the shape users are expanded to on ticket and history reads.
type UserRef struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}
