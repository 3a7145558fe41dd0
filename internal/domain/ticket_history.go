package domain

import "time"

// TicketField names a mutable ticket attribute tracked in history.
type TicketField string

const (
	FieldTitle       TicketField = "title"
	FieldDescription TicketField = "description"
	FieldStatus      TicketField = "status"
	FieldPriority    TicketField = "priority"
	FieldAssignee    TicketField = "assigneeId"
)

// DiffOrder is the fixed order in which staged changes become history
// entries. Consumers sort history by creation time, so entries written in
// one update must land in a reproducible sequence.
var DiffOrder = []TicketField{
	FieldTitle,
	FieldDescription,
	FieldStatus,
	FieldPriority,
	FieldAssignee,
}

// HistoryEntry is an immutable record of one field-level ticket change.
// UserID is required at creation time; it becomes nil only when the acting
// user is later deleted.
type HistoryEntry struct {
	ID        int64
	TicketID  string
	UserID    *string
	User      *UserRef
	Field     TicketField
	OldValue  *string
	NewValue  *string
	CreatedAt time.Time
}
