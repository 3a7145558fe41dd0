package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tickhelp/helpdesk-service/internal/domain"
	"github.com/tickhelp/helpdesk-service/internal/events"
	"github.com/tickhelp/helpdesk-service/internal/repository"
	apperrors "github.com/tickhelp/helpdesk-service/pkg/util"
)

// TicketService is the mutation engine: it computes field-level diffs,
// validates enum inputs, applies changes transactionally and emits one
// history entry per changed field.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	users      repository.UserRepository
	tx         repository.TxManager
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	UserRepo    repository.UserRepository
	Tx          repository.TxManager
	Dispatcher  events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		tx:         deps.Tx,
		dispatcher: deps.Dispatcher,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    *string
	AssigneeID  *string
}

// TicketPatch is a partial update. Nil pointers mean the field was absent
// from the request. AssigneeSet distinguishes an absent assigneeId from an
// explicit null, which clears the assignment.
type TicketPatch struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	AssigneeID  *string
	AssigneeSet bool
}

// TicketListFilter carries raw query values; enum members are validated here.
type TicketListFilter struct {
	Status     *string
	Priority   *string
	AssigneeID *string
	Search     *string
	SortBy     string
	SortOrder  string
}

// fieldChange is one staged diff entry.
type fieldChange struct {
	field    domain.TicketField
	oldValue *string
	newValue *string
}

// CreateTicket persists a new ticket with status forced to todo, plus the
// initial history entry (status: null -> todo), as one atomic unit.
func (s *TicketService) CreateTicket(ctx context.Context, creatorID string, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"title": "must not be empty"})
	}

	priority := domain.TicketPriorityMedium
	if input.Priority != nil {
		parsed, err := domain.ParseTicketPriority(*input.Priority)
		if err != nil {
			return nil, err
		}
		priority = parsed
	}

	assigneeID := normalizeAssignee(input.AssigneeID)

	ticket := &domain.Ticket{
		Title:       title,
		Description: input.Description,
		Status:      domain.TicketStatusTodo,
		Priority:    priority,
		AssigneeID:  assigneeID,
		CreatedByID: &creatorID,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		if assigneeID != nil {
			if err := ensureUserExists(ctx, repos.Users, *assigneeID); err != nil {
				return err
			}
		}
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		entry := &domain.HistoryEntry{
			TicketID: ticket.ID,
			UserID:   &creatorID,
			Field:    domain.FieldStatus,
			OldValue: nil,
			NewValue: stringPtr(string(domain.TicketStatusTodo)),
		}
		return repos.History.Create(ctx, entry)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	created, err := s.GetTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketCreated,
		ActorID: creatorID,
		Payload: events.TicketCreatedPayload{
			TicketID: created.ID,
			Title:    created.Title,
			Priority: created.Priority,
		},
	})
	return created, nil
}

// UpdateTicket applies a partial update. The read-diff-write-history sequence
// runs as one transaction: validation failures roll back before any write,
// and an empty change set is a no-op that still returns the ticket.
func (s *TicketService) UpdateTicket(ctx context.Context, actorID, ticketID string, patch TicketPatch) (*domain.Ticket, error) {
	var staged []fieldChange

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		ticket, err := repos.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
			}
			return err
		}

		staged, err = stageChanges(ticket, patch)
		if err != nil {
			return err
		}
		if len(staged) == 0 {
			return nil
		}

		for _, change := range staged {
			if change.field == domain.FieldAssignee && change.newValue != nil {
				if err := ensureUserExists(ctx, repos.Users, *change.newValue); err != nil {
					return err
				}
			}
		}

		applyChanges(ticket, staged)
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		for _, change := range staged {
			entry := &domain.HistoryEntry{
				TicketID: ticket.ID,
				UserID:   &actorID,
				Field:    change.field,
				OldValue: change.oldValue,
				NewValue: change.newValue,
			}
			if err := repos.History.Create(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	updated, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if len(staged) > 0 {
		changes := make([]events.FieldChange, 0, len(staged))
		for _, change := range staged {
			changes = append(changes, events.FieldChange{
				Field:    change.field,
				OldValue: change.oldValue,
				NewValue: change.newValue,
			})
		}
		s.publishEvent(ctx, events.Event{
			Type:    events.EventTicketUpdated,
			ActorID: actorID,
			Payload: events.TicketUpdatedPayload{TicketID: updated.ID, Changes: changes},
		})
	}
	return updated, nil
}

// DeleteTicket removes a ticket and its full history as one atomic unit,
// history first so no orphaned entries can survive.
func (s *TicketService) DeleteTicket(ctx context.Context, actorID, ticketID string) error {
	var title string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		ticket, err := repos.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
			}
			return err
		}
		title = ticket.Title
		if err := repos.History.DeleteByTicket(ctx, ticketID); err != nil {
			return err
		}
		return repos.Tickets.Delete(ctx, ticketID)
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketDeleted,
		ActorID: actorID,
		Payload: events.TicketDeletedPayload{TicketID: ticketID, Title: title},
	})
	return nil
}

// GetTicket fetches one ticket with assignee and creator expanded.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns tickets matching the filter. Enum filter values are
// validated; sort inputs outside the allowed set fall back to createdAt DESC.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Search:    filter.Search,
		SortBy:    filter.SortBy,
		SortOrder: filter.SortOrder,
	}
	if filter.Status != nil {
		status, err := domain.ParseTicketStatus(*filter.Status)
		if err != nil {
			return nil, err
		}
		repoFilter.Status = &status
	}
	if filter.Priority != nil {
		priority, err := domain.ParseTicketPriority(*filter.Priority)
		if err != nil {
			return nil, err
		}
		repoFilter.Priority = &priority
	}
	if id := normalizeAssignee(filter.AssigneeID); id != nil {
		repoFilter.AssigneeID = id
	}

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListHistory returns a ticket's audit trail newest first, acting user
// expanded. The ticket must exist.
func (s *TicketService) ListHistory(ctx context.Context, ticketID string) ([]domain.HistoryEntry, error) {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// stageChanges computes the diff between a patch and the stored ticket in the
// fixed field order. A key present but equal to the stored value stages
// nothing. Enum validation happens here, before any write.
func stageChanges(ticket *domain.Ticket, patch TicketPatch) ([]fieldChange, error) {
	var staged []fieldChange
	for _, field := range domain.DiffOrder {
		switch field {
		case domain.FieldTitle:
			if patch.Title == nil || *patch.Title == ticket.Title {
				continue
			}
			if strings.TrimSpace(*patch.Title) == "" {
				return nil, apperrors.NewValidationError("title must not be empty", map[string]any{"title": *patch.Title})
			}
			staged = append(staged, fieldChange{domain.FieldTitle, stringPtr(ticket.Title), stringPtr(*patch.Title)})
		case domain.FieldDescription:
			if patch.Description == nil || *patch.Description == ticket.Description {
				continue
			}
			staged = append(staged, fieldChange{domain.FieldDescription, stringPtr(ticket.Description), stringPtr(*patch.Description)})
		case domain.FieldStatus:
			if patch.Status == nil || *patch.Status == string(ticket.Status) {
				continue
			}
			if _, err := domain.ParseTicketStatus(*patch.Status); err != nil {
				return nil, err
			}
			staged = append(staged, fieldChange{domain.FieldStatus, stringPtr(string(ticket.Status)), stringPtr(*patch.Status)})
		case domain.FieldPriority:
			if patch.Priority == nil || *patch.Priority == string(ticket.Priority) {
				continue
			}
			if _, err := domain.ParseTicketPriority(*patch.Priority); err != nil {
				return nil, err
			}
			staged = append(staged, fieldChange{domain.FieldPriority, stringPtr(string(ticket.Priority)), stringPtr(*patch.Priority)})
		case domain.FieldAssignee:
			if !patch.AssigneeSet {
				continue
			}
			newValue := normalizeAssignee(patch.AssigneeID)
			if equalPtr(newValue, ticket.AssigneeID) {
				continue
			}
			staged = append(staged, fieldChange{domain.FieldAssignee, copyPtr(ticket.AssigneeID), newValue})
		}
	}
	return staged, nil
}

func applyChanges(ticket *domain.Ticket, staged []fieldChange) {
	for _, change := range staged {
		switch change.field {
		case domain.FieldTitle:
			ticket.Title = *change.newValue
		case domain.FieldDescription:
			ticket.Description = *change.newValue
		case domain.FieldStatus:
			ticket.Status = domain.TicketStatus(*change.newValue)
		case domain.FieldPriority:
			ticket.Priority = domain.TicketPriority(*change.newValue)
		case domain.FieldAssignee:
			ticket.AssigneeID = change.newValue
		}
	}
}

func ensureUserExists(ctx context.Context, users repository.UserRepository, userID string) error {
	exists, err := users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.NewValidationError("assignee does not exist", map[string]any{"assigneeId": userID})
	}
	return nil
}

// normalizeAssignee canonicalizes the empty string to nil so "unassigned" has
// exactly one representation in storage and history.
func normalizeAssignee(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	return &trimmed
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func stringPtr(s string) *string {
	return &s
}

func copyPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
