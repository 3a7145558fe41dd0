package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tickhelp/helpdesk-service/internal/domain"
)

// TicketSort names the columns tickets may be ordered by.
var ticketSortColumns = map[string]string{
	"createdAt": "t.created_at",
	"updatedAt": "t.updated_at",
	"title":     "t.title",
	"status":    "t.status",
	"priority":  "t.priority",
}

// TicketFilter captures listing parameters. Unknown sort inputs fall back to
// createdAt DESC.
type TicketFilter struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	AssigneeID *string
	Search     *string
	SortBy     string
	SortOrder  string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Delete(ctx context.Context, id string) error
	ClearUserReferences(ctx context.Context, userID string) error
}

type ticketRepository struct {
	db Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db Querier) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, priority, assignee_id, created_by_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.AssigneeID,
		ticket.CreatedByID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, assignee_id=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	if err := r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.AssigneeID,
		ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return err
	}
	return nil
}

const ticketSelect = `
        SELECT t.id, t.title, t.description, t.status, t.priority,
               t.assignee_id, t.created_by_id, t.created_at, t.updated_at,
               a.id, a.first_name, a.last_name, a.email,
               c.id, c.first_name, c.last_name, c.email
        FROM tickets t
        LEFT JOIN users a ON a.id = t.assignee_id
        LEFT JOIN users c ON c.id = t.created_by_id`

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	row := r.db.QueryRow(ctx, ticketSelect+` WHERE t.id=$1`, id)
	return scanTicket(row)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("t.status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("t.priority=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("t.assignee_id=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		args = append(args, "%"+strings.TrimSpace(*filter.Search)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(t.title ILIKE %s OR t.description ILIKE %s)", placeholder, placeholder))
	}

	orderColumn, ok := ticketSortColumns[filter.SortBy]
	if !ok {
		orderColumn = "t.created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "ASC") {
		direction = "ASC"
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY %s %s",
		ticketSelect, strings.Join(clauses, " AND "), orderColumn, direction)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ClearUserReferences nulls out assignee and creator references owned by a
// user. Tickets survive the deletion of either.
func (r *ticketRepository) ClearUserReferences(ctx context.Context, userID string) error {
	if _, err := r.db.Exec(ctx, `UPDATE tickets SET assignee_id=NULL, updated_at=NOW() WHERE assignee_id=$1`, userID); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `UPDATE tickets SET created_by_id=NULL, updated_at=NOW() WHERE created_by_id=$1`, userID)
	return err
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var assigneeID, assigneeFirst, assigneeLast, assigneeEmail *string
	var creatorID, creatorFirst, creatorLast, creatorEmail *string
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssigneeID,
		&ticket.CreatedByID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&assigneeID, &assigneeFirst, &assigneeLast, &assigneeEmail,
		&creatorID, &creatorFirst, &creatorLast, &creatorEmail,
	); err != nil {
		return nil, err
	}
	if assigneeID != nil {
		ticket.Assignee = &domain.UserRef{ID: *assigneeID, FirstName: *assigneeFirst, LastName: *assigneeLast, Email: *assigneeEmail}
	}
	if creatorID != nil {
		ticket.CreatedBy = &domain.UserRef{ID: *creatorID, FirstName: *creatorFirst, LastName: *creatorLast, Email: *creatorEmail}
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
