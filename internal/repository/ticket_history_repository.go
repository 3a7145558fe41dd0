package repository

import (
	"context"

	"github.com/tickhelp/helpdesk-service/internal/domain"
)

// TicketHistoryRepository stores audit entries. Entries are append-only;
// nothing updates them after creation.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.HistoryEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryEntry, error)
	DeleteByTicket(ctx context.Context, ticketID string) error
	DetachUser(ctx context.Context, userID string) error
}

type ticketHistoryRepository struct {
	db Querier
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(db Querier) TicketHistoryRepository {
	return &ticketHistoryRepository{db: db}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, user_id, field, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.UserID,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// ListByTicket returns entries newest first, with the acting user expanded.
// The id tiebreak keeps entries written in one transaction in a stable order.
func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT h.id, h.ticket_id, h.user_id, h.field, h.old_value, h.new_value, h.created_at,
               u.id, u.first_name, u.last_name, u.email
        FROM ticket_history h
        LEFT JOIN users u ON u.id = h.user_id
        WHERE h.ticket_id=$1
        ORDER BY h.created_at DESC, h.id DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var (
			entry                     domain.HistoryEntry
			userID, first, last, mail *string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.UserID,
			&entry.Field,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
			&userID, &first, &last, &mail,
		); err != nil {
			return nil, err
		}
		if userID != nil {
			entry.User = &domain.UserRef{ID: *userID, FirstName: *first, LastName: *last, Email: *mail}
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// DeleteByTicket removes every entry for a ticket. Used only as the first
// step of ticket deletion, inside the same transaction.
func (r *ticketHistoryRepository) DeleteByTicket(ctx context.Context, ticketID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM ticket_history WHERE ticket_id=$1`, ticketID)
	return err
}

// DetachUser nulls the acting-user reference on entries once that user is
// deleted. The entries themselves are kept; the audit trail survives.
func (r *ticketHistoryRepository) DetachUser(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `UPDATE ticket_history SET user_id=NULL WHERE user_id=$1`, userID)
	return err
}
