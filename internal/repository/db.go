package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx used by repositories. Both *pgxpool.Pool and
// pgx.Tx satisfy it, so the same repository code runs standalone or inside a
// transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRepositories bundles transaction-scoped repositories for one unit of work.
type TxRepositories struct {
	Users   UserRepository
	Tickets TicketRepository
	History TicketHistoryRepository
}

// TxManager runs a function within a single database transaction. The
// transaction commits only when fn returns nil; any error rolls back every
// row written inside it.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}

type pgxTxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager builds a TxManager over the shared pool.
func NewTxManager(pool *pgxpool.Pool) TxManager {
	return &pgxTxManager{pool: pool}
}

func (m *pgxTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error {
	return pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		repos := TxRepositories{
			Users:   NewUserRepository(tx),
			Tickets: NewTicketRepository(tx),
			History: NewTicketHistoryRepository(tx),
		}
		return fn(ctx, repos)
	})
}
