package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/circdesk/backend/internal/domain/catalog"
	"github.com/circdesk/backend/internal/domain/loan"
	"github.com/circdesk/backend/internal/domain/member"
	"github.com/circdesk/backend/internal/domain/staff"
)

// CirculationStore is the loan.Store backed by a pgx pool.
type CirculationStore struct {
	pool *pgxpool.Pool
}

func NewCirculationStore(pool *pgxpool.Pool) *CirculationStore {
	return &CirculationStore{pool: pool}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
func (s *CirculationStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx loan.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, txRepositories{db: tx})
	})
}

func (s *CirculationStore) Loans() loan.Repository {
	return NewLoanRepository(s.pool)
}

type txRepositories struct {
	db DBTX
}

func (t txRepositories) Members() member.Repository     { return NewMemberRepository(t.db) }
func (t txRepositories) Copies() catalog.CopyRepository { return NewCopyRepository(t.db) }
func (t txRepositories) Staff() staff.Repository        { return NewStaffRepository(t.db) }
func (t txRepositories) Loans() loan.Repository         { return NewLoanRepository(t.db) }
func (t txRepositories) Audit() loan.AuditRepository    { return NewAuditRepository(t.db) }
