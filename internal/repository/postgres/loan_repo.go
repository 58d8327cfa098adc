package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"github.com/circdesk/backend/internal/domain/loan"
)

const loanColumns = `loan_id, member_id, isbn, copy_id, checkout_date, due_date, return_date,
       overdue_status, staff_id, created_at, updated_at`

var loanSelectColumns = []any{
	"loan_id", "member_id", "isbn", "copy_id", "checkout_date", "due_date", "return_date",
	"overdue_status", "staff_id", "created_at", "updated_at",
}

type LoanRepository struct {
	db DBTX
}

func NewLoanRepository(db DBTX) *LoanRepository {
	return &LoanRepository{db: db}
}

func scanLoan(row pgx.Row) (*loan.Entity, error) {
	out := &loan.Entity{}
	var overdue string
	if err := row.Scan(
		&out.ID, &out.MemberID, &out.Copy.ISBN, &out.Copy.CopyID, &out.CheckoutDate, &out.DueDate, &out.ReturnDate,
		&overdue, &out.StaffID, &out.CreatedAt, &out.UpdatedAt,
	); err != nil {
		return nil, err
	}
	out.OverdueStatus = loan.OverdueStatus(overdue)
	return out, nil
}

func (r *LoanRepository) Create(ctx context.Context, in loan.InsertInput) (*loan.Entity, error) {
	q := `
INSERT INTO loans (loan_id, member_id, isbn, copy_id, checkout_date, due_date, staff_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + loanColumns
	out, err := scanLoan(r.db.QueryRow(ctx, q,
		in.ID, in.MemberID, in.Copy.ISBN, in.Copy.CopyID, in.CheckoutDate, in.DueDate, in.StaffID,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, loan.ErrDuplicateLoan
		}
		return nil, err
	}
	return out, nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id int64) (*loan.Entity, error) {
	return r.get(ctx, `SELECT `+loanColumns+` FROM loans WHERE loan_id = $1`, id)
}

func (r *LoanRepository) GetForUpdate(ctx context.Context, id int64) (*loan.Entity, error) {
	return r.get(ctx, `SELECT `+loanColumns+` FROM loans WHERE loan_id = $1 FOR UPDATE`, id)
}

func (r *LoanRepository) get(ctx context.Context, q string, args ...any) (*loan.Entity, error) {
	out, err := scanLoan(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrLoanNotFound
		}
		return nil, err
	}
	return out, nil
}

func (r *LoanRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM loans WHERE loan_id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *LoanRepository) Update(ctx context.Context, id int64, in loan.UpdateInput) (*loan.Entity, error) {
	rec := goqu.Record{"updated_at": goqu.L("NOW()")}
	if in.DueDate != nil {
		rec["due_date"] = *in.DueDate
	}
	if in.ReturnDate != nil {
		rec["return_date"] = *in.ReturnDate
	}
	if in.ClearReturnDate {
		rec["return_date"] = nil
	}
	if in.OverdueStatus != nil {
		rec["overdue_status"] = string(*in.OverdueStatus)
	}
	if in.StaffID != nil {
		rec["staff_id"] = *in.StaffID
	}

	q, args, err := builder().
		Update("loans").
		Prepared(true).
		Set(rec).
		Where(goqu.C("loan_id").Eq(id)).
		Returning(loanSelectColumns...).
		ToSQL()
	if err != nil {
		return nil, err
	}
	return r.get(ctx, q, args...)
}

func (r *LoanRepository) SetReturnDate(ctx context.Context, id int64, returnDate time.Time) (*loan.Entity, error) {
	q := `UPDATE loans SET return_date = $2, updated_at = NOW() WHERE loan_id = $1 RETURNING ` + loanColumns
	return r.get(ctx, q, id, returnDate)
}

func (r *LoanRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM loans WHERE loan_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return loan.ErrLoanNotFound
	}
	return nil
}

func (r *LoanRepository) List(ctx context.Context, f loan.ListFilter) ([]loan.Entity, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	where := make([]goqu.Expression, 0, 3)
	if f.MemberID > 0 {
		where = append(where, goqu.C("member_id").Eq(f.MemberID))
	}
	if f.StaffID > 0 {
		where = append(where, goqu.C("staff_id").Eq(f.StaffID))
	}
	if f.OpenOnly {
		where = append(where, goqu.C("return_date").IsNull())
	}

	q, args, err := builder().
		From("loans").
		Prepared(true).
		Select(loanSelectColumns...).
		Where(where...).
		Order(goqu.C("loan_id").Asc()).
		Limit(uint(f.Limit)).
		Offset(uint(f.Offset)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loan.Entity, 0)
	for rows.Next() {
		item, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
