package postgres

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/circdesk/backend/internal/domain/catalog"
	"github.com/circdesk/backend/internal/domain/report"
)

type ReportRepository struct {
	db DBTX
}

func NewReportRepository(db DBTX) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) overdueQuery(asOf time.Time) (string, []any, error) {
	return builder().
		From(goqu.T("loans").As("l")).
		Prepared(true).
		Join(goqu.T("members").As("m"), goqu.On(goqu.I("m.member_id").Eq(goqu.I("l.member_id")))).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.isbn").Eq(goqu.I("l.isbn")))).
		Select(
			goqu.I("l.loan_id"), goqu.I("l.member_id"), goqu.I("m.name"),
			goqu.I("l.isbn"), goqu.I("b.title"), goqu.I("l.copy_id"), goqu.I("l.due_date"),
		).
		Where(
			goqu.I("l.return_date").IsNull(),
			goqu.I("l.due_date").Lt(asOf),
		).
		Order(goqu.I("l.due_date").Asc(), goqu.I("l.loan_id").Asc()).
		ToSQL()
}

func (r *ReportRepository) OverdueLoans(ctx context.Context, asOf time.Time) ([]report.OverdueLoan, error) {
	q, args, err := r.overdueQuery(asOf)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]report.OverdueLoan, 0)
	for rows.Next() {
		var item report.OverdueLoan
		if err := rows.Scan(&item.LoanID, &item.MemberID, &item.MemberName, &item.ISBN, &item.Title, &item.CopyID, &item.DueDate); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReportRepository) topBorrowersQuery(since time.Time, limit int) (string, []any, error) {
	ds := builder().
		From(goqu.T("loans").As("l")).
		Prepared(true).
		Join(goqu.T("members").As("m"), goqu.On(goqu.I("m.member_id").Eq(goqu.I("l.member_id")))).
		Select(goqu.I("m.member_id"), goqu.I("m.name"), goqu.COUNT(goqu.I("l.loan_id")).As("loan_count")).
		Where(goqu.I("l.checkout_date").Gte(since)).
		GroupBy(goqu.I("m.member_id"), goqu.I("m.name")).
		Order(goqu.C("loan_count").Desc(), goqu.I("m.member_id").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	return ds.ToSQL()
}

func (r *ReportRepository) TopBorrowers(ctx context.Context, since time.Time, limit int) ([]report.TopBorrower, error) {
	q, args, err := r.topBorrowersQuery(since, limit)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]report.TopBorrower, 0)
	for rows.Next() {
		var item report.TopBorrower
		if err := rows.Scan(&item.MemberID, &item.Name, &item.LoanCount); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReportRepository) availableBySubjectQuery() (string, []any, error) {
	return builder().
		From(goqu.T("copies").As("c")).
		Prepared(true).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.isbn").Eq(goqu.I("c.isbn")))).
		Select(goqu.I("b.subject"), goqu.COUNT(goqu.Star()).As("available_copies")).
		Where(goqu.I("c.status").Eq(string(catalog.StatusAvailable))).
		GroupBy(goqu.I("b.subject")).
		Order(goqu.I("b.subject").Asc()).
		ToSQL()
}

func (r *ReportRepository) AvailableCopiesBySubject(ctx context.Context) ([]report.SubjectAvailability, error) {
	q, args, err := r.availableBySubjectQuery()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]report.SubjectAvailability, 0)
	for rows.Next() {
		var item report.SubjectAvailability
		if err := rows.Scan(&item.Subject, &item.AvailableCopies); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReportRepository) staffActivityQuery(since time.Time) (string, []any, error) {
	return builder().
		From(goqu.T("loans").As("l")).
		Prepared(true).
		Join(goqu.T("staff").As("s"), goqu.On(goqu.I("s.staff_id").Eq(goqu.I("l.staff_id")))).
		Select(goqu.I("s.staff_id"), goqu.I("s.staff_name"), goqu.COUNT(goqu.I("l.loan_id")).As("checkouts")).
		Where(goqu.I("l.checkout_date").Gte(since)).
		GroupBy(goqu.I("s.staff_id"), goqu.I("s.staff_name")).
		Order(goqu.C("checkouts").Desc(), goqu.I("s.staff_id").Asc()).
		ToSQL()
}

func (r *ReportRepository) StaffActivity(ctx context.Context, since time.Time) ([]report.StaffActivity, error) {
	q, args, err := r.staffActivityQuery(since)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]report.StaffActivity, 0)
	for rows.Next() {
		var item report.StaffActivity
		if err := rows.Scan(&item.StaffID, &item.StaffName, &item.Checkouts); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
