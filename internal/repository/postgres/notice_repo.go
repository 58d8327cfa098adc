package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/circdesk/backend/internal/domain/loan"
	"github.com/circdesk/backend/internal/jobs"
	"github.com/circdesk/backend/internal/notice"
)

type NoticeRepository struct {
	db DBTX
}

func NewNoticeRepository(db DBTX) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// ListNoticeCandidates skips loans with a notice job still in flight. Finished
// jobs do not block a loan that became late again after a reopen.
func (r *NoticeRepository) ListNoticeCandidates(ctx context.Context, asOf time.Time, limit int32) ([]int64, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `
SELECT l.loan_id
FROM loans l
WHERE l.return_date IS NULL
  AND l.due_date < $1
  AND l.overdue_status = 'NONE'
  AND NOT EXISTS (
    SELECT 1 FROM outbox_jobs o
    WHERE o.topic = $2
      AND (o.payload->>'loan_id')::bigint = l.loan_id
      AND o.status IN ('pending', 'processing')
  )
ORDER BY l.due_date, l.loan_id
LIMIT $3
`
	rows, err := r.db.Query(ctx, q, asOf, jobs.OverdueNoticeTopic, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NoticeRepository) GetNotice(ctx context.Context, loanID int64, asOf time.Time) (*notice.Notice, error) {
	q := `
SELECT l.loan_id, l.member_id, m.name, m.address, l.isbn, b.title, l.copy_id, l.due_date
FROM loans l
JOIN members m ON m.member_id = l.member_id
JOIN books b ON b.isbn = l.isbn
WHERE l.loan_id = $1 AND l.return_date IS NULL AND l.due_date < $2
`
	out := &notice.Notice{}
	err := r.db.QueryRow(ctx, q, loanID, asOf).Scan(
		&out.LoanID, &out.MemberID, &out.MemberName, &out.Address, &out.ISBN, &out.Title, &out.CopyID, &out.DueDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, jobs.ErrNoticeNotDue
		}
		return nil, err
	}
	out.DaysOverdue = loan.DaysOverdue(loan.Entity{DueDate: out.DueDate}, asOf)
	return out, nil
}

// MarkNoticeSent leaves loans an operator already reclassified untouched.
func (r *NoticeRepository) MarkNoticeSent(ctx context.Context, loanID int64) error {
	q := `
UPDATE loans SET overdue_status = $2, updated_at = NOW()
WHERE loan_id = $1 AND overdue_status = $3
`
	_, err := r.db.Exec(ctx, q, loanID, string(loan.OverdueNoticeSent), string(loan.OverdueNone))
	return err
}
