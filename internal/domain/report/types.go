package report

import (
	"context"
	"time"
)

type OverdueLoan struct {
	LoanID      int64     `json:"loan_id"`
	MemberID    int64     `json:"member_id"`
	MemberName  string    `json:"member_name"`
	ISBN        string    `json:"isbn"`
	Title       string    `json:"title"`
	CopyID      int64     `json:"copy_id"`
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue"`
}

type TopBorrower struct {
	MemberID  int64  `json:"member_id"`
	Name      string `json:"name"`
	LoanCount int64  `json:"loan_count"`
}

type SubjectAvailability struct {
	Subject         string `json:"subject"`
	AvailableCopies int64  `json:"available_copies"`
}

type StaffActivity struct {
	StaffID   int64  `json:"staff_id"`
	StaffName string `json:"staff_name"`
	Checkouts int64  `json:"checkouts"`
}

// Repository runs the read-only aggregate queries. Dates are civil dates at
// UTC midnight.
type Repository interface {
	OverdueLoans(ctx context.Context, asOf time.Time) ([]OverdueLoan, error)
	TopBorrowers(ctx context.Context, since time.Time, limit int) ([]TopBorrower, error)
	AvailableCopiesBySubject(ctx context.Context) ([]SubjectAvailability, error)
	StaffActivity(ctx context.Context, since time.Time) ([]StaffActivity, error)
}
