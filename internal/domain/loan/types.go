package loan

import (
	"context"
	"strings"
	"time"

	"github.com/circdesk/backend/internal/domain/catalog"
	"github.com/circdesk/backend/internal/domain/member"
	"github.com/circdesk/backend/internal/domain/staff"
)

type OverdueStatus string

const (
	OverdueNone       OverdueStatus = "NONE"
	OverdueNoticeSent OverdueStatus = "NOTICE_SENT"
	OverdueLate       OverdueStatus = "LATE"
)

func (s OverdueStatus) Valid() bool {
	switch s {
	case OverdueNone, OverdueNoticeSent, OverdueLate:
		return true
	}
	return false
}

// ParseOverdueStatus maps an operator supplied code to a status by explicit
// comparison. Accepts "notice sent", "notice-sent" and any letter case.
func ParseOverdueStatus(raw string) (OverdueStatus, error) {
	n := strings.ToUpper(strings.TrimSpace(raw))
	n = strings.NewReplacer(" ", "_", "-", "_").Replace(n)
	switch OverdueStatus(n) {
	case OverdueNone:
		return OverdueNone, nil
	case OverdueNoticeSent:
		return OverdueNoticeSent, nil
	case OverdueLate:
		return OverdueLate, nil
	}
	return "", invalid("overdue_status", "must be one of NONE, NOTICE_SENT, LATE")
}

type State string

const (
	StateOpen     State = "OPEN"
	StateReturned State = "RETURNED"
)

type Entity struct {
	ID           int64           `json:"loan_id"`
	MemberID     int64           `json:"member_id"`
	Copy         catalog.CopyKey `json:"copy"`
	CheckoutDate time.Time       `json:"checkout_date"`
	DueDate      time.Time       `json:"due_date"`
	ReturnDate   *time.Time      `json:"return_date"`
	// OverdueStatus is the stored hint. Use ClassifyOverdue for the
	// classification derived from dates.
	OverdueStatus OverdueStatus `json:"overdue_status_stored"`
	StaffID       int64         `json:"staff_id"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (e Entity) Open() bool {
	return e.ReturnDate == nil
}

func (e Entity) State() State {
	if e.Open() {
		return StateOpen
	}
	return StateReturned
}

type CreateInput struct {
	ID       int64
	MemberID int64
	Copy     catalog.CopyKey
	// CheckoutDate defaults to today when zero.
	CheckoutDate time.Time
	// DueDate is computed from the member's privilege tier when nil.
	DueDate *time.Time
	StaffID int64
}

// InsertInput is the fully resolved row handed to the repository.
type InsertInput struct {
	ID           int64
	MemberID     int64
	Copy         catalog.CopyKey
	CheckoutDate time.Time
	DueDate      time.Time
	StaffID      int64
}

// UpdateInput enumerates the mutable loan fields. Nil pointers are left
// untouched.
type UpdateInput struct {
	DueDate         *time.Time     `json:"due_date,omitempty"`
	ReturnDate      *time.Time     `json:"return_date,omitempty"`
	ClearReturnDate bool           `json:"clear_return_date,omitempty"`
	OverdueStatus   *OverdueStatus `json:"overdue_status,omitempty"`
	StaffID         *int64         `json:"staff_id,omitempty"`
}

func (u UpdateInput) Empty() bool {
	return u.DueDate == nil && u.ReturnDate == nil && !u.ClearReturnDate && u.OverdueStatus == nil && u.StaffID == nil
}

type ListFilter struct {
	MemberID int64
	StaffID  int64
	OpenOnly bool
	Limit    int32
	Offset   int32
}

type AuditEntry struct {
	StaffID int64
	Action  string
	LoanID  int64
	Payload []byte
}

type Repository interface {
	Create(ctx context.Context, in InsertInput) (*Entity, error)
	GetByID(ctx context.Context, id int64) (*Entity, error)
	// GetForUpdate locks the row for the rest of the enclosing transaction.
	GetForUpdate(ctx context.Context, id int64) (*Entity, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Update(ctx context.Context, id int64, in UpdateInput) (*Entity, error)
	SetReturnDate(ctx context.Context, id int64, returnDate time.Time) (*Entity, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ListFilter) ([]Entity, error)
}

type AuditRepository interface {
	Log(ctx context.Context, in AuditEntry) error
}

// Tx exposes the repositories bound to one transaction.
type Tx interface {
	Members() member.Repository
	Copies() catalog.CopyRepository
	Staff() staff.Repository
	Loans() Repository
	Audit() AuditRepository
}

type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Loans() Repository
}
