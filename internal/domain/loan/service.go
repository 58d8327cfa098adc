package loan

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/circdesk/backend/internal/domain/catalog"
	"github.com/circdesk/backend/internal/domain/staff"
)

const (
	auditActionCreated  = "loan_created"
	auditActionReturned = "loan_returned"
	auditActionUpdated  = "loan_updated"
	auditActionDeleted  = "loan_deleted"
)

type EventType string

const (
	EventLoanCreated  EventType = "loan_created"
	EventLoanReturned EventType = "loan_returned"
	EventLoanUpdated  EventType = "loan_updated"
	EventLoanDeleted  EventType = "loan_deleted"
)

type Event struct {
	Type       EventType `json:"event"`
	Loan       Entity    `json:"loan"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher receives lifecycle events after their transaction commits.
type EventPublisher interface {
	Publish(ev Event)
}

type actorKey struct{}

// WithActor records the staff member performing the request.
func WithActor(ctx context.Context, staffID int64) context.Context {
	return context.WithValue(ctx, actorKey{}, staffID)
}

func ActorFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(actorKey{}).(int64)
	return id
}

type Option func(*Service)

func WithDueDatePolicy(p DueDatePolicy) Option {
	return func(s *Service) { s.policy = p }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type Service struct {
	store     Store
	policy    DueDatePolicy
	publisher EventPublisher
	now       func() time.Time
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		policy:    DefaultDueDatePolicy(),
		publisher: noopPublisher{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Today() time.Time {
	return CivilDate(s.now())
}

// Classify derives the overdue classification of a loan as of today.
func (s *Service) Classify(e Entity) OverdueStatus {
	return ClassifyOverdue(e, s.Today())
}

// CreateLoan validates references, applies the due-date policy, claims the
// copy and inserts the loan in one transaction.
func (s *Service) CreateLoan(ctx context.Context, in CreateInput) (*Entity, error) {
	if in.ID <= 0 {
		return nil, invalid("loan_id", "must be a positive integer")
	}
	checkout := in.CheckoutDate
	if checkout.IsZero() {
		checkout = s.now()
	}
	checkout = CivilDate(checkout)

	var created *Entity
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		exists, err := tx.Loans().Exists(ctx, in.ID)
		if err != nil {
			return storageErr("loan_exists", err)
		}
		if exists {
			return &DuplicateLoanError{ID: in.ID}
		}

		resolved, err := NewValidator(tx.Members(), tx.Copies(), tx.Staff()).Validate(ctx, in.MemberID, in.Copy, in.StaffID)
		if err != nil {
			return err
		}

		due := s.policy.DueDate(checkout, resolved.Member.Privileged())
		if in.DueDate != nil {
			due = CivilDate(*in.DueDate)
		}
		if due.Before(checkout) {
			return invalid("due_date", "must not be before checkout_date")
		}

		claimed, err := tx.Copies().TransitionStatus(ctx, resolved.Copy.Key, catalog.StatusAvailable, catalog.StatusNotAvailable)
		if err != nil {
			return storageErr("claim_copy", err)
		}
		if !claimed {
			return copyUnavailable(ctx, tx, resolved.Copy.Key)
		}

		created, err = tx.Loans().Create(ctx, InsertInput{
			ID:           in.ID,
			MemberID:     resolved.Member.ID,
			Copy:         resolved.Copy.Key,
			CheckoutDate: checkout,
			DueDate:      due,
			StaffID:      resolved.Staff.ID,
		})
		if err != nil {
			if errors.Is(err, ErrDuplicateLoan) {
				return &DuplicateLoanError{ID: in.ID}
			}
			return storageErr("create_loan", err)
		}

		return s.audit(ctx, tx, auditActionCreated, created.ID, map[string]any{
			"member_id":     created.MemberID,
			"isbn":          created.Copy.ISBN,
			"copy_id":       created.Copy.CopyID,
			"checkout_date": created.CheckoutDate.Format(time.DateOnly),
			"due_date":      created.DueDate.Format(time.DateOnly),
			"staff_id":      created.StaffID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(EventLoanCreated, *created)
	return created, nil
}

// RecordReturn closes a loan. A zero return date means today. Calling it
// again with the same date leaves the loan unchanged.
func (s *Service) RecordReturn(ctx context.Context, loanID int64, returnDate time.Time) (*Entity, error) {
	if returnDate.IsZero() {
		returnDate = s.now()
	}
	returnDate = CivilDate(returnDate)

	var (
		out     *Entity
		changed bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := s.lockLoan(ctx, tx, loanID)
		if err != nil {
			return err
		}
		if returnDate.Before(CivilDate(cur.CheckoutDate)) {
			return invalid("return_date", "must not be before checkout_date")
		}
		if !cur.Open() && CivilDate(*cur.ReturnDate).Equal(returnDate) {
			out = cur
			return nil
		}

		updated, err := tx.Loans().SetReturnDate(ctx, loanID, returnDate)
		if err != nil {
			return s.loanWriteErr("set_return_date", loanID, err)
		}
		if cur.Open() {
			if err := releaseCopy(ctx, tx, cur.Copy); err != nil {
				return err
			}
		}
		out, changed = updated, true

		return s.audit(ctx, tx, auditActionReturned, loanID, map[string]any{
			"return_date": returnDate.Format(time.DateOnly),
			"was_open":    cur.Open(),
		})
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.publish(EventLoanReturned, *out)
	}
	return out, nil
}

// UpdateLoan applies an explicit set of field changes. Setting or clearing
// the return date keeps the copy status consistent with the loan.
func (s *Service) UpdateLoan(ctx context.Context, loanID int64, in UpdateInput) (*Entity, error) {
	if in.Empty() {
		return nil, invalid("fields", "at least one field must be provided")
	}
	if in.ReturnDate != nil && in.ClearReturnDate {
		return nil, invalid("return_date", "cannot set and clear return_date together")
	}
	if in.OverdueStatus != nil && !in.OverdueStatus.Valid() {
		return nil, invalid("overdue_status", "must be one of NONE, NOTICE_SENT, LATE")
	}
	if in.StaffID != nil && *in.StaffID <= 0 {
		return nil, invalid("staff_id", "must be a positive integer")
	}
	if in.DueDate != nil {
		d := CivilDate(*in.DueDate)
		in.DueDate = &d
	}
	if in.ReturnDate != nil {
		d := CivilDate(*in.ReturnDate)
		in.ReturnDate = &d
	}

	var out *Entity
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := s.lockLoan(ctx, tx, loanID)
		if err != nil {
			return err
		}

		checkout := CivilDate(cur.CheckoutDate)
		if in.DueDate != nil && in.DueDate.Before(checkout) {
			return invalid("due_date", "must not be before checkout_date")
		}
		if in.ReturnDate != nil && in.ReturnDate.Before(checkout) {
			return invalid("return_date", "must not be before checkout_date")
		}

		if in.StaffID != nil {
			if _, err := tx.Staff().GetByID(ctx, *in.StaffID); err != nil {
				if errors.Is(err, staff.ErrNotFound) {
					return &ReferenceNotFoundError{Kind: KindStaff, Key: strconv.FormatInt(*in.StaffID, 10)}
				}
				return storageErr("get_staff", err)
			}
		}

		switch {
		case in.ReturnDate != nil && cur.Open():
			if err := releaseCopy(ctx, tx, cur.Copy); err != nil {
				return err
			}
		case in.ClearReturnDate && !cur.Open():
			claimed, err := tx.Copies().TransitionStatus(ctx, cur.Copy, catalog.StatusAvailable, catalog.StatusNotAvailable)
			if err != nil {
				return storageErr("claim_copy", err)
			}
			if !claimed {
				return copyUnavailable(ctx, tx, cur.Copy)
			}
		}

		out, err = tx.Loans().Update(ctx, loanID, in)
		if err != nil {
			return s.loanWriteErr("update_loan", loanID, err)
		}

		return s.audit(ctx, tx, auditActionUpdated, loanID, updatePayload(in))
	})
	if err != nil {
		return nil, err
	}

	s.publish(EventLoanUpdated, *out)
	return out, nil
}

// DeleteLoan hard-deletes a loan row. An open loan releases its copy.
func (s *Service) DeleteLoan(ctx context.Context, loanID int64) error {
	var deleted *Entity
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := s.lockLoan(ctx, tx, loanID)
		if err != nil {
			return err
		}
		if err := tx.Loans().Delete(ctx, loanID); err != nil {
			return s.loanWriteErr("delete_loan", loanID, err)
		}
		if cur.Open() {
			if err := releaseCopy(ctx, tx, cur.Copy); err != nil {
				return err
			}
		}
		deleted = cur

		return s.audit(ctx, tx, auditActionDeleted, loanID, map[string]any{
			"member_id": cur.MemberID,
			"isbn":      cur.Copy.ISBN,
			"copy_id":   cur.Copy.CopyID,
			"was_open":  cur.Open(),
		})
	})
	if err != nil {
		return err
	}

	s.publish(EventLoanDeleted, *deleted)
	return nil
}

func (s *Service) GetLoan(ctx context.Context, loanID int64) (*Entity, error) {
	out, err := s.store.Loans().GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, ErrLoanNotFound) {
			return nil, &LoanNotFoundError{ID: loanID}
		}
		return nil, storageErr("get_loan", err)
	}
	return out, nil
}

func (s *Service) ListLoans(ctx context.Context, f ListFilter) ([]Entity, error) {
	items, err := s.store.Loans().List(ctx, f)
	if err != nil {
		return nil, storageErr("list_loans", err)
	}
	return items, nil
}

func (s *Service) lockLoan(ctx context.Context, tx Tx, loanID int64) (*Entity, error) {
	if loanID <= 0 {
		return nil, invalid("loan_id", "must be a positive integer")
	}
	cur, err := tx.Loans().GetForUpdate(ctx, loanID)
	if err != nil {
		if errors.Is(err, ErrLoanNotFound) {
			return nil, &LoanNotFoundError{ID: loanID}
		}
		return nil, storageErr("get_loan", err)
	}
	return cur, nil
}

func (s *Service) loanWriteErr(op string, loanID int64, err error) error {
	if errors.Is(err, ErrLoanNotFound) {
		return &LoanNotFoundError{ID: loanID}
	}
	return storageErr(op, err)
}

func (s *Service) audit(ctx context.Context, tx Tx, action string, loanID int64, fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return storageErr("audit_payload", err)
	}
	if err := tx.Audit().Log(ctx, AuditEntry{
		StaffID: ActorFrom(ctx),
		Action:  action,
		LoanID:  loanID,
		Payload: payload,
	}); err != nil {
		return storageErr("audit_log", err)
	}
	return nil
}

// releaseCopy hands a copy held by a loan back to the shelf. A copy an
// operator has since moved to another status (Lost, Damaged) keeps it.
func releaseCopy(ctx context.Context, tx Tx, key catalog.CopyKey) error {
	if _, err := tx.Copies().TransitionStatus(ctx, key, catalog.StatusNotAvailable, catalog.StatusAvailable); err != nil {
		return storageErr("release_copy", err)
	}
	return nil
}

// copyUnavailable reports the status that made a claim fail.
func copyUnavailable(ctx context.Context, tx Tx, key catalog.CopyKey) error {
	c, err := tx.Copies().GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return &ReferenceNotFoundError{Kind: KindCopy, Key: key.String()}
		}
		return storageErr("get_copy", err)
	}
	return &CopyUnavailableError{Key: key.String(), Status: string(c.Status)}
}

func (s *Service) publish(t EventType, e Entity) {
	s.publisher.Publish(Event{Type: t, Loan: e, OccurredAt: s.now()})
}

func updatePayload(in UpdateInput) map[string]any {
	out := map[string]any{}
	if in.DueDate != nil {
		out["due_date"] = in.DueDate.Format(time.DateOnly)
	}
	if in.ReturnDate != nil {
		out["return_date"] = in.ReturnDate.Format(time.DateOnly)
	}
	if in.ClearReturnDate {
		out["return_date"] = nil
	}
	if in.OverdueStatus != nil {
		out["overdue_status"] = string(*in.OverdueStatus)
	}
	if in.StaffID != nil {
		out["staff_id"] = *in.StaffID
	}
	return out
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
