package loan_test

import (
	"context"
	"sort"
	"time"

	"github.com/circdesk/backend/internal/domain/catalog"
	"github.com/circdesk/backend/internal/domain/loan"
	"github.com/circdesk/backend/internal/domain/member"
	"github.com/circdesk/backend/internal/domain/staff"
)

type memState struct {
	members map[int64]member.Entity
	copies  map[catalog.CopyKey]catalog.Copy
	staff   map[int64]staff.Entity
	loans   map[int64]loan.Entity
	audit   []loan.AuditEntry
}

func (s *memState) clone() *memState {
	out := &memState{
		members: map[int64]member.Entity{},
		copies:  map[catalog.CopyKey]catalog.Copy{},
		staff:   map[int64]staff.Entity{},
		loans:   map[int64]loan.Entity{},
		audit:   append([]loan.AuditEntry(nil), s.audit...),
	}
	for k, v := range s.members {
		out.members[k] = v
	}
	for k, v := range s.copies {
		out.copies[k] = v
	}
	for k, v := range s.staff {
		out.staff[k] = v
	}
	for k, v := range s.loans {
		out.loans[k] = v
	}
	return out
}

// memStore is an in-memory loan.Store. A failing transaction restores the
// state it started from.
type memStore struct {
	state *memState
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		members: map[int64]member.Entity{},
		copies:  map[catalog.CopyKey]catalog.Copy{},
		staff:   map[int64]staff.Entity{},
		loans:   map[int64]loan.Entity{},
	}}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx loan.Tx) error) error {
	snapshot := m.state.clone()
	if err := fn(ctx, memTx{m}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memStore) Loans() loan.Repository { return memLoans{m} }

type memTx struct{ m *memStore }

func (t memTx) Members() member.Repository    { return memMembers{t.m} }
func (t memTx) Copies() catalog.CopyRepository { return memCopies{t.m} }
func (t memTx) Staff() staff.Repository        { return memStaff{t.m} }
func (t memTx) Loans() loan.Repository         { return memLoans{t.m} }
func (t memTx) Audit() loan.AuditRepository    { return memAudit{t.m} }

type memMembers struct{ m *memStore }

func (r memMembers) GetByID(_ context.Context, id int64) (*member.Entity, error) {
	e, ok := r.m.state.members[id]
	if !ok {
		return nil, member.ErrNotFound
	}
	return &e, nil
}

type memStaff struct{ m *memStore }

func (r memStaff) GetByID(_ context.Context, id int64) (*staff.Entity, error) {
	e, ok := r.m.state.staff[id]
	if !ok {
		return nil, staff.ErrNotFound
	}
	return &e, nil
}

type memCopies struct{ m *memStore }

func (r memCopies) GetByKey(_ context.Context, key catalog.CopyKey) (*catalog.Copy, error) {
	c, ok := r.m.state.copies[key]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &c, nil
}

func (r memCopies) TransitionStatus(_ context.Context, key catalog.CopyKey, from, to catalog.CopyStatus) (bool, error) {
	c, ok := r.m.state.copies[key]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	r.m.state.copies[key] = c
	return true, nil
}

type memLoans struct{ m *memStore }

func (r memLoans) Create(_ context.Context, in loan.InsertInput) (*loan.Entity, error) {
	if _, ok := r.m.state.loans[in.ID]; ok {
		return nil, loan.ErrDuplicateLoan
	}
	e := loan.Entity{
		ID:            in.ID,
		MemberID:      in.MemberID,
		Copy:          in.Copy,
		CheckoutDate:  in.CheckoutDate,
		DueDate:       in.DueDate,
		OverdueStatus: loan.OverdueNone,
		StaffID:       in.StaffID,
	}
	r.m.state.loans[in.ID] = e
	return &e, nil
}

func (r memLoans) GetByID(_ context.Context, id int64) (*loan.Entity, error) {
	e, ok := r.m.state.loans[id]
	if !ok {
		return nil, loan.ErrLoanNotFound
	}
	return &e, nil
}

func (r memLoans) GetForUpdate(ctx context.Context, id int64) (*loan.Entity, error) {
	return r.GetByID(ctx, id)
}

func (r memLoans) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := r.m.state.loans[id]
	return ok, nil
}

func (r memLoans) Update(_ context.Context, id int64, in loan.UpdateInput) (*loan.Entity, error) {
	e, ok := r.m.state.loans[id]
	if !ok {
		return nil, loan.ErrLoanNotFound
	}
	if in.DueDate != nil {
		e.DueDate = *in.DueDate
	}
	if in.ReturnDate != nil {
		d := *in.ReturnDate
		e.ReturnDate = &d
	}
	if in.ClearReturnDate {
		e.ReturnDate = nil
	}
	if in.OverdueStatus != nil {
		e.OverdueStatus = *in.OverdueStatus
	}
	if in.StaffID != nil {
		e.StaffID = *in.StaffID
	}
	r.m.state.loans[id] = e
	return &e, nil
}

func (r memLoans) SetReturnDate(_ context.Context, id int64, returnDate time.Time) (*loan.Entity, error) {
	e, ok := r.m.state.loans[id]
	if !ok {
		return nil, loan.ErrLoanNotFound
	}
	e.ReturnDate = &returnDate
	r.m.state.loans[id] = e
	return &e, nil
}

func (r memLoans) Delete(_ context.Context, id int64) error {
	if _, ok := r.m.state.loans[id]; !ok {
		return loan.ErrLoanNotFound
	}
	delete(r.m.state.loans, id)
	return nil
}

func (r memLoans) List(_ context.Context, f loan.ListFilter) ([]loan.Entity, error) {
	out := make([]loan.Entity, 0)
	for _, e := range r.m.state.loans {
		if f.MemberID != 0 && e.MemberID != f.MemberID {
			continue
		}
		if f.OpenOnly && !e.Open() {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memAudit struct{ m *memStore }

func (r memAudit) Log(_ context.Context, in loan.AuditEntry) error {
	r.m.state.audit = append(r.m.state.audit, in)
	return nil
}

type recordingPublisher struct {
	events []loan.Event
}

func (p *recordingPublisher) Publish(ev loan.Event) {
	p.events = append(p.events, ev)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
