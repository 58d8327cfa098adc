package loan_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circdesk/backend/internal/domain/catalog"
	"github.com/circdesk/backend/internal/domain/loan"
	"github.com/circdesk/backend/internal/domain/member"
	"github.com/circdesk/backend/internal/domain/staff"
)

var (
	copyA = catalog.CopyKey{ISBN: "978-0134190440", CopyID: 1}
	copyB = catalog.CopyKey{ISBN: "978-0134190440", CopyID: 2}
)

type fixture struct {
	store *memStore
	pub   *recordingPublisher
	svc   *loan.Service
	today time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	store.state.members[1] = member.Entity{ID: 1, Name: "Ada", Active: true}
	store.state.members[2] = member.Entity{ID: 2, Name: "Prof. Knuth", Active: true, ProfessorPrivileges: true}
	store.state.copies[copyA] = catalog.Copy{Key: copyA, Status: catalog.StatusAvailable}
	store.state.copies[copyB] = catalog.Copy{Key: copyB, Status: catalog.StatusAvailable}
	store.state.staff[7] = staff.Entity{ID: 7, Name: "Desk", Role: "clerk"}
	store.state.staff[8] = staff.Entity{ID: 8, Name: "Head", Role: "admin"}

	today := date(2024, time.December, 15)
	pub := &recordingPublisher{}
	svc := loan.NewService(store,
		loan.WithPublisher(pub),
		loan.WithClock(func() time.Time { return today.Add(10 * time.Hour) }),
	)
	return &fixture{store: store, pub: pub, svc: svc, today: today}
}

func (f *fixture) create(t *testing.T, id, memberID int64, key catalog.CopyKey) *loan.Entity {
	t.Helper()
	e, err := f.svc.CreateLoan(context.Background(), loan.CreateInput{
		ID: id, MemberID: memberID, Copy: key, StaffID: 7,
	})
	require.NoError(t, err)
	return e
}

func TestCreateLoanReportsMissingReferencesInOrder(t *testing.T) {
	missingCopy := catalog.CopyKey{ISBN: "000", CopyID: 9}
	cases := []struct {
		name     string
		memberID int64
		copy     catalog.CopyKey
		staffID  int64
		kind     loan.EntityKind
	}{
		{"member first when everything is missing", 99, missingCopy, 99, loan.KindMember},
		{"copy before staff", 1, missingCopy, 99, loan.KindCopy},
		{"staff last", 1, copyA, 99, loan.KindStaff},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.CreateLoan(context.Background(), loan.CreateInput{
				ID: 100, MemberID: tc.memberID, Copy: tc.copy, StaffID: tc.staffID,
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, loan.ErrReferenceNotFound)

			var ref *loan.ReferenceNotFoundError
			require.True(t, errors.As(err, &ref))
			assert.Equal(t, tc.kind, ref.Kind)

			assert.Empty(t, f.store.state.loans)
			assert.Empty(t, f.store.state.audit)
			assert.Empty(t, f.pub.events)
			assert.Equal(t, catalog.StatusAvailable, f.store.state.copies[copyA].Status)
		})
	}
}

func TestCreateLoanAppliesDueDatePolicy(t *testing.T) {
	f := newFixture(t)

	standard := f.create(t, 100, 1, copyA)
	assert.Equal(t, f.today, standard.CheckoutDate)
	assert.Equal(t, date(2025, time.January, 14), standard.DueDate)
	assert.Nil(t, standard.ReturnDate)
	assert.Equal(t, loan.OverdueNone, standard.OverdueStatus)
	assert.Equal(t, int64(7), standard.StaffID)

	privileged := f.create(t, 101, 2, copyB)
	assert.Equal(t, date(2025, time.March, 15), privileged.DueDate)

	assert.Equal(t, catalog.StatusNotAvailable, f.store.state.copies[copyA].Status)
	assert.Equal(t, catalog.StatusNotAvailable, f.store.state.copies[copyB].Status)
}

func TestCreateLoanWritesAuditAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := loan.WithActor(context.Background(), 8)

	_, err := f.svc.CreateLoan(ctx, loan.CreateInput{ID: 100, MemberID: 1, Copy: copyA, StaffID: 7})
	require.NoError(t, err)

	require.Len(t, f.store.state.audit, 1)
	entry := f.store.state.audit[0]
	assert.Equal(t, "loan_created", entry.Action)
	assert.Equal(t, int64(8), entry.StaffID)
	assert.Equal(t, int64(100), entry.LoanID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(entry.Payload, &payload))
	assert.Equal(t, "2025-01-14", payload["due_date"])

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, loan.EventLoanCreated, f.pub.events[0].Type)
	assert.Equal(t, int64(100), f.pub.events[0].Loan.ID)
}

func TestCreateLoanHonoursExplicitDates(t *testing.T) {
	f := newFixture(t)
	due := date(2024, time.December, 20)

	e, err := f.svc.CreateLoan(context.Background(), loan.CreateInput{
		ID: 100, MemberID: 1, Copy: copyA, StaffID: 7,
		CheckoutDate: date(2024, time.December, 1),
		DueDate:      &due,
	})
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.December, 1), e.CheckoutDate)
	assert.Equal(t, due, e.DueDate)

	early := date(2024, time.November, 1)
	_, err = f.svc.CreateLoan(context.Background(), loan.CreateInput{
		ID: 101, MemberID: 1, Copy: copyB, StaffID: 7,
		CheckoutDate: date(2024, time.December, 1),
		DueDate:      &early,
	})
	assert.ErrorIs(t, err, loan.ErrInvalidInput)
	assert.Equal(t, catalog.StatusAvailable, f.store.state.copies[copyB].Status)
}

func TestCreateLoanRejectsDuplicateID(t *testing.T) {
	f := newFixture(t)
	f.create(t, 100, 1, copyA)

	_, err := f.svc.CreateLoan(context.Background(), loan.CreateInput{ID: 100, MemberID: 2, Copy: copyB, StaffID: 7})
	require.Error(t, err)
	var dup *loan.DuplicateLoanError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, int64(100), dup.ID)

	assert.Equal(t, int64(1), f.store.state.loans[100].MemberID)
	assert.Equal(t, catalog.StatusAvailable, f.store.state.copies[copyB].Status)
}

func TestCreateLoanRejectsUnavailableCopy(t *testing.T) {
	f := newFixture(t)
	f.create(t, 100, 1, copyA)

	_, err := f.svc.CreateLoan(context.Background(), loan.CreateInput{ID: 101, MemberID: 2, Copy: copyA, StaffID: 7})
	assert.ErrorIs(t, err, loan.ErrCopyUnavailable)
	assert.Len(t, f.store.state.loans, 1)
}

func TestCreateLoanRejectsMalformedInput(t *testing.T) {
	f := newFixture(t)
	for _, in := range []loan.CreateInput{
		{ID: 0, MemberID: 1, Copy: copyA, StaffID: 7},
		{ID: 1, MemberID: 0, Copy: copyA, StaffID: 7},
		{ID: 1, MemberID: 1, Copy: catalog.CopyKey{}, StaffID: 7},
		{ID: 1, MemberID: 1, Copy: copyA, StaffID: -1},
	} {
		_, err := f.svc.CreateLoan(context.Background(), in)
		var ve *loan.ValidationError
		assert.True(t, errors.As(err, &ve), "%+v", in)
	}
}

func TestRecordReturn(t *testing.T) {
	f := newFixture(t)
	f.create(t, 100, 1, copyA)

	out, err := f.svc.RecordReturn(context.Background(), 100, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, out.ReturnDate)
	assert.Equal(t, f.today, *out.ReturnDate)
	assert.Equal(t, loan.StateReturned, out.State())
	assert.Equal(t, catalog.StatusAvailable, f.store.state.copies[copyA].Status)
	assert.Len(t, f.pub.events, 2)

	again, err := f.svc.RecordReturn(context.Background(), 100, f.today)
	require.NoError(t, err)
	assert.Equal(t, out.ReturnDate, again.ReturnDate)
	assert.Len(t, f.pub.events, 2)
	assert.Len(t, f.store.state.audit, 2)
}

func TestRecordReturnRejectsDateBeforeCheckout(t *testing.T) {
	f := newFixture(t)
	f.create(t, 100, 1, copyA)

	_, err := f.svc.RecordReturn(context.Background(), 100, date(2024, time.December, 1))
	assert.ErrorIs(t, err, loan.ErrInvalidInput)
	assert.True(t, f.store.state.loans[100].Open())
}

func TestRecordReturnUnknownLoan(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordReturn(context.Background(), 404, time.Time{})
	var nf *loan.LoanNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, int64(404), nf.ID)
}

func TestUpdateLoan(t *testing.T) {
	f := newFixture(t)
	f.create(t, 100, 1, copyA)

	_, err := f.svc.UpdateLoan(context.Background(), 100, loan.UpdateInput{})
	assert.ErrorIs(t, err, loan.ErrInvalidInput)

	notice := loan.OverdueNoticeSent
	out, err := f.svc.UpdateLoan(context.Background(), 100, loan.UpdateInput{OverdueStatus: &notice})
	require.NoError(t, err)
	assert.Equal(t, loan.OverdueNoticeSent, out.OverdueStatus)
	assert.Equal(t, loan.OverdueNoticeSent, f.svc.Classify(*out))

	bogus := loan.OverdueStatus("MAYBE")
	_, err = f.svc.UpdateLoan(context.Background(), 100, loan.UpdateInput{OverdueStatus: &bogus})
	assert.ErrorIs(t, err, loan.ErrInvalidInput)

	ghost := int64(99)
	_, err = f.svc.UpdateLoan(context.Background(), 100, loan.UpdateInput{StaffID: &ghost})
	var ref *loan.ReferenceNotFoundError
	require.True(t, errors.As(err, &ref))
	assert.Equal(t, loan.KindStaff, ref.Kind)

	other := int64(8)
	out, err = f.svc.UpdateLoan(context.Background(), 100, loan.UpdateInput{StaffID: &other})
	require.NoError(t, err)
	assert.Equal(t, int64(8), out.StaffID)
}

func TestUpdateLoanKeepsCopyStatusInStep(t *testing.T) {
	f := newFixture(t)
	f.create(t, 100, 1, copyA)

	ret := date(2024, time.December, 20)
	out, err := f.svc.UpdateLoan(context.Background(), 100, loan.UpdateInput{ReturnDate: &ret})
	require.NoError(t, err)
	assert.False(t, out.Open())
	assert.Equal(t, catalog.StatusAvailable, f.store.state.copies[copyA].Status)

	out, err = f.svc.UpdateLoan(context.Background(), 100, loan.UpdateInput{ClearReturnDate: true})
	require.NoError(t, err)
	assert.True(t, out.Open())
	assert.Equal(t, catalog.StatusNotAvailable, f.store.state.copies[copyA].Status)

	_, err = f.svc.UpdateLoan(context.Background(), 100, loan.UpdateInput{ReturnDate: &ret, ClearReturnDate: true})
	assert.ErrorIs(t, err, loan.ErrInvalidInput)
}

func TestUpdateLoanCannotReopenOntoClaimedCopy(t *testing.T) {
	f := newFixture(t)
	f.create(t, 100, 1, copyA)
	_, err := f.svc.RecordReturn(context.Background(), 100, time.Time{})
	require.NoError(t, err)
	f.create(t, 101, 2, copyA)

	_, err = f.svc.UpdateLoan(context.Background(), 100, loan.UpdateInput{ClearReturnDate: true})
	assert.ErrorIs(t, err, loan.ErrCopyUnavailable)
	var cu *loan.CopyUnavailableError
	require.True(t, errors.As(err, &cu))
	assert.Equal(t, string(catalog.StatusNotAvailable), cu.Status)
	assert.False(t, f.store.state.loans[100].Open())

	markCopy(f, copyA, catalog.CopyStatus("Damaged"))
	_, err = f.svc.UpdateLoan(context.Background(), 101, loan.UpdateInput{ReturnDate: ptrDate(date(2024, time.December, 20))})
	require.NoError(t, err)
	_, err = f.svc.UpdateLoan(context.Background(), 100, loan.UpdateInput{ClearReturnDate: true})
	require.True(t, errors.As(err, &cu))
	assert.Equal(t, "Damaged", cu.Status)
}

func ptrDate(d time.Time) *time.Time { return &d }

func TestDeleteLoan(t *testing.T) {
	f := newFixture(t)
	f.create(t, 100, 1, copyA)

	require.NoError(t, f.svc.DeleteLoan(context.Background(), 100))
	assert.NotContains(t, f.store.state.loans, int64(100))
	assert.Equal(t, catalog.StatusAvailable, f.store.state.copies[copyA].Status)
	assert.Equal(t, loan.EventLoanDeleted, f.pub.events[len(f.pub.events)-1].Type)

	err := f.svc.DeleteLoan(context.Background(), 100)
	assert.ErrorIs(t, err, loan.ErrLoanNotFound)
}

func markCopy(f *fixture, key catalog.CopyKey, status catalog.CopyStatus) {
	c := f.store.state.copies[key]
	c.Status = status
	f.store.state.copies[key] = c
}

func TestClosingLoanKeepsOperatorCopyStatus(t *testing.T) {
	lost := catalog.CopyStatus("Lost")

	t.Run("delete", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 100, 1, copyA)
		markCopy(f, copyA, lost)

		require.NoError(t, f.svc.DeleteLoan(context.Background(), 100))
		assert.Equal(t, lost, f.store.state.copies[copyA].Status)
	})

	t.Run("return", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 100, 1, copyA)
		markCopy(f, copyA, lost)

		_, err := f.svc.RecordReturn(context.Background(), 100, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, lost, f.store.state.copies[copyA].Status)
	})

	t.Run("update return date", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 100, 1, copyA)
		markCopy(f, copyA, lost)

		ret := date(2024, time.December, 20)
		_, err := f.svc.UpdateLoan(context.Background(), 100, loan.UpdateInput{ReturnDate: &ret})
		require.NoError(t, err)
		assert.Equal(t, lost, f.store.state.copies[copyA].Status)
	})
}

func TestGetAndListLoans(t *testing.T) {
	f := newFixture(t)
	f.create(t, 100, 1, copyA)
	f.create(t, 101, 2, copyB)
	_, err := f.svc.RecordReturn(context.Background(), 101, time.Time{})
	require.NoError(t, err)

	got, err := f.svc.GetLoan(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.MemberID)

	_, err = f.svc.GetLoan(context.Background(), 5)
	assert.ErrorIs(t, err, loan.ErrLoanNotFound)

	open, err := f.svc.ListLoans(context.Background(), loan.ListFilter{OpenOnly: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, int64(100), open[0].ID)

	byMember, err := f.svc.ListLoans(context.Background(), loan.ListFilter{MemberID: 2})
	require.NoError(t, err)
	require.Len(t, byMember, 1)
	assert.Equal(t, int64(101), byMember[0].ID)
}

type failingLoans struct {
	loan.Repository
}

func (failingLoans) GetByID(context.Context, int64) (*loan.Entity, error) {
	return nil, errors.New("connection reset")
}

type failingStore struct{ *memStore }

func (s failingStore) Loans() loan.Repository { return failingLoans{} }

func TestGetLoanWrapsStorageFailure(t *testing.T) {
	svc := loan.NewService(failingStore{newMemStore()})

	_, err := svc.GetLoan(context.Background(), 1)
	assert.ErrorIs(t, err, loan.ErrStorage)
	var se *loan.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "get_loan", se.Op)
}
