package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/circdesk/backend/internal/domain/loan"
)

const (
	DefaultTopBorrowersDays   = 30
	DefaultStaffActivityWeeks = 1
)

type Service struct {
	repo               Repository
	now                func() time.Time
	topBorrowersDays   int
	staffActivityWeeks int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithWindows overrides the default report windows. Non-positive values keep
// the defaults.
func WithWindows(topBorrowersDays, staffActivityWeeks int) Option {
	return func(s *Service) {
		if topBorrowersDays > 0 {
			s.topBorrowersDays = topBorrowersDays
		}
		if staffActivityWeeks > 0 {
			s.staffActivityWeeks = staffActivityWeeks
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:               repo,
		now:                func() time.Time { return time.Now().UTC() },
		topBorrowersDays:   DefaultTopBorrowersDays,
		staffActivityWeeks: DefaultStaffActivityWeeks,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return loan.CivilDate(s.now())
}

// OverdueLoans lists open loans whose due date is before asOf. A zero asOf
// means today.
func (s *Service) OverdueLoans(ctx context.Context, asOf time.Time) ([]OverdueLoan, error) {
	if asOf.IsZero() {
		asOf = s.today()
	}
	asOf = loan.CivilDate(asOf)

	items, err := s.repo.OverdueLoans(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("overdue loans: %w", err)
	}
	out := make([]OverdueLoan, 0, len(items))
	for _, it := range items {
		it.DaysOverdue = int(asOf.Sub(loan.CivilDate(it.DueDate)).Hours() / 24)
		if it.DaysOverdue <= 0 {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].LoanID < out[j].LoanID
	})
	return out, nil
}

// TopBorrowers ranks members by loans checked out within the last windowDays
// days. windowDays <= 0 uses the configured default and limit <= 0 returns
// every member with at least one loan.
func (s *Service) TopBorrowers(ctx context.Context, windowDays, limit int) ([]TopBorrower, error) {
	if windowDays <= 0 {
		windowDays = s.topBorrowersDays
	}
	since := s.today().AddDate(0, 0, -windowDays)

	items, err := s.repo.TopBorrowers(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("top borrowers: %w", err)
	}
	out := append(make([]TopBorrower, 0, len(items)), items...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LoanCount != out[j].LoanCount {
			return out[i].LoanCount > out[j].LoanCount
		}
		return out[i].MemberID < out[j].MemberID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Service) AvailableCopiesBySubject(ctx context.Context) ([]SubjectAvailability, error) {
	items, err := s.repo.AvailableCopiesBySubject(ctx)
	if err != nil {
		return nil, fmt.Errorf("available copies by subject: %w", err)
	}
	out := append(make([]SubjectAvailability, 0, len(items)), items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out, nil
}

// StaffActivity counts checkouts per staff member over the last windowWeeks
// weeks.
func (s *Service) StaffActivity(ctx context.Context, windowWeeks int) ([]StaffActivity, error) {
	if windowWeeks <= 0 {
		windowWeeks = s.staffActivityWeeks
	}
	since := s.today().AddDate(0, 0, -7*windowWeeks)

	items, err := s.repo.StaffActivity(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("staff activity: %w", err)
	}
	out := append(make([]StaffActivity, 0, len(items)), items...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Checkouts != out[j].Checkouts {
			return out[i].Checkouts > out[j].Checkouts
		}
		return out[i].StaffID < out[j].StaffID
	})
	return out, nil
}
