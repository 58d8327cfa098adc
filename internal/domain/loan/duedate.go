package loan

import "time"

const (
	DefaultStandardDays   = 30
	DefaultPrivilegedDays = 90
)

type DueDatePolicy struct {
	StandardDays   int
	PrivilegedDays int
}

func DefaultDueDatePolicy() DueDatePolicy {
	return DueDatePolicy{StandardDays: DefaultStandardDays, PrivilegedDays: DefaultPrivilegedDays}
}

// DueDate returns the default due date for a checkout. Non-positive day
// counts fall back to the defaults.
func (p DueDatePolicy) DueDate(checkout time.Time, privileged bool) time.Time {
	days := p.StandardDays
	if days <= 0 {
		days = DefaultStandardDays
	}
	if privileged {
		days = p.PrivilegedDays
		if days <= 0 {
			days = DefaultPrivilegedDays
		}
	}
	return CivilDate(checkout).AddDate(0, 0, days)
}

func ComputeDueDate(checkout time.Time, privileged bool) time.Time {
	return DefaultDueDatePolicy().DueDate(checkout, privileged)
}

// CivilDate drops the clock part of t, keeping its calendar day.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
