package loan

import "time"

// ClassifyOverdue derives the overdue classification of a loan as of a day.
// LATE and NONE come from the dates only. NOTICE_SENT is taken from the stored
// hint because notices are recorded by the notice worker, not by the calendar.
func ClassifyOverdue(e Entity, asOf time.Time) OverdueStatus {
	if e.Open() && CivilDate(asOf).After(CivilDate(e.DueDate)) {
		return OverdueLate
	}
	if e.OverdueStatus == OverdueNoticeSent {
		return OverdueNoticeSent
	}
	return OverdueNone
}

// DaysOverdue is zero for returned loans and loans not yet due.
func DaysOverdue(e Entity, asOf time.Time) int {
	if !e.Open() {
		return 0
	}
	days := int(CivilDate(asOf).Sub(CivilDate(e.DueDate)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
