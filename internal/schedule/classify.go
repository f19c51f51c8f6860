package schedule

import "time"

// Status reports where a due date stands relative to a reference date.
// Days is always non-negative: it counts days overdue when Overdue is true
// and days until due otherwise. Callers must read Overdue to know the
// direction; the magnitude alone is ambiguous.
type Status struct {
	Overdue bool
	Days    int
}

// Classify compares a due date against a reference date at calendar-date
// granularity. A contact is due on its due date, so equal dates classify
// as overdue with zero days.
func Classify(due, ref time.Time) Status {
	due = DateOf(due)
	ref = DateOf(ref)

	days := int(ref.Sub(due).Hours() / 24)
	if days < 0 {
		return Status{Overdue: false, Days: -days}
	}
	return Status{Overdue: true, Days: days}
}
