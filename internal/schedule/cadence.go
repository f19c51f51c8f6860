// Package schedule implements the recurring check-in calendar math:
// deriving a contact's next due date from its cadence and classifying
// due dates as overdue or upcoming relative to a reference date.
//
// All functions are pure and operate on calendar dates (midnight UTC);
// any time-of-day on the inputs is discarded.
package schedule

import "time"

// Cadence is the recurrence interval for a contact's check-ins.
type Cadence string

const (
	Weekly     Cadence = "weekly"
	Monthly    Cadence = "monthly"
	Quarterly  Cadence = "quarterly"
	SemiAnnual Cadence = "semi-annual"
	Annual     Cadence = "annual"
)

// Cadences lists the supported values in ascending interval order.
var Cadences = []Cadence{Weekly, Monthly, Quarterly, SemiAnnual, Annual}

// Normalize maps unknown or empty cadence values to Monthly. Unrecognized
// cadences are tolerated rather than rejected so that a contact with stale
// or malformed data still gets a sensible schedule.
func Normalize(c Cadence) Cadence {
	switch c {
	case Weekly, Monthly, Quarterly, SemiAnnual, Annual:
		return c
	default:
		return Monthly
	}
}

// DateOf truncates t to its calendar date at midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextDue returns the next due date for a check-in completed (or a contact
// created) on ref. The result is always strictly after DateOf(ref).
func NextDue(c Cadence, ref time.Time) time.Time {
	ref = DateOf(ref)
	switch Normalize(c) {
	case Weekly:
		return ref.AddDate(0, 0, 7)
	case Quarterly:
		return addMonths(ref, 3)
	case SemiAnnual:
		return addMonths(ref, 6)
	case Annual:
		return addMonths(ref, 12)
	default:
		return addMonths(ref, 1)
	}
}

// addMonths advances a date by whole calendar months, keeping the
// day-of-month and clamping to the last day when the target month is
// shorter (Jan 31 + 1 month = Feb 28, or Feb 29 in a leap year).
// time.Time.AddDate normalizes overflow into the following month instead,
// which is not what a "monthly" reminder means.
func addMonths(d time.Time, months int) time.Time {
	y, m, day := d.Date()
	m += time.Month(months)
	for m > 12 {
		m -= 12
		y++
	}
	if last := daysIn(y, m); day > last {
		day = last
	}
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// daysIn returns the number of days in the given month. Day 0 of the next
// month normalizes to the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
