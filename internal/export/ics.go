// Package export renders the roster for external tools: an iCalendar feed
// of upcoming check-ins and birthdays, and a vCard dump of the contacts.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/kalambet/tend/internal/storage"
)

const (
	prodID     = "-//tend//check-in calendar//EN"
	icalDomain = "tend.local"
)

// WriteCalendar writes an iCalendar document with one all-day event per
// contact on its next due date, plus a yearly recurring event for each
// known birthday. Birthday summaries carry no age: the stored year (if any)
// is not displayed.
func WriteCalendar(w io.Writer, contacts []storage.Contact, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Props.SetText("X-WR-CALNAME", "tend check-ins")

	for _, c := range contacts {
		cal.Children = append(cal.Children, checkinEvent(c, now).Component)
		if c.Birthday != nil {
			cal.Children = append(cal.Children, birthdayEvent(c, now).Component)
		}
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}

func checkinEvent(c storage.Contact, now time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, fmt.Sprintf("%s-due@%s", c.ID, icalDomain))
	event.Props.SetText(ical.PropSummary, fmt.Sprintf("Check in with %s", c.Name))
	if c.Notes != "" {
		event.Props.SetText(ical.PropDescription, c.Notes)
	}
	setStamp(event, now)
	setAllDay(event, ical.PropDateTimeStart, c.NextDue)
	return event
}

func birthdayEvent(c storage.Contact, now time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, fmt.Sprintf("%s-bday@%s", c.ID, icalDomain))
	event.Props.SetText(ical.PropSummary, fmt.Sprintf("%s's birthday", c.Name))
	setStamp(event, now)
	setAllDay(event, ical.PropDateTimeStart, *c.Birthday)

	rrule := ical.NewProp(ical.PropRecurrenceRule)
	rrule.Value = "FREQ=YEARLY"
	event.Props.Set(rrule)
	return event
}

func setStamp(event *ical.Event, now time.Time) {
	stamp := ical.NewProp(ical.PropDateTimeStamp)
	stamp.SetDateTime(now.UTC())
	event.Props.Set(stamp)
}

func setAllDay(event *ical.Event, name string, d time.Time) {
	prop := ical.NewProp(name)
	prop.SetDate(d)
	event.Props.Set(prop)
}
