package roster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kalambet/tend/internal/clock"
	"github.com/kalambet/tend/internal/schedule"
	"github.com/kalambet/tend/internal/storage"
)

const owner = "local"

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, today time.Time) (*Service, *storage.Store) {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, clock.Fixed{Date: today}), s
}

func TestCreateComputesFirstDueDate(t *testing.T) {
	svc, _ := newTestService(t, date(2024, time.January, 31))

	c, err := svc.Create(context.Background(), owner, NewContact{Name: "Ada", Cadence: schedule.Monthly})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if want := date(2024, time.February, 29); !c.NextDue.Equal(want) {
		t.Errorf("NextDue = %s, want %s", c.NextDue, want)
	}
	if c.ID == "" {
		t.Error("contact id not assigned")
	}
}

func TestCreateNormalizesCadence(t *testing.T) {
	svc, _ := newTestService(t, date(2024, time.June, 5))

	c, err := svc.Create(context.Background(), owner, NewContact{Name: "Bob", Cadence: "every-blue-moon"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Cadence != schedule.Monthly {
		t.Errorf("Cadence = %q, want monthly fallback", c.Cadence)
	}
	if want := date(2024, time.July, 5); !c.NextDue.Equal(want) {
		t.Errorf("NextDue = %s, want %s", c.NextDue, want)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t, date(2024, time.June, 5))
	ctx := context.Background()

	if _, err := svc.Create(ctx, owner, NewContact{Name: "   "}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("blank name: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := svc.Create(ctx, "", NewContact{Name: "Ada"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty owner: err = %v, want ErrInvalidArgument", err)
	}
}

func TestUpdateDoesNotMoveSchedule(t *testing.T) {
	svc, _ := newTestService(t, date(2024, time.March, 10))
	ctx := context.Background()

	c, err := svc.Create(ctx, owner, NewContact{Name: "Ada", Cadence: schedule.Weekly, Notes: "old"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(ctx, owner, c.ID, NewContact{Name: "Ada L.", Cadence: schedule.Annual, Notes: "new"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Cadence != schedule.Annual || updated.Name != "Ada L." {
		t.Errorf("profile not applied: %+v", updated)
	}
	if !updated.NextDue.Equal(c.NextDue) {
		t.Errorf("NextDue moved on edit: %s -> %s", c.NextDue, updated.NextDue)
	}

	if _, err := svc.Update(ctx, owner, "missing", NewContact{Name: "X"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("update missing contact: err = %v, want ErrNotFound", err)
	}
}

func TestListAllSortedAndAnnotated(t *testing.T) {
	today := date(2024, time.January, 15)
	svc, store := newTestService(t, today)
	ctx := context.Background()

	seed := func(name string, due time.Time) {
		t.Helper()
		c, err := svc.Create(ctx, owner, NewContact{Name: name, Cadence: schedule.Monthly})
		if err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
		// Place the due date directly for the scenario.
		if err := store.AdvanceContactSchedule(c.ID, owner, due, c.Version); err != nil {
			t.Fatalf("AdvanceContactSchedule: %v", err)
		}
	}

	seed("Zoe", date(2024, time.January, 5))   // 10 days overdue
	seed("Ann", date(2024, time.January, 25))  // due in 10 days
	seed("Mia", date(2024, time.January, 15))  // due today

	views, err := svc.ListAll(ctx, owner)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("len = %d, want 3", len(views))
	}
	if views[0].Name != "Ann" || views[1].Name != "Mia" || views[2].Name != "Zoe" {
		t.Errorf("order = %q %q %q, want Ann Mia Zoe", views[0].Name, views[1].Name, views[2].Name)
	}

	ann, mia, zoe := views[0], views[1], views[2]
	if ann.Overdue || ann.DaysOverdue != 10 {
		t.Errorf("Ann = {overdue %v, days %d}, want upcoming in 10", ann.Overdue, ann.DaysOverdue)
	}
	if !mia.Overdue || mia.DaysOverdue != 0 {
		t.Errorf("Mia = {overdue %v, days %d}, want overdue 0 (due today)", mia.Overdue, mia.DaysOverdue)
	}
	if !zoe.Overdue || zoe.DaysOverdue != 10 {
		t.Errorf("Zoe = {overdue %v, days %d}, want overdue 10", zoe.Overdue, zoe.DaysOverdue)
	}
}

func TestListDueBoundary(t *testing.T) {
	svc, _ := newTestService(t, date(2024, time.January, 1))
	ctx := context.Background()

	c, err := svc.Create(ctx, owner, NewContact{Name: "Ada", Cadence: schedule.Weekly})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if want := date(2024, time.January, 8); !c.NextDue.Equal(want) {
		t.Fatalf("NextDue = %s, want %s", c.NextDue, want)
	}

	// On the due date the contact is included, overdue with zero days.
	views, err := svc.ListDue(ctx, owner, date(2024, time.January, 8))
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("len on due date = %d, want 1", len(views))
	}
	if !views[0].Overdue || views[0].DaysOverdue != 0 {
		t.Errorf("view = {overdue %v, days %d}, want {true, 0}", views[0].Overdue, views[0].DaysOverdue)
	}

	// The day before, it is excluded.
	views, err = svc.ListDue(ctx, owner, date(2024, time.January, 7))
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(views) != 0 {
		t.Errorf("len the day before = %d, want 0", len(views))
	}
}

func TestListDueDefaultsToClock(t *testing.T) {
	svc, store := newTestService(t, date(2024, time.February, 10))
	ctx := context.Background()

	c, err := svc.Create(ctx, owner, NewContact{Name: "Ada", Cadence: schedule.Weekly})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.AdvanceContactSchedule(c.ID, owner, date(2024, time.February, 3), c.Version); err != nil {
		t.Fatalf("AdvanceContactSchedule: %v", err)
	}

	views, err := svc.ListDue(ctx, owner, time.Time{})
	if err != nil {
		t.Fatalf("ListDue(zero ref): %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("len = %d, want 1", len(views))
	}
	if views[0].DaysOverdue != 7 || !views[0].Overdue {
		t.Errorf("view = {overdue %v, days %d}, want {true, 7}", views[0].Overdue, views[0].DaysOverdue)
	}
}

func TestListDueSortedByDueDate(t *testing.T) {
	svc, store := newTestService(t, date(2024, time.March, 1))
	ctx := context.Background()

	seed := func(name string, due time.Time) string {
		t.Helper()
		c, err := svc.Create(ctx, owner, NewContact{Name: name, Cadence: schedule.Monthly})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := store.AdvanceContactSchedule(c.ID, owner, due, c.Version); err != nil {
			t.Fatalf("AdvanceContactSchedule: %v", err)
		}
		return c.ID
	}

	seed("Late", date(2024, time.January, 10))
	seed("Later", date(2024, time.February, 20))
	seed("NotDue", date(2024, time.April, 1))

	views, err := svc.ListDue(ctx, owner, date(2024, time.March, 1))
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len = %d, want 2", len(views))
	}
	if views[0].Name != "Late" || views[1].Name != "Later" {
		t.Errorf("order = %q %q, want earliest-overdue first", views[0].Name, views[1].Name)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t, date(2024, time.March, 1))
	ctx := context.Background()

	c, err := svc.Create(ctx, owner, NewContact{Name: "Ada"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, owner, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, owner, c.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
}
