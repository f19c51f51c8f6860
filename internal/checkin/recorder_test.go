package checkin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/tend/internal/clock"
	"github.com/kalambet/tend/internal/schedule"
	"github.com/kalambet/tend/internal/storage"
)

const owner = "local"

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedContact(t *testing.T, s *storage.Store, id string, cadence schedule.Cadence, due time.Time) {
	t.Helper()
	now := date(2024, time.January, 1)
	err := s.InsertContact(storage.Contact{
		ID:        id,
		OwnerID:   owner,
		Name:      "Grace",
		Cadence:   cadence,
		NextDue:   due,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("InsertContact: %v", err)
	}
}

func TestRecordAdvancesSchedule(t *testing.T) {
	s := openTestStore(t)
	seedContact(t, s, "c-1", schedule.Weekly, date(2024, time.January, 8))

	clk := clock.Fixed{Date: date(2024, time.January, 10)}
	rec := New(s, clk)

	res, err := rec.Record(context.Background(), owner, "c-1", "caught up over coffee")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	wantDue := date(2024, time.January, 17)
	if !res.Contact.NextDue.Equal(wantDue) {
		t.Errorf("NextDue = %s, want %s", res.Contact.NextDue, wantDue)
	}
	if res.Interaction.Summary != "caught up over coffee" {
		t.Errorf("Summary = %q", res.Interaction.Summary)
	}
	if !res.Interaction.OccurredAt.Equal(clk.Now()) {
		t.Errorf("OccurredAt = %s, want clock time %s", res.Interaction.OccurredAt, clk.Now())
	}

	// The returned contact matches what was persisted.
	stored, err := s.GetContact("c-1", owner)
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if !stored.NextDue.Equal(wantDue) || stored.Version != res.Contact.Version {
		t.Errorf("stored contact = {due %s, v%d}, returned {due %s, v%d}",
			stored.NextDue, stored.Version, res.Contact.NextDue, res.Contact.Version)
	}
}

func TestRecordAnnualScenario(t *testing.T) {
	s := openTestStore(t)
	seedContact(t, s, "c-1", schedule.Annual, date(2024, time.March, 1))

	rec := New(s, clock.Fixed{Date: date(2024, time.March, 1)})

	res, err := rec.Record(context.Background(), owner, "c-1", "")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if want := date(2025, time.March, 1); !res.Contact.NextDue.Equal(want) {
		t.Errorf("NextDue = %s, want %s", res.Contact.NextDue, want)
	}
}

func TestRecordEmptySummaryStored(t *testing.T) {
	s := openTestStore(t)
	seedContact(t, s, "c-1", schedule.Monthly, date(2024, time.February, 1))

	rec := New(s, clock.Fixed{Date: date(2024, time.February, 1)})
	res, err := rec.Record(context.Background(), owner, "c-1", "")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	stored, err := s.GetInteraction(res.Interaction.ID, owner)
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}
	if stored.Summary != "" {
		t.Errorf("Summary = %q, want empty string", stored.Summary)
	}
}

func TestRecordValidation(t *testing.T) {
	s := openTestStore(t)
	rec := New(s, clock.Fixed{Date: date(2024, time.January, 1)})
	ctx := context.Background()

	if _, err := rec.Record(ctx, owner, "", "hi"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty contact id: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := rec.Record(ctx, "", "c-1", "hi"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty owner id: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := rec.Record(ctx, owner, "no-such-contact", "hi"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown contact: err = %v, want ErrNotFound", err)
	}

	seedContact(t, s, "c-1", schedule.Monthly, date(2024, time.February, 1))
	if _, err := rec.Record(ctx, "other-owner", "c-1", "hi"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("wrong owner: err = %v, want ErrNotFound", err)
	}
}

// TestRecordSequentialCompounds verifies that a second check-in computes its
// due date from the clock at its own call time, not from stale state.
func TestRecordSequentialCompounds(t *testing.T) {
	s := openTestStore(t)
	seedContact(t, s, "c-1", schedule.Monthly, date(2024, time.February, 1))

	sim := clock.NewSimulator(clock.Fixed{Date: date(2024, time.February, 1)})
	rec := New(s, sim)
	ctx := context.Background()

	first, err := rec.Record(ctx, owner, "c-1", "first")
	if err != nil {
		t.Fatalf("first Record: %v", err)
	}
	if want := date(2024, time.March, 1); !first.Contact.NextDue.Equal(want) {
		t.Fatalf("first NextDue = %s, want %s", first.Contact.NextDue, want)
	}

	// Simulate the passage of a month and complete the next check-in.
	sim.Set(first.Contact.NextDue)
	second, err := rec.Record(ctx, owner, "c-1", "second")
	if err != nil {
		t.Fatalf("second Record: %v", err)
	}
	if want := date(2024, time.April, 1); !second.Contact.NextDue.Equal(want) {
		t.Errorf("second NextDue = %s, want %s (computed from first result)", second.Contact.NextDue, want)
	}
}

// staleReadStore serves every GetContact from a snapshot taken at creation,
// so two Record calls both observe the same prior version and race on the
// compare-and-set.
type staleReadStore struct {
	*storage.Store
	mu       sync.Mutex
	snapshot storage.Contact
}

func (s *staleReadStore) GetContact(id, ownerID string) (storage.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.snapshot.ID && ownerID == s.snapshot.OwnerID {
		return s.snapshot, nil
	}
	return s.Store.GetContact(id, ownerID)
}

func TestRecordConcurrentLoserGetsConflict(t *testing.T) {
	s := openTestStore(t)
	seedContact(t, s, "c-1", schedule.Weekly, date(2024, time.January, 8))

	snapshot, err := s.GetContact("c-1", owner)
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	stale := &staleReadStore{Store: s, snapshot: snapshot}
	rec := New(stale, clock.Fixed{Date: date(2024, time.January, 8)})

	results := make([]error, 2)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			_, results[i] = rec.Record(context.Background(), owner, "c-1", "racing")
			return nil
		})
	}
	g.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, storage.ErrConflict):
			conflicts++
			var pf *PartialFailure
			if !errors.As(err, &pf) {
				t.Errorf("conflict not reported as PartialFailure: %v", err)
			} else if pf.Interaction.ID == "" {
				t.Error("PartialFailure carries no interaction")
			}
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Errorf("wins = %d, conflicts = %d; want exactly one of each", wins, conflicts)
	}

	// Both interactions were logged; the schedule advanced exactly once.
	interactions, err := s.ListInteractions(owner, "c-1", 10)
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(interactions) != 2 {
		t.Errorf("len(interactions) = %d, want 2", len(interactions))
	}
	final, err := s.GetContact("c-1", owner)
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if final.Version != snapshot.Version+1 {
		t.Errorf("final version = %d, want %d", final.Version, snapshot.Version+1)
	}
}

// failingAdvanceStore simulates a storage outage on the schedule write.
type failingAdvanceStore struct {
	*storage.Store
	advanceErr error
}

func (s *failingAdvanceStore) AdvanceContactSchedule(id, ownerID string, nextDue time.Time, expectedVersion int64) error {
	if s.advanceErr != nil {
		return s.advanceErr
	}
	return s.Store.AdvanceContactSchedule(id, ownerID, nextDue, expectedVersion)
}

func TestRecordPartialFailureAndRetry(t *testing.T) {
	s := openTestStore(t)
	seedContact(t, s, "c-1", schedule.Quarterly, date(2024, time.January, 15))

	outage := errors.New("storage unavailable")
	failing := &failingAdvanceStore{Store: s, advanceErr: outage}
	rec := New(failing, clock.Fixed{Date: date(2024, time.January, 15)})
	ctx := context.Background()

	_, err := rec.Record(ctx, owner, "c-1", "flaky write")
	var pf *PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("err = %v, want *PartialFailure", err)
	}
	if !errors.Is(err, outage) {
		t.Errorf("PartialFailure does not wrap the cause: %v", err)
	}

	// The interaction survived the partial failure.
	if _, err := s.GetInteraction(pf.Interaction.ID, owner); err != nil {
		t.Fatalf("interaction not persisted: %v", err)
	}
	// The schedule did not move.
	c, err := s.GetContact("c-1", owner)
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if !c.NextDue.Equal(date(2024, time.January, 15)) {
		t.Errorf("NextDue moved despite failed advance: %s", c.NextDue)
	}

	// Storage recovers; retrying the advance step alone completes the unit.
	failing.advanceErr = nil
	advanced, err := rec.AdvanceSchedule(ctx, owner, "c-1")
	if err != nil {
		t.Fatalf("AdvanceSchedule: %v", err)
	}
	if want := date(2024, time.April, 15); !advanced.NextDue.Equal(want) {
		t.Errorf("NextDue after retry = %s, want %s", advanced.NextDue, want)
	}

	// No second interaction was written by the retry.
	interactions, err := s.ListInteractions(owner, "c-1", 10)
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(interactions) != 1 {
		t.Errorf("len(interactions) = %d, want 1", len(interactions))
	}
}
