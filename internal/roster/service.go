// Package roster manages the contact list and produces the annotated views
// the presentation layer consumes: every contact sorted by name, or only
// the contacts due for a check-in as of a reference date.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/tend/internal/clock"
	"github.com/kalambet/tend/internal/schedule"
	"github.com/kalambet/tend/internal/storage"
)

// ErrInvalidArgument is returned for malformed contact input.
var ErrInvalidArgument = errors.New("invalid argument")

// ContactView is a contact annotated with its overdue status for display.
// DaysOverdue is non-negative; Overdue tells whether it counts days past
// due or days until due.
type ContactView struct {
	ID          string
	Name        string
	Cadence     schedule.Cadence
	Notes       string
	Birthday    *time.Time
	NextDue     time.Time
	DaysOverdue int
	Overdue     bool
}

// Store is the slice of the storage contract the roster needs.
type Store interface {
	InsertContact(c storage.Contact) error
	GetContact(id, ownerID string) (storage.Contact, error)
	UpdateContactProfile(c storage.Contact, expectedVersion int64) error
	DeleteContact(id, ownerID string) error
	ListContacts(ownerID string, opts storage.ListOptions) ([]storage.Contact, error)
}

// Service owns contact lifecycle (except schedule advancement, which
// belongs to the check-in recorder) and roster queries.
type Service struct {
	store Store
	clock clock.Clock
}

func New(store Store, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{store: store, clock: clk}
}

// NewContact describes a contact to create or an edit to apply.
type NewContact struct {
	Name     string
	Cadence  schedule.Cadence
	Notes    string
	Birthday *time.Time
}

// Create adds a contact. The first due date is computed from the cadence
// and today's date, so a new contact is never born overdue. Unrecognized
// cadences normalize to monthly.
func (s *Service) Create(ctx context.Context, ownerID string, nc NewContact) (storage.Contact, error) {
	if ownerID == "" {
		return storage.Contact{}, fmt.Errorf("%w: owner id is required", ErrInvalidArgument)
	}
	name := strings.TrimSpace(nc.Name)
	if name == "" {
		return storage.Contact{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return storage.Contact{}, err
	}

	now := s.clock.Now()
	cadence := schedule.Normalize(nc.Cadence)
	c := storage.Contact{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		Cadence:   cadence,
		Notes:     nc.Notes,
		Birthday:  normalizeBirthday(nc.Birthday),
		NextDue:   schedule.NextDue(cadence, s.clock.Today()),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertContact(c); err != nil {
		return storage.Contact{}, fmt.Errorf("saving contact: %w", err)
	}
	slog.Info("contact created", "contact_id", c.ID, "cadence", c.Cadence,
		"next_due", c.NextDue.Format("2006-01-02"))
	return c, nil
}

// Update edits name, cadence, notes and birthday. It never recomputes the
// due date: changing the cadence takes effect at the next completed
// check-in.
func (s *Service) Update(ctx context.Context, ownerID, contactID string, nc NewContact) (storage.Contact, error) {
	if ownerID == "" || contactID == "" {
		return storage.Contact{}, fmt.Errorf("%w: owner and contact ids are required", ErrInvalidArgument)
	}
	name := strings.TrimSpace(nc.Name)
	if name == "" {
		return storage.Contact{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return storage.Contact{}, err
	}

	c, err := s.store.GetContact(contactID, ownerID)
	if err != nil {
		return storage.Contact{}, err
	}

	prior := c.Version
	c.Name = name
	c.Cadence = schedule.Normalize(nc.Cadence)
	c.Notes = nc.Notes
	c.Birthday = normalizeBirthday(nc.Birthday)
	if err := s.store.UpdateContactProfile(c, prior); err != nil {
		return storage.Contact{}, err
	}
	c.Version = prior + 1
	return c, nil
}

func (s *Service) Get(ctx context.Context, ownerID, contactID string) (storage.Contact, error) {
	if err := ctx.Err(); err != nil {
		return storage.Contact{}, err
	}
	return s.store.GetContact(contactID, ownerID)
}

func (s *Service) Delete(ctx context.Context, ownerID, contactID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.DeleteContact(contactID, ownerID)
}

// ListAll returns every contact for the owner, sorted by name ascending,
// annotated with overdue status against today's date.
func (s *Service) ListAll(ctx context.Context, ownerID string) ([]ContactView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contacts, err := s.store.ListContacts(ownerID, storage.ListOptions{Sort: storage.SortByName})
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	return annotate(contacts, s.clock.Today()), nil
}

// ListDue returns only the contacts due on or before ref, earliest first.
// A zero ref defaults to today's date from the service clock.
func (s *Service) ListDue(ctx context.Context, ownerID string, ref time.Time) ([]ContactView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref.IsZero() {
		ref = s.clock.Today()
	}
	ref = schedule.DateOf(ref)

	contacts, err := s.store.ListContacts(ownerID, storage.ListOptions{
		DueOnOrBefore: ref,
		Sort:          storage.SortByNextDue,
	})
	if err != nil {
		return nil, fmt.Errorf("listing due contacts: %w", err)
	}
	return annotate(contacts, ref), nil
}

func annotate(contacts []storage.Contact, ref time.Time) []ContactView {
	views := make([]ContactView, len(contacts))
	for i, c := range contacts {
		st := schedule.Classify(c.NextDue, ref)
		views[i] = ContactView{
			ID:          c.ID,
			Name:        c.Name,
			Cadence:     c.Cadence,
			Notes:       c.Notes,
			Birthday:    c.Birthday,
			NextDue:     c.NextDue,
			DaysOverdue: st.Days,
			Overdue:     st.Overdue,
		}
	}
	return views
}

func normalizeBirthday(b *time.Time) *time.Time {
	if b == nil {
		return nil
	}
	d := schedule.DateOf(*b)
	return &d
}
