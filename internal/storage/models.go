package storage

import (
	"errors"
	"time"

	"github.com/kalambet/tend/internal/schedule"
)

// ErrNotFound is returned when a requested record does not exist for the
// given owner.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a versioned contact write loses a race: the
// row's version no longer matches the version the caller read. Reload and
// resubmit to resolve.
var ErrConflict = errors.New("conflict: contact was modified concurrently")

// Contact is a person the owner wants to stay in touch with. NextDue is the
// single source of truth for scheduling; Version guards concurrent writes.
type Contact struct {
	ID        string
	OwnerID   string
	Name      string
	Cadence   schedule.Cadence
	Notes     string
	Birthday  *time.Time // calendar date; nil when unknown
	NextDue   time.Time  // calendar date
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interaction is an immutable log entry for a completed check-in.
type Interaction struct {
	ID         string
	OwnerID    string
	ContactID  string
	Summary    string
	OccurredAt time.Time
}

// ContactSort selects the ordering of ListContacts results.
type ContactSort int

const (
	SortByName ContactSort = iota
	SortByNextDue
)

// ListOptions filters and orders a contact listing.
type ListOptions struct {
	// DueOnOrBefore, when non-zero, keeps only contacts whose NextDue is on
	// or before this calendar date.
	DueOnOrBefore time.Time
	Sort          ContactSort
}
