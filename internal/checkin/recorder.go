// Package checkin records completed check-ins: it writes the immutable
// interaction log entry and advances the contact's next due date as one
// logical unit, detecting races between concurrent completions.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/tend/internal/clock"
	"github.com/kalambet/tend/internal/schedule"
	"github.com/kalambet/tend/internal/storage"
)

// ErrInvalidArgument is returned for malformed input (empty contact or
// owner id). The caller must fix the request; retrying is pointless.
var ErrInvalidArgument = errors.New("invalid argument")

// PartialFailure reports that the interaction log entry was written but the
// contact's schedule was not advanced. The state is inconsistent but
// recoverable: the interaction is evidence of intent, and the caller can
// retry the schedule advance alone via Recorder.AdvanceSchedule.
//
// It wraps the underlying cause, so errors.Is(err, storage.ErrConflict)
// identifies a lost race distinctly from a storage outage.
type PartialFailure struct {
	Interaction storage.Interaction
	Cause       error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("interaction %s logged but schedule not advanced: %v", e.Interaction.ID, e.Cause)
}

func (e *PartialFailure) Unwrap() error { return e.Cause }

// Store is the slice of the storage contract the recorder needs.
type Store interface {
	GetContact(id, ownerID string) (storage.Contact, error)
	AdvanceContactSchedule(id, ownerID string, nextDue time.Time, expectedVersion int64) error
	InsertInteraction(i storage.Interaction) error
}

// Result is the pair of records produced by a completed check-in.
type Result struct {
	Interaction storage.Interaction
	Contact     storage.Contact
}

// Recorder orchestrates check-in completion.
type Recorder struct {
	store Store
	clock clock.Clock
}

func New(store Store, clk clock.Clock) *Recorder {
	if clk == nil {
		clk = clock.System{}
	}
	return &Recorder{store: store, clock: clk}
}

// Record completes a check-in with a contact: it validates the request,
// appends an interaction (summary may be empty), and advances the contact's
// next due date computed from its cadence and the clock's current date.
//
// This is the only operation that ever advances a contact's schedule. Two
// concurrent Records on the same contact race on the contact's version;
// exactly one advances the schedule, the loser gets a *PartialFailure
// wrapping storage.ErrConflict.
func (r *Recorder) Record(ctx context.Context, ownerID, contactID, summary string) (Result, error) {
	if ownerID == "" {
		return Result{}, fmt.Errorf("%w: owner id is required", ErrInvalidArgument)
	}
	if contactID == "" {
		return Result{}, fmt.Errorf("%w: contact id is required", ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	contact, err := r.store.GetContact(contactID, ownerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("loading contact: %w", err)
	}

	newDue := schedule.NextDue(contact.Cadence, r.clock.Today())

	interaction := storage.Interaction{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		ContactID:  contactID,
		Summary:    summary,
		OccurredAt: r.clock.Now(),
	}
	if err := r.store.InsertInteraction(interaction); err != nil {
		return Result{}, fmt.Errorf("logging interaction: %w", err)
	}

	if err := r.store.AdvanceContactSchedule(contactID, ownerID, newDue, contact.Version); err != nil {
		slog.Warn("check-in schedule advance failed after interaction write",
			"contact_id", contactID, "interaction_id", interaction.ID, "error", err)
		return Result{}, &PartialFailure{Interaction: interaction, Cause: err}
	}

	contact.NextDue = newDue
	contact.Version++
	slog.Info("check-in recorded",
		"contact_id", contactID, "interaction_id", interaction.ID,
		"next_due", newDue.Format("2006-01-02"))
	return Result{Interaction: interaction, Contact: contact}, nil
}

// AdvanceSchedule retries the schedule-advance step alone, after a
// PartialFailure left an interaction without a schedule update. It re-reads
// the contact and recomputes the due date from the current clock, so it is
// safe to call repeatedly.
func (r *Recorder) AdvanceSchedule(ctx context.Context, ownerID, contactID string) (storage.Contact, error) {
	if ownerID == "" || contactID == "" {
		return storage.Contact{}, fmt.Errorf("%w: owner and contact ids are required", ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return storage.Contact{}, err
	}

	contact, err := r.store.GetContact(contactID, ownerID)
	if err != nil {
		return storage.Contact{}, err
	}

	newDue := schedule.NextDue(contact.Cadence, r.clock.Today())
	if err := r.store.AdvanceContactSchedule(contactID, ownerID, newDue, contact.Version); err != nil {
		return storage.Contact{}, err
	}

	contact.NextDue = newDue
	contact.Version++
	return contact, nil
}
