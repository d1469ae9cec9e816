/*
manual.go - Manual interval creation and editing

PURPOSE:
  Handles work intervals entered or corrected by hand, outside the live
  clock. These bypass the state machine but must independently enforce:

  - end > start when end is present
  - no two intervals of the same user may overlap (half-open test against
    all other intervals of that user; an open interval extends to infinity)
  - duration = max(1, round((end-start)/60000)) when both bounds are given
  - at-most-one-open-interval still holds when a manual entry has no end

  Overlap checks read existing intervals and write the new/updated one
  within one store transaction.

SEE ALSO:
  - engine.go: Live clock state machine
  - tracking/types.go: WorkInterval.Overlaps
*/
package clock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

// =============================================================================
// MANUAL ENTRY INPUT
// =============================================================================

// ManualInput describes a manual interval create or update.
type ManualInput struct {
	UserID            tracking.UserID
	Start             time.Time
	End               *time.Time
	PauseTotalMinutes int
	Category          string
	Note              string
	Project           string
}

// manualDuration applies the manual-entry duration rule.
func manualDuration(start time.Time, end time.Time) int {
	minutes := tracking.RoundMinutes(end.Sub(start))
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// =============================================================================
// OPERATIONS
// =============================================================================

// CreateManual inserts a hand-entered interval after validating bounds and
// overlap against every other interval of the user.
func (e *Engine) CreateManual(ctx context.Context, actor tracking.Actor, in ManualInput) (*tracking.WorkInterval, error) {
	if err := tracking.Authorize(actor, in.UserID); err != nil {
		return nil, err
	}

	now := e.Now().UTC()
	iv := tracking.WorkInterval{
		ID:                tracking.IntervalID(uuid.NewString()),
		UserID:            in.UserID,
		Start:             in.Start.UTC(),
		PauseTotalMinutes: in.PauseTotalMinutes,
		Category:          in.Category,
		Note:              in.Note,
		Project:           in.Project,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.End != nil {
		end := in.End.UTC()
		iv.End = &end
		minutes := manualDuration(iv.Start, end)
		iv.DurationMinutes = &minutes
	}
	if err := iv.Validate(); err != nil {
		return nil, err
	}

	err := e.store.WithTx(ctx, func(s tracking.Store) error {
		if err := e.checkOverlap(ctx, s, &iv, ""); err != nil {
			return err
		}
		if err := s.CreateInterval(ctx, iv); err != nil {
			return err
		}
		return s.AppendAudit(ctx, e.audit(actor, tracking.AuditIntervalCreated, in.UserID, map[string]any{
			"interval_id": string(iv.ID),
			"manual":      true,
		}))
	})
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

// UpdateManual edits an existing interval under the same rules.
func (e *Engine) UpdateManual(ctx context.Context, actor tracking.Actor, id tracking.IntervalID, in ManualInput) (*tracking.WorkInterval, error) {
	now := e.Now().UTC()
	var updated *tracking.WorkInterval

	err := e.store.WithTx(ctx, func(s tracking.Store) error {
		existing, err := s.GetInterval(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return tracking.ErrNotFound
		}
		if err := tracking.Authorize(actor, existing.UserID); err != nil {
			return err
		}

		iv := *existing
		iv.Start = in.Start.UTC()
		iv.End = nil
		iv.DurationMinutes = nil
		iv.PauseTotalMinutes = in.PauseTotalMinutes
		iv.Category = in.Category
		iv.Note = in.Note
		iv.Project = in.Project
		iv.UpdatedAt = now
		if in.End != nil {
			end := in.End.UTC()
			iv.End = &end
			minutes := manualDuration(iv.Start, end)
			iv.DurationMinutes = &minutes
		}
		if err := iv.Validate(); err != nil {
			return err
		}
		if err := e.checkOverlap(ctx, s, &iv, id); err != nil {
			return err
		}
		if err := s.UpdateInterval(ctx, iv); err != nil {
			return err
		}
		updated = &iv
		return s.AppendAudit(ctx, e.audit(actor, tracking.AuditIntervalUpdated, iv.UserID, map[string]any{
			"interval_id": string(id),
		}))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteInterval removes an interval explicitly.
func (e *Engine) DeleteInterval(ctx context.Context, actor tracking.Actor, id tracking.IntervalID) error {
	return e.store.WithTx(ctx, func(s tracking.Store) error {
		existing, err := s.GetInterval(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return tracking.ErrNotFound
		}
		if err := tracking.Authorize(actor, existing.UserID); err != nil {
			return err
		}
		if err := s.DeleteInterval(ctx, id); err != nil {
			return err
		}
		return s.AppendAudit(ctx, e.audit(actor, tracking.AuditIntervalDeleted, existing.UserID, map[string]any{
			"interval_id": string(id),
		}))
	})
}

// checkOverlap rejects iv if it overlaps any other interval of the user.
// exclude skips the interval being edited. Adjacent intervals where one
// ends exactly when the next starts are allowed (half-open semantics).
func (e *Engine) checkOverlap(ctx context.Context, s tracking.Store, iv *tracking.WorkInterval, exclude tracking.IntervalID) error {
	others, err := s.IntervalsForUser(ctx, iv.UserID)
	if err != nil {
		return err
	}
	for i := range others {
		other := &others[i]
		if other.ID == exclude || other.ID == iv.ID {
			continue
		}
		if iv.Overlaps(other) {
			return &tracking.OverlapError{UserID: iv.UserID, ExistingID: other.ID}
		}
	}
	return nil
}
