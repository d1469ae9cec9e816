/*
Package clock implements the check-in/check-out/pause state machine.

PURPOSE:
  Owns the per-user session state machine and its transitions:

    CLOSED -> OPEN_RUNNING   (CheckIn)
    OPEN_RUNNING -> OPEN_PAUSED  (PauseStart)
    OPEN_PAUSED -> OPEN_RUNNING  (PauseStop)
    OPEN_RUNNING -> CLOSED   (CheckOut)
    OPEN_PAUSED -> CLOSED    (CheckOut, trailing pause priced but not folded)

  There is no CLOSED -> OPEN_PAUSED transition. The hard invariant is
  at-most-one-open-interval per user, enforced by a transactional
  read-then-write: the open-session check and the subsequent create or
  update run inside one store transaction, so a concurrent double
  check-in yields exactly one success and one conflict.

CHECK-OUT ARITHMETIC:
  rawMs    = now - start
  pausedMs = pauseTotal*60000 + (now - pauseStart, if a pause is running)
  net      = round(max(0, rawMs - pausedMs) / 60000)

  The trailing running pause is only used for this computation; it is NOT
  folded into PauseTotalMinutes. Closing out while paused still prices the
  pause correctly but leaves the accumulated value at its pre-close state.

SEE ALSO:
  - manual.go: Manual interval create/edit with overlap enforcement
  - tracking/store.go: TxStore contract the engine relies on
*/
package clock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine drives the session state machine against a transactional store.
type Engine struct {
	store tracking.TxStore
	loc   *time.Location

	// Now is the clock source. Overridable in tests.
	Now func() time.Time
}

// New creates an engine. loc determines what "same day" means in Status;
// nil falls back to UTC.
func New(store tracking.TxStore, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{store: store, loc: loc, Now: time.Now}
}

// CheckInInput carries the optional informational tags of a new session.
type CheckInInput struct {
	Category string
	Note     string
	Project  string
}

// CheckIn opens a new session for userID.
// Fails with a conflict if an open interval already exists.
func (e *Engine) CheckIn(ctx context.Context, actor tracking.Actor, userID tracking.UserID, in CheckInInput) (*tracking.WorkInterval, error) {
	if err := tracking.Authorize(actor, userID); err != nil {
		return nil, err
	}

	now := e.Now().UTC()
	iv := tracking.WorkInterval{
		ID:        tracking.IntervalID(uuid.NewString()),
		UserID:    userID,
		Start:     now,
		Category:  in.Category,
		Note:      in.Note,
		Project:   in.Project,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := e.store.WithTx(ctx, func(s tracking.Store) error {
		open, err := s.OpenInterval(ctx, userID)
		if err != nil {
			return err
		}
		if open != nil {
			return &tracking.OpenSessionError{UserID: userID, IntervalID: open.ID, Since: open.Start}
		}
		if err := s.CreateInterval(ctx, iv); err != nil {
			return err
		}
		return s.AppendAudit(ctx, e.audit(actor, tracking.AuditCheckIn, userID, map[string]any{
			"interval_id": string(iv.ID),
			"start":       now.Format(time.RFC3339),
		}))
	})
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

// CheckOut closes the user's open session and computes the net duration.
// Fails with not-found if no open interval exists.
func (e *Engine) CheckOut(ctx context.Context, actor tracking.Actor, userID tracking.UserID) (*tracking.WorkInterval, error) {
	if err := tracking.Authorize(actor, userID); err != nil {
		return nil, err
	}

	now := e.Now().UTC()
	var closed *tracking.WorkInterval

	err := e.store.WithTx(ctx, func(s tracking.Store) error {
		open, err := s.OpenInterval(ctx, userID)
		if err != nil {
			return err
		}
		if open == nil {
			return &tracking.NoOpenSessionError{UserID: userID}
		}

		raw := now.Sub(open.Start)
		paused := time.Duration(open.PauseTotalMinutes) * time.Minute
		if open.PauseStartedAt != nil {
			paused += now.Sub(*open.PauseStartedAt)
		}
		worked := raw - paused
		if worked < 0 {
			worked = 0
		}
		net := tracking.RoundMinutes(worked)

		open.End = &now
		open.DurationMinutes = &net
		// The trailing running pause is priced above but deliberately not
		// folded into PauseTotalMinutes.
		open.PauseStartedAt = nil
		open.UpdatedAt = now

		if err := s.UpdateInterval(ctx, *open); err != nil {
			return err
		}
		closed = open
		return s.AppendAudit(ctx, e.audit(actor, tracking.AuditCheckOut, userID, map[string]any{
			"interval_id":      string(open.ID),
			"end":              now.Format(time.RFC3339),
			"duration_minutes": net,
		}))
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// PauseStart begins a pause on the open session.
// Fails if no session is open or a pause is already running.
func (e *Engine) PauseStart(ctx context.Context, actor tracking.Actor, userID tracking.UserID) (*tracking.WorkInterval, error) {
	if err := tracking.Authorize(actor, userID); err != nil {
		return nil, err
	}

	now := e.Now().UTC()
	var updated *tracking.WorkInterval

	err := e.store.WithTx(ctx, func(s tracking.Store) error {
		open, err := s.OpenInterval(ctx, userID)
		if err != nil {
			return err
		}
		if open == nil {
			return &tracking.NoOpenSessionError{UserID: userID}
		}
		if open.PauseStartedAt != nil {
			return &tracking.PauseStateError{UserID: userID, Running: true}
		}

		open.PauseStartedAt = &now
		open.UpdatedAt = now
		if err := s.UpdateInterval(ctx, *open); err != nil {
			return err
		}
		updated = open
		return s.AppendAudit(ctx, e.audit(actor, tracking.AuditPauseStart, userID, map[string]any{
			"interval_id": string(open.ID),
		}))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PauseStop ends the running pause and folds the elapsed whole minutes
// into the accumulated pause total.
func (e *Engine) PauseStop(ctx context.Context, actor tracking.Actor, userID tracking.UserID) (*tracking.WorkInterval, error) {
	if err := tracking.Authorize(actor, userID); err != nil {
		return nil, err
	}

	now := e.Now().UTC()
	var updated *tracking.WorkInterval

	err := e.store.WithTx(ctx, func(s tracking.Store) error {
		open, err := s.OpenInterval(ctx, userID)
		if err != nil {
			return err
		}
		if open == nil {
			return &tracking.NoOpenSessionError{UserID: userID}
		}
		if open.PauseStartedAt == nil {
			return &tracking.PauseStateError{UserID: userID, Running: false}
		}

		extra := tracking.FloorMinutes(now.Sub(*open.PauseStartedAt))
		open.PauseTotalMinutes += extra
		open.PauseStartedAt = nil
		open.UpdatedAt = now
		if err := s.UpdateInterval(ctx, *open); err != nil {
			return err
		}
		updated = open
		return s.AppendAudit(ctx, e.audit(actor, tracking.AuditPauseStop, userID, map[string]any{
			"interval_id":   string(open.ID),
			"extra_minutes": extra,
		}))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// =============================================================================
// STATUS
// =============================================================================

// DayAggregate sums the user's sessions of the current day.
type DayAggregate struct {
	Entries      int
	NetMinutes   int
	PauseMinutes int // includes the in-progress pause delta, if running
}

// Status is the live view of a user's clock.
type Status struct {
	CheckedIn    bool
	State        tracking.SessionState
	Open         *tracking.WorkInterval
	PauseSeconds int64 // live seconds of the running pause, 0 otherwise
	Today        DayAggregate
}

// Status reports the session state and a same-day aggregate.
// Read-only; runs outside any transaction.
func (e *Engine) Status(ctx context.Context, actor tracking.Actor, userID tracking.UserID) (*Status, error) {
	if err := tracking.Authorize(actor, userID); err != nil {
		return nil, err
	}

	now := e.Now().UTC()
	open, err := e.store.OpenInterval(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := &Status{
		CheckedIn: open != nil,
		State:     open.State(),
		Open:      open,
	}
	if open != nil && open.PauseStartedAt != nil {
		st.PauseSeconds = int64(now.Sub(*open.PauseStartedAt).Seconds())
	}

	dayStart, dayEnd := tracking.DayRange(now.In(e.loc))
	intervals, err := e.store.IntervalsInRange(ctx, userID, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, err
	}

	for i := range intervals {
		iv := &intervals[i]
		st.Today.Entries++
		st.Today.PauseMinutes += iv.PauseTotalMinutes
		switch {
		case iv.DurationMinutes != nil:
			st.Today.NetMinutes += *iv.DurationMinutes
		case iv.IsOpen():
			// Live net minutes of the running session.
			raw := now.Sub(iv.Start)
			paused := time.Duration(iv.PauseTotalMinutes) * time.Minute
			if iv.PauseStartedAt != nil {
				running := now.Sub(*iv.PauseStartedAt)
				paused += running
				st.Today.PauseMinutes += tracking.FloorMinutes(running)
			}
			if worked := raw - paused; worked > 0 {
				st.Today.NetMinutes += tracking.RoundMinutes(worked)
			}
		}
	}
	return st, nil
}

func (e *Engine) audit(actor tracking.Actor, action tracking.AuditAction, userID tracking.UserID, payload map[string]any) tracking.AuditEntry {
	return tracking.AuditEntry{
		ID:        uuid.NewString(),
		At:        e.Now().UTC(),
		ActorID:   actor.UserID,
		ActorRole: actor.Role,
		Action:    action,
		UserID:    userID,
		Payload:   payload,
	}
}
