/*
Package tracking provides the core domain model for the time-tracking engine.

PURPOSE:
  This package contains the shared types and invariants for work sessions,
  rates, holidays and absences. The clock and payroll packages build their
  operations on top of these types; the store packages persist them.

KEY CONCEPTS IN THIS FILE (types.go):
  - WorkInterval: One contiguous (possibly paused) work session
  - SessionState: Closed | OpenRunning | OpenPaused, derived from the interval
  - Rate: Base hourly rate, multiplier surcharges, and fixed amount/hours pairs
  - TimeWindow: Weekday-set + hour-of-day predicate for surcharge rates
  - Holiday / Absence: Calendar lookups and flat-rate absence records

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all currency amounts and multipliers
  2. Type Safety: Strong typing for IDs prevents mixing users and intervals
  3. UTC storage: All instants are stored UTC; local-time classification
     happens in the payroll package against a configured location
  4. Auditability: Every mutation is paired with an AuditEntry

SEE ALSO:
  - errors.go: Error taxonomy shared by all operations
  - store.go: Persistence interfaces
  - clock/: Session state machine operations
  - payroll/: Rate resolution and wage computation
*/
package tracking

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type IntervalID string
type RateID string
type HolidayID string
type AbsenceID string

// =============================================================================
// ACTOR - Authenticated caller identity (supplied by the identity collaborator)
// =============================================================================

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Actor is the already-authenticated caller. The engine trusts this input
// and only enforces the admin-override rule itself.
type Actor struct {
	UserID UserID
	Role   Role
}

// CanActOn reports whether the actor may read or mutate data owned by target.
// Admins may act on anyone; everyone else only on themselves.
func (a Actor) CanActOn(target UserID) bool {
	return a.Role == RoleAdmin || a.UserID == target
}

// =============================================================================
// WORK INTERVAL - One work session with optional pause bookkeeping
// =============================================================================

// WorkInterval is one contiguous or paused work session.
//
// INVARIANTS:
//   - End, when set, is strictly after Start.
//   - At most one interval per user has End == nil (the open session).
//   - PauseStartedAt may only be set while End == nil.
//   - DurationMinutes is nil while open and recomputed on close.
type WorkInterval struct {
	ID     IntervalID
	UserID UserID
	Start  time.Time  // UTC instant
	End    *time.Time // nil = session still open

	// Net worked minutes (raw span minus pauses). Nil while open.
	DurationMinutes *int
	// Accumulated minutes of completed pauses.
	PauseTotalMinutes int
	// Start of the currently running pause, if any. At most one active pause.
	PauseStartedAt *time.Time

	Category string // informational tag, not authoritative for pricing
	Note     string
	Project  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionState is the explicit state of the per-user clock state machine.
type SessionState string

const (
	SessionClosed      SessionState = "CLOSED"
	SessionOpenRunning SessionState = "OPEN_RUNNING"
	SessionOpenPaused  SessionState = "OPEN_PAUSED"
)

// State derives the tagged session state from the interval fields.
// The pause state only exists on open sessions.
func (w *WorkInterval) State() SessionState {
	if w == nil || w.End != nil {
		return SessionClosed
	}
	if w.PauseStartedAt != nil {
		return SessionOpenPaused
	}
	return SessionOpenRunning
}

// IsOpen reports whether the session is still running.
func (w *WorkInterval) IsOpen() bool { return w.End == nil }

// Validate checks the joint validity of the interval fields.
func (w *WorkInterval) Validate() error {
	if w.UserID == "" {
		return &FieldError{Field: "user_id", Reason: "required"}
	}
	if w.Start.IsZero() {
		return &FieldError{Field: "start", Reason: "required"}
	}
	if w.End != nil && !w.End.After(w.Start) {
		return &FieldError{Field: "end", Reason: "must be after start"}
	}
	if w.PauseStartedAt != nil && w.End != nil {
		return &FieldError{Field: "pause_started_at", Reason: "pause only allowed on open sessions"}
	}
	if w.PauseTotalMinutes < 0 {
		return &FieldError{Field: "pause_total_minutes", Reason: "must not be negative"}
	}
	return nil
}

// Overlaps reports whether two intervals of the same user overlap.
// Intervals are half-open [Start, End); an open interval extends to infinity.
func (w *WorkInterval) Overlaps(other *WorkInterval) bool {
	if w.End != nil && !w.End.After(other.Start) {
		return false
	}
	if other.End != nil && !other.End.After(w.Start) {
		return false
	}
	return true
}

// =============================================================================
// RATE - Pricing definitions: base rate, surcharges, fixed entries
// =============================================================================

// RateClass classifies what a rate applies to.
type RateClass string

const (
	ClassManual   RateClass = "manual"
	ClassNight    RateClass = "night"
	ClassWeekend  RateClass = "weekend"
	ClassHoliday  RateClass = "holiday"
	ClassSick     RateClass = "sick"
	ClassVacation RateClass = "vacation"
)

// TimeWindow is a predicate over weekday set and hour of day.
// A surcharge rate without a window always matches within its class.
type TimeWindow struct {
	Days      []time.Weekday
	StartHour int
	EndHour   int
}

// ContainsDay reports whether the window covers the given weekday.
func (w *TimeWindow) ContainsDay(day time.Weekday) bool {
	for _, d := range w.Days {
		if d == day {
			return true
		}
	}
	return false
}

// Validate checks the window bounds.
func (w *TimeWindow) Validate() error {
	if w.StartHour < 0 || w.StartHour > 23 {
		return &FieldError{Field: "start_hour", Reason: "must be in [0,23]"}
	}
	if w.EndHour < 0 || w.EndHour > 24 {
		return &FieldError{Field: "end_hour", Reason: "must be in [0,24]"}
	}
	for _, d := range w.Days {
		if d < time.Sunday || d > time.Saturday {
			return &FieldError{Field: "days", Reason: "weekday out of range"}
		}
	}
	return nil
}

// Rate is a pricing definition. Exactly one of the shapes is populated:
//   - base rate:  IsBaseRate + HourlyRate
//   - surcharge:  Multiplier (+ optional Window)
//   - fixed rate: FixedAmount + FixedHours (absences, monthly bonus)
type Rate struct {
	ID         RateID
	Code       string // unique
	Label      string
	Multiplier *decimal.Decimal // fraction, e.g. 1.25 = +25%
	HourlyRate *decimal.Decimal // only meaningful on the base rate
	AppliesTo  RateClass
	Window     *TimeWindow
	IsBaseRate bool
	FixedAmount *decimal.Decimal
	FixedHours  *decimal.Decimal
	// Priority is display ordering only. Surcharge resolution uses the
	// explicit precedence chain in payroll, never this field.
	Priority  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks required fields and the window, when present.
func (r *Rate) Validate() error {
	if r.Code == "" {
		return &FieldError{Field: "code", Reason: "required"}
	}
	if r.AppliesTo == "" {
		return &FieldError{Field: "applies_to", Reason: "required"}
	}
	if r.IsBaseRate && r.HourlyRate == nil {
		return &FieldError{Field: "hourly_rate", Reason: "required for the base rate"}
	}
	if r.Window != nil {
		if err := r.Window.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HOLIDAY - Exact-date, region-qualified lookup rows
// =============================================================================

// Holiday is a single stored holiday. No recurring logic: each year's
// holidays are distinct rows, unique per (date, region).
type Holiday struct {
	ID     HolidayID
	Date   time.Time // date-only, UTC midnight
	Region string
	Name   string
}

// =============================================================================
// ABSENCE - Flat-rate sick/vacation day with a frozen amount
// =============================================================================

type AbsenceType string

const (
	AbsenceSick     AbsenceType = "SICK"
	AbsenceVacation AbsenceType = "VACATION"
)

// Absence is a fixed-rate day. Amount is a snapshot taken against the
// matching fixed rate at creation time and never recomputed, so later rate
// changes do not rewrite history.
type Absence struct {
	ID        AbsenceID
	UserID    UserID
	Date      time.Time // date-only, UTC midnight
	Type      AbsenceType
	Hours     decimal.Decimal
	Amount    decimal.Decimal // frozen at creation
	Note      string
	CreatedAt time.Time
}

// =============================================================================
// AUDIT - Who did what when. Append-only.
// =============================================================================

type AuditAction string

const (
	AuditCheckIn         AuditAction = "check_in"
	AuditCheckOut        AuditAction = "check_out"
	AuditPauseStart      AuditAction = "pause_start"
	AuditPauseStop       AuditAction = "pause_stop"
	AuditIntervalCreated AuditAction = "interval_created"
	AuditIntervalUpdated AuditAction = "interval_updated"
	AuditIntervalDeleted AuditAction = "interval_deleted"
	AuditRateChanged     AuditAction = "rate_changed"
	AuditRateDeleted     AuditAction = "rate_deleted"
	AuditAbsenceCreated  AuditAction = "absence_created"
	AuditAbsenceDeleted  AuditAction = "absence_deleted"
	AuditHolidayCreated  AuditAction = "holiday_created"
	AuditHolidayDeleted  AuditAction = "holiday_deleted"
)

// AuditEntry records one mutation. Written in the same transaction as the
// mutation itself so there is never an interval without its audit record.
type AuditEntry struct {
	ID        string
	At        time.Time
	ActorID   UserID
	ActorRole Role
	Action    AuditAction
	UserID    UserID // owner of the touched record
	Payload   map[string]any
}

// AuditFilter narrows audit queries.
type AuditFilter struct {
	UserID  *UserID
	ActorID *UserID
	Actions []AuditAction
	From    *time.Time
	To      *time.Time
}
