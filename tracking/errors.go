/*
errors.go - Centralized error taxonomy for the tracking engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Operations return structured errors that unwrap to one of five sentinels,
  so callers branch with errors.Is while still getting full context.

ERROR CATEGORIES:
  1. Conflict      - duplicate open session, duplicate base rate, overlap
  2. Not found     - no open session, referenced entity missing
  3. Validation    - end <= start, missing field, malformed time window
  4. Configuration - no base rate, no matching fixed rate
  5. Authorization - actor lacks permission for the target user

USAGE:
  if errors.Is(err, tracking.ErrConflict) {
      // map to HTTP 409
  }

SEE ALSO:
  - clock/: Returns session and overlap errors
  - payroll/: Returns configuration and base-rate errors
  - api/: Maps the taxonomy to HTTP status codes
*/
package tracking

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConflict is returned when a uniqueness or overlap invariant would be
	// violated: duplicate open session, second base rate, overlapping
	// intervals, duplicate absence for a (user, date, type).
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned when a referenced record does not exist,
	// including "no open session to check out or pause".
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrConfiguration is returned when required rate configuration is
	// missing (no base rate, no fixed rate for an absence type).
	ErrConfiguration = errors.New("configuration missing")

	// ErrAuthorization is returned when the actor may not act on the target.
	ErrAuthorization = errors.New("not authorized")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OpenSessionError reports a check-in while a session is already open.
type OpenSessionError struct {
	UserID     UserID
	IntervalID IntervalID
	Since      time.Time
}

func (e *OpenSessionError) Error() string {
	return fmt.Sprintf("user %s already has an open session since %s", e.UserID, e.Since.Format(time.RFC3339))
}
func (e *OpenSessionError) Unwrap() error { return ErrConflict }

// NoOpenSessionError reports a check-out or pause with no open session.
type NoOpenSessionError struct {
	UserID UserID
}

func (e *NoOpenSessionError) Error() string {
	return fmt.Sprintf("user %s has no open session", e.UserID)
}
func (e *NoOpenSessionError) Unwrap() error { return ErrNotFound }

// PauseStateError reports an invalid pause transition on an open session.
type PauseStateError struct {
	UserID  UserID
	Running bool // true = a pause is already running
}

func (e *PauseStateError) Error() string {
	if e.Running {
		return fmt.Sprintf("user %s already has a running pause", e.UserID)
	}
	return fmt.Sprintf("user %s has no running pause", e.UserID)
}
func (e *PauseStateError) Unwrap() error { return ErrConflict }

// OverlapError reports a manual interval overlapping an existing one.
type OverlapError struct {
	UserID     UserID
	ExistingID IntervalID
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("interval overlaps existing interval %s of user %s", e.ExistingID, e.UserID)
}
func (e *OverlapError) Unwrap() error { return ErrConflict }

// DuplicateBaseRateError reports a second rate flagged as base rate.
type DuplicateBaseRateError struct {
	ExistingCode string
}

func (e *DuplicateBaseRateError) Error() string {
	return fmt.Sprintf("base rate already configured: %s", e.ExistingCode)
}
func (e *DuplicateBaseRateError) Unwrap() error { return ErrConflict }

// DuplicateAbsenceError reports a second absence of the same type on a day.
type DuplicateAbsenceError struct {
	UserID UserID
	Date   time.Time
	Type   AbsenceType
}

func (e *DuplicateAbsenceError) Error() string {
	return fmt.Sprintf("absence %s already recorded for user %s on %s", e.Type, e.UserID, e.Date.Format("2006-01-02"))
}
func (e *DuplicateAbsenceError) Unwrap() error { return ErrConflict }

// DuplicateHolidayError reports a second holiday for a (date, region).
type DuplicateHolidayError struct {
	Date   time.Time
	Region string
}

func (e *DuplicateHolidayError) Error() string {
	return fmt.Sprintf("holiday already recorded for %s in region %s", e.Date.Format("2006-01-02"), e.Region)
}
func (e *DuplicateHolidayError) Unwrap() error { return ErrConflict }

// FieldError reports a single invalid input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
func (e *FieldError) Unwrap() error { return ErrValidation }

// MissingBaseRateError reports that wage computation has no base rate.
type MissingBaseRateError struct{}

func (e *MissingBaseRateError) Error() string { return "no base rate configured" }
func (e *MissingBaseRateError) Unwrap() error { return ErrConfiguration }

// MissingFixedRateError reports a missing fixed rate for an absence or bonus.
type MissingFixedRateError struct {
	Code string
}

func (e *MissingFixedRateError) Error() string {
	return fmt.Sprintf("no fixed rate configured for %q", e.Code)
}
func (e *MissingFixedRateError) Unwrap() error { return ErrConfiguration }

// ForbiddenError reports an actor acting outside its permission.
type ForbiddenError struct {
	Actor  UserID
	Target UserID
}

func (e *ForbiddenError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("actor %s is not permitted to perform this action", e.Actor)
	}
	return fmt.Sprintf("actor %s may not act on user %s", e.Actor, e.Target)
}
func (e *ForbiddenError) Unwrap() error { return ErrAuthorization }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsConflict(err error) bool      { return errors.Is(err, ErrConflict) }
func IsNotFound(err error) bool      { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool    { return errors.Is(err, ErrValidation) }
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }
func IsAuthorization(err error) bool { return errors.Is(err, ErrAuthorization) }

// Authorize returns a ForbiddenError unless actor may act on target.
func Authorize(actor Actor, target UserID) error {
	if actor.CanActOn(target) {
		return nil
	}
	return &ForbiddenError{Actor: actor.UserID, Target: target}
}
