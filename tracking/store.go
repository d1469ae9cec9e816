/*
store.go - Persistence interfaces for the tracking domain

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  IntervalStore: Work interval persistence and range queries
  RateStore:     Rate definitions (read-heavy, rarely mutated)
  HolidayStore:  Exact-date holiday rows
  AbsenceStore:  Flat-rate absence records
  AuditLog:      Append-only mutation trail
  TxStore:       Store + WithTx for atomic check-then-write

TRANSACTIONS:
  Every clock mutation and manual interval write is a transactional
  read-then-write: the "no open interval" or overlap check and the
  subsequent create/update run inside one WithTx call, so two concurrent
  check-ins for the same user cannot both succeed. Reports are read-only
  and never take the transaction path.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite (WAL, sql.Tx backed WithTx)
  - store/memory: In-memory with snapshot rollback, for tests/dev

SEE ALSO:
  - clock/engine.go: Uses WithTx for every state transition
  - payroll/catalog.go: Uses WithTx for base-rate uniqueness
*/
package tracking

import (
	"context"
	"time"
)

// =============================================================================
// INTERVAL STORE
// =============================================================================

type IntervalStore interface {
	CreateInterval(ctx context.Context, iv WorkInterval) error
	GetInterval(ctx context.Context, id IntervalID) (*WorkInterval, error)

	// OpenInterval returns the user's open interval, or nil if none.
	OpenInterval(ctx context.Context, userID UserID) (*WorkInterval, error)

	UpdateInterval(ctx context.Context, iv WorkInterval) error
	DeleteInterval(ctx context.Context, id IntervalID) error

	// IntervalsInRange returns intervals whose Start falls in [from, to),
	// ordered by Start ascending.
	IntervalsInRange(ctx context.Context, userID UserID, from, to time.Time) ([]WorkInterval, error)

	// IntervalsForUser returns all intervals of a user, ordered by Start.
	IntervalsForUser(ctx context.Context, userID UserID) ([]WorkInterval, error)
}

// =============================================================================
// RATE STORE
// =============================================================================

type RateStore interface {
	CreateRate(ctx context.Context, r Rate) error
	GetRate(ctx context.Context, id RateID) (*Rate, error)
	GetRateByCode(ctx context.Context, code string) (*Rate, error)
	UpdateRate(ctx context.Context, r Rate) error
	DeleteRate(ctx context.Context, id RateID) error

	// ListRates returns all rates ordered by Priority, then Code.
	ListRates(ctx context.Context) ([]Rate, error)

	// BaseRate returns the rate flagged as base rate, or nil if none.
	BaseRate(ctx context.Context) (*Rate, error)
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

type HolidayStore interface {
	CreateHoliday(ctx context.Context, h Holiday) error
	DeleteHoliday(ctx context.Context, id HolidayID) error

	// HolidayOn returns the holiday for an exact (date, region), or nil.
	HolidayOn(ctx context.Context, date time.Time, region string) (*Holiday, error)

	// HolidaysInRange returns holidays with date in [from, to) for a region,
	// ordered by date ascending.
	HolidaysInRange(ctx context.Context, from, to time.Time, region string) ([]Holiday, error)
}

// =============================================================================
// ABSENCE STORE
// =============================================================================

type AbsenceStore interface {
	CreateAbsence(ctx context.Context, a Absence) error
	GetAbsence(ctx context.Context, id AbsenceID) (*Absence, error)
	DeleteAbsence(ctx context.Context, id AbsenceID) error

	// AbsenceOn returns the absence of a type for an exact (user, date), or nil.
	AbsenceOn(ctx context.Context, userID UserID, date time.Time, typ AbsenceType) (*Absence, error)

	// AbsencesInRange returns absences with date in [from, to) for a user,
	// ordered by date ascending.
	AbsencesInRange(ctx context.Context, userID UserID, from, to time.Time) ([]Absence, error)
}

// =============================================================================
// AUDIT LOG - Append-only
// =============================================================================

type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// =============================================================================
// COMBINED STORE
// =============================================================================

// Store bundles all persistence concerns of the tracking domain.
type Store interface {
	IntervalStore
	RateStore
	HolidayStore
	AbsenceStore
	AuditLog
}

// TxStore wraps Store with transaction support.
// Use this whenever an invariant check and its write must be atomic.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns an error, the transaction is rolled back entirely.
	WithTx(ctx context.Context, fn func(Store) error) error
}
