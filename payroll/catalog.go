/*
catalog.go - Rate catalog and surcharge resolution

PURPOSE:
  Stores rate definitions and resolves, for a given instant, which
  surcharge (if any) applies. The precedence is a fixed, named policy:

    1. Holiday   - the calendar date (region-qualified) is a holiday
    2. Sunday    - weekend rate whose window includes Sunday, any hour
    3. Saturday  - weekend rate whose window includes Saturday, from its
                   start hour onward (the classic Saturday-afternoon rule)
    4. Night     - Mon-Fri from the night window's start hour onward
    5. Regular   - plain base rate, no surcharge

  Exactly one class applies per instant; the ordering makes the classes
  mutually exclusive even where they structurally overlap (a holiday on a
  Sunday night is priced as holiday). The Rate.Priority field is display
  ordering only and is never consulted here.

BASE RATE UNIQUENESS:
  At most one rate carries IsBaseRate. Enforced at write time inside a
  store transaction, not by a storage constraint alone.

SEE ALSO:
  - calendar.go: Holiday lookups used by step 1
  - wage.go: Prices intervals with the resolved surcharges
*/
package payroll

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

// Well-known fixed rate codes.
const (
	CodeSick         = "sick"
	CodeVacation     = "vacation"
	CodeMonthlyBonus = "monthly_bonus"
)

// =============================================================================
// CATALOG
// =============================================================================

// Catalog resolves rates for instants and manages rate definitions.
type Catalog struct {
	store    tracking.TxStore
	calendar *Calendar
	region   string
	loc      *time.Location
}

// NewCatalog creates a catalog. region qualifies holiday lookups; loc is
// the location used for weekday/hour classification (nil = UTC).
func NewCatalog(store tracking.TxStore, calendar *Calendar, region string, loc *time.Location) *Catalog {
	if loc == nil {
		loc = time.UTC
	}
	return &Catalog{store: store, calendar: calendar, region: region, loc: loc}
}

// BaseRate returns the single rate flagged as base rate.
// Fails with a configuration error if none is set up.
func (c *Catalog) BaseRate(ctx context.Context) (*tracking.Rate, error) {
	r, err := c.store.BaseRate(ctx)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, &tracking.MissingBaseRateError{}
	}
	return r, nil
}

// FindFixedRate returns the fixed amount/hours rate for a code
// (sick, vacation, monthly_bonus).
func (c *Catalog) FindFixedRate(ctx context.Context, code string) (*tracking.Rate, error) {
	r, err := c.store.GetRateByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if r == nil || r.FixedAmount == nil {
		return nil, &tracking.MissingFixedRateError{Code: code}
	}
	return r, nil
}

// ResolveSurcharge returns the surcharge rate applying at the given instant,
// or nil for plain regular time. The precedence chain is fixed; see the
// file header.
func (c *Catalog) ResolveSurcharge(ctx context.Context, at time.Time) (*tracking.Rate, error) {
	local := at.In(c.loc)

	holiday, err := c.calendar.IsHoliday(ctx, local, c.region)
	if err != nil {
		return nil, err
	}

	rates, err := c.store.ListRates(ctx)
	if err != nil {
		return nil, err
	}

	if holiday {
		// Holiday outranks everything, regardless of hour.
		if r := findClassRate(rates, tracking.ClassHoliday, func(*tracking.TimeWindow) bool { return true }); r != nil {
			return r, nil
		}
	}

	weekday := local.Weekday()
	hour := local.Hour()

	switch weekday {
	case time.Sunday:
		// Any hour on Sunday.
		if r := findClassRate(rates, tracking.ClassWeekend, func(w *tracking.TimeWindow) bool {
			return w == nil || w.ContainsDay(time.Sunday)
		}); r != nil {
			return r, nil
		}
	case time.Saturday:
		if r := findClassRate(rates, tracking.ClassWeekend, func(w *tracking.TimeWindow) bool {
			return w != nil && w.ContainsDay(time.Saturday) && hour >= w.StartHour
		}); r != nil {
			return r, nil
		}
	default:
		// Mon-Fri night window.
		if r := findClassRate(rates, tracking.ClassNight, func(w *tracking.TimeWindow) bool {
			if w == nil {
				return true
			}
			return w.ContainsDay(weekday) && hour >= w.StartHour
		}); r != nil {
			return r, nil
		}
	}
	return nil, nil
}

// findClassRate returns the first rate of a class whose window satisfies
// the predicate. Rates arrive ordered by priority, which only matters for
// display; within a class the configurations are expected not to overlap.
func findClassRate(rates []tracking.Rate, class tracking.RateClass, match func(*tracking.TimeWindow) bool) *tracking.Rate {
	for i := range rates {
		r := &rates[i]
		if r.AppliesTo != class || r.Multiplier == nil || r.IsBaseRate {
			continue
		}
		if match(r.Window) {
			return r
		}
	}
	return nil
}

// =============================================================================
// RATE MUTATIONS - Administrator-managed, write-time uniqueness
// =============================================================================

// CreateRate stores a rate. Creating a second base rate fails with a
// conflict; the check and the insert are one transaction.
func (c *Catalog) CreateRate(ctx context.Context, actor tracking.Actor, r tracking.Rate) (*tracking.Rate, error) {
	if actor.Role != tracking.RoleAdmin {
		return nil, &tracking.ForbiddenError{Actor: actor.UserID}
	}
	if r.ID == "" {
		r.ID = tracking.RateID(uuid.NewString())
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := r.Validate(); err != nil {
		return nil, err
	}

	err := c.store.WithTx(ctx, func(s tracking.Store) error {
		if r.IsBaseRate {
			if err := c.checkBaseRateUnique(ctx, s, r.ID); err != nil {
				return err
			}
		}
		if err := s.CreateRate(ctx, r); err != nil {
			return err
		}
		return s.AppendAudit(ctx, c.audit(actor, tracking.AuditRateChanged, map[string]any{
			"rate_id": string(r.ID),
			"code":    r.Code,
		}))
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRate replaces a rate definition. Updating the existing base rate
// (e.g. changing only its hourly amount) succeeds; flagging a second rate
// as base rate fails with a conflict.
func (c *Catalog) UpdateRate(ctx context.Context, actor tracking.Actor, r tracking.Rate) (*tracking.Rate, error) {
	if actor.Role != tracking.RoleAdmin {
		return nil, &tracking.ForbiddenError{Actor: actor.UserID}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r.UpdatedAt = time.Now().UTC()

	err := c.store.WithTx(ctx, func(s tracking.Store) error {
		existing, err := s.GetRate(ctx, r.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return tracking.ErrNotFound
		}
		if r.IsBaseRate {
			if err := c.checkBaseRateUnique(ctx, s, r.ID); err != nil {
				return err
			}
		}
		if err := s.UpdateRate(ctx, r); err != nil {
			return err
		}
		return s.AppendAudit(ctx, c.audit(actor, tracking.AuditRateChanged, map[string]any{
			"rate_id": string(r.ID),
			"code":    r.Code,
		}))
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRate removes a rate. Deleting the base rate while time entries
// still reference plain hourly pay is allowed: pricing is computed on
// demand, never cached on the interval.
func (c *Catalog) DeleteRate(ctx context.Context, actor tracking.Actor, id tracking.RateID) error {
	if actor.Role != tracking.RoleAdmin {
		return &tracking.ForbiddenError{Actor: actor.UserID}
	}
	return c.store.WithTx(ctx, func(s tracking.Store) error {
		if err := s.DeleteRate(ctx, id); err != nil {
			return err
		}
		return s.AppendAudit(ctx, c.audit(actor, tracking.AuditRateDeleted, map[string]any{
			"rate_id": string(id),
		}))
	})
}

// ListRates returns all rates ordered by priority for display.
func (c *Catalog) ListRates(ctx context.Context) ([]tracking.Rate, error) {
	return c.store.ListRates(ctx)
}

func (c *Catalog) checkBaseRateUnique(ctx context.Context, s tracking.Store, self tracking.RateID) error {
	existing, err := s.BaseRate(ctx)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return &tracking.DuplicateBaseRateError{ExistingCode: existing.Code}
	}
	return nil
}

func (c *Catalog) audit(actor tracking.Actor, action tracking.AuditAction, payload map[string]any) tracking.AuditEntry {
	return tracking.AuditEntry{
		ID:        uuid.NewString(),
		At:        time.Now().UTC(),
		ActorID:   actor.UserID,
		ActorRole: actor.Role,
		Action:    action,
		Payload:   payload,
	}
}
