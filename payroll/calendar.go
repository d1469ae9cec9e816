/*
Package payroll converts dated work intervals into categorized, priced hours.

PURPOSE:
  Holds the rate catalog (base rate, surcharges, fixed rates), the holiday
  calendar, absence management and the wage calculator. The clock package
  produces intervals; this package prices them.

FILE (calendar.go):
  HolidayCalendar: exact-date, exact-region boolean lookup. No recurring
  logic - each year's holidays are distinct stored rows, unique per
  (date, region).

SEE ALSO:
  - catalog.go: Surcharge precedence consults IsHoliday first
  - tracking/store.go: HolidayStore interface
*/
package payroll

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Calendar is a read-mostly holiday lookup over the holiday store.
type Calendar struct {
	store tracking.TxStore
}

// NewCalendar creates a holiday calendar.
func NewCalendar(store tracking.TxStore) *Calendar {
	return &Calendar{store: store}
}

// IsHoliday reports whether date is a holiday in region.
// Exact-date, exact-region; the time component of date is ignored.
func (c *Calendar) IsHoliday(ctx context.Context, date time.Time, region string) (bool, error) {
	h, err := c.store.HolidayOn(ctx, tracking.DateOf(date), region)
	if err != nil {
		return false, err
	}
	return h != nil, nil
}

// ListForMonth returns the month's holidays for a region, ordered by date.
func (c *Calendar) ListForMonth(ctx context.Context, year int, month time.Month, region string) ([]tracking.Holiday, error) {
	from, to := tracking.MonthRange(year, month, time.UTC)
	return c.store.HolidaysInRange(ctx, from, to, region)
}

// Create stores a holiday, enforcing (date, region) uniqueness at write time.
func (c *Calendar) Create(ctx context.Context, actor tracking.Actor, date time.Time, region, name string) (*tracking.Holiday, error) {
	if actor.Role != tracking.RoleAdmin {
		return nil, &tracking.ForbiddenError{Actor: actor.UserID}
	}
	if name == "" {
		return nil, &tracking.FieldError{Field: "name", Reason: "required"}
	}
	if region == "" {
		return nil, &tracking.FieldError{Field: "region", Reason: "required"}
	}

	h := tracking.Holiday{
		ID:     tracking.HolidayID(uuid.NewString()),
		Date:   tracking.DateOf(date),
		Region: region,
		Name:   name,
	}
	err := c.store.WithTx(ctx, func(s tracking.Store) error {
		existing, err := s.HolidayOn(ctx, h.Date, region)
		if err != nil {
			return err
		}
		if existing != nil {
			return &tracking.DuplicateHolidayError{Date: h.Date, Region: region}
		}
		if err := s.CreateHoliday(ctx, h); err != nil {
			return err
		}
		return s.AppendAudit(ctx, tracking.AuditEntry{
			ID:        uuid.NewString(),
			At:        time.Now().UTC(),
			ActorID:   actor.UserID,
			ActorRole: actor.Role,
			Action:    tracking.AuditHolidayCreated,
			Payload:   map[string]any{"holiday_id": string(h.ID), "date": h.Date.Format("2006-01-02"), "region": region},
		})
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Delete removes a holiday row.
func (c *Calendar) Delete(ctx context.Context, actor tracking.Actor, id tracking.HolidayID) error {
	if actor.Role != tracking.RoleAdmin {
		return &tracking.ForbiddenError{Actor: actor.UserID}
	}
	return c.store.WithTx(ctx, func(s tracking.Store) error {
		if err := s.DeleteHoliday(ctx, id); err != nil {
			return err
		}
		return s.AppendAudit(ctx, tracking.AuditEntry{
			ID:        uuid.NewString(),
			At:        time.Now().UTC(),
			ActorID:   actor.UserID,
			ActorRole: actor.Role,
			Action:    tracking.AuditHolidayDeleted,
			Payload:   map[string]any{"holiday_id": string(id)},
		})
	})
}
