/*
absence.go - Flat-rate absence management

PURPOSE:
  Creates and lists SICK/VACATION absences. The amount is derived from the
  matching fixed rate at creation time and frozen on the record - later
  rate changes never rewrite recorded absences (audit stability).

AMOUNT RULE:
  amount = fixed_amount * (hours / fixed_hours)  when fixed_hours > 0
  amount = fixed_amount                          otherwise

INVARIANT:
  At most one absence of a given type per (user, date), enforced by a
  transactional check-then-write.
*/
package payroll

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

// =============================================================================
// ABSENCES
// =============================================================================

// Absences manages flat-rate absence records.
type Absences struct {
	store   tracking.TxStore
	catalog *Catalog
}

// NewAbsences creates the absence service.
func NewAbsences(store tracking.TxStore, catalog *Catalog) *Absences {
	return &Absences{store: store, catalog: catalog}
}

// fixedRateCode maps an absence type to its fixed rate code.
func fixedRateCode(typ tracking.AbsenceType) (string, error) {
	switch typ {
	case tracking.AbsenceSick:
		return CodeSick, nil
	case tracking.AbsenceVacation:
		return CodeVacation, nil
	default:
		return "", &tracking.FieldError{Field: "type", Reason: "must be SICK or VACATION"}
	}
}

// Create records an absence, snapshotting its amount against the fixed
// rate currently in effect.
func (a *Absences) Create(ctx context.Context, actor tracking.Actor, userID tracking.UserID, date time.Time, typ tracking.AbsenceType, hours decimal.Decimal, note string) (*tracking.Absence, error) {
	if err := tracking.Authorize(actor, userID); err != nil {
		return nil, err
	}
	code, err := fixedRateCode(typ)
	if err != nil {
		return nil, err
	}
	if !hours.IsPositive() {
		return nil, &tracking.FieldError{Field: "hours", Reason: "must be positive"}
	}

	rate, err := a.catalog.FindFixedRate(ctx, code)
	if err != nil {
		return nil, err
	}

	amount := *rate.FixedAmount
	if rate.FixedHours != nil && rate.FixedHours.IsPositive() {
		amount = rate.FixedAmount.Mul(hours).Div(*rate.FixedHours)
	}

	ab := tracking.Absence{
		ID:        tracking.AbsenceID(uuid.NewString()),
		UserID:    userID,
		Date:      tracking.DateOf(date.UTC()),
		Type:      typ,
		Hours:     hours,
		Amount:    amount,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}

	err = a.store.WithTx(ctx, func(s tracking.Store) error {
		existing, err := s.AbsenceOn(ctx, userID, ab.Date, typ)
		if err != nil {
			return err
		}
		if existing != nil {
			return &tracking.DuplicateAbsenceError{UserID: userID, Date: ab.Date, Type: typ}
		}
		if err := s.CreateAbsence(ctx, ab); err != nil {
			return err
		}
		return s.AppendAudit(ctx, tracking.AuditEntry{
			ID:        uuid.NewString(),
			At:        time.Now().UTC(),
			ActorID:   actor.UserID,
			ActorRole: actor.Role,
			Action:    tracking.AuditAbsenceCreated,
			UserID:    userID,
			Payload:   map[string]any{"absence_id": string(ab.ID), "type": string(typ)},
		})
	})
	if err != nil {
		return nil, err
	}
	return &ab, nil
}

// ListForMonth returns a user's absences of a month, ordered by date.
func (a *Absences) ListForMonth(ctx context.Context, actor tracking.Actor, userID tracking.UserID, year int, month time.Month) ([]tracking.Absence, error) {
	if err := tracking.Authorize(actor, userID); err != nil {
		return nil, err
	}
	from, to := tracking.MonthRange(year, month, time.UTC)
	return a.store.AbsencesInRange(ctx, userID, from, to)
}

// Delete removes an absence record. Ownership is checked against the
// stored record, not the caller's claim about whose absence it is.
func (a *Absences) Delete(ctx context.Context, actor tracking.Actor, id tracking.AbsenceID) error {
	return a.store.WithTx(ctx, func(s tracking.Store) error {
		existing, err := s.GetAbsence(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return tracking.ErrNotFound
		}
		if err := tracking.Authorize(actor, existing.UserID); err != nil {
			return err
		}
		if err := s.DeleteAbsence(ctx, id); err != nil {
			return err
		}
		return s.AppendAudit(ctx, tracking.AuditEntry{
			ID:        uuid.NewString(),
			At:        time.Now().UTC(),
			ActorID:   actor.UserID,
			ActorRole: actor.Role,
			Action:    tracking.AuditAbsenceDeleted,
			UserID:    existing.UserID,
			Payload:   map[string]any{"absence_id": string(id)},
		})
	})
}
