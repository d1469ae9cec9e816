package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bazdi/zeiterfassung1337-sub000/store/sqlite"
	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func marchUTC(day, hour int) time.Time {
	return time.Date(2025, time.March, day, hour, 0, 0, 0, time.UTC)
}

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// =============================================================================
// INTERVALS
// =============================================================================

func TestSQLite_Interval_RoundTrip(t *testing.T) {
	// GIVEN: A closed interval with pause bookkeeping
	// WHEN: Creating and reading it back
	// THEN: All fields survive, including nullable ones

	store := newTestStore(t)
	ctx := context.Background()

	end := marchUTC(10, 16)
	minutes := 465
	iv := tracking.WorkInterval{
		ID:                "iv-1",
		UserID:            "emp-1",
		Start:             marchUTC(10, 8),
		End:               &end,
		DurationMinutes:   &minutes,
		PauseTotalMinutes: 45,
		Category:          "office",
		Note:              "sprint work",
		Project:           "backend",
		CreatedAt:         marchUTC(10, 8),
		UpdatedAt:         marchUTC(10, 16),
	}
	require.NoError(t, store.CreateInterval(ctx, iv))

	got, err := store.GetInterval(ctx, "iv-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, iv.UserID, got.UserID)
	assert.True(t, got.Start.Equal(iv.Start))
	require.NotNil(t, got.End)
	assert.True(t, got.End.Equal(end))
	require.NotNil(t, got.DurationMinutes)
	assert.Equal(t, 465, *got.DurationMinutes)
	assert.Equal(t, 45, got.PauseTotalMinutes)
	assert.Nil(t, got.PauseStartedAt)
	assert.Equal(t, "backend", got.Project)
}

func TestSQLite_OpenInterval_FindsOnlyOpenRow(t *testing.T) {
	// GIVEN: A closed interval and an open one
	// WHEN: Querying the open interval
	// THEN: Only the row without end is returned

	store := newTestStore(t)
	ctx := context.Background()

	end := marchUTC(10, 12)
	minutes := 240
	require.NoError(t, store.CreateInterval(ctx, tracking.WorkInterval{
		ID: "iv-closed", UserID: "emp-1", Start: marchUTC(10, 8),
		End: &end, DurationMinutes: &minutes,
		CreatedAt: marchUTC(10, 8), UpdatedAt: marchUTC(10, 12),
	}))
	pauseStart := marchUTC(10, 14)
	require.NoError(t, store.CreateInterval(ctx, tracking.WorkInterval{
		ID: "iv-open", UserID: "emp-1", Start: marchUTC(10, 13),
		PauseStartedAt: &pauseStart,
		CreatedAt:      marchUTC(10, 13), UpdatedAt: marchUTC(10, 14),
	}))

	open, err := store.OpenInterval(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, tracking.IntervalID("iv-open"), open.ID)
	require.NotNil(t, open.PauseStartedAt)
	assert.True(t, open.PauseStartedAt.Equal(pauseStart))

	open, err = store.OpenInterval(ctx, "emp-2")
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestSQLite_IntervalsInRange_HalfOpenOrdered(t *testing.T) {
	// GIVEN: Intervals starting March 9, 10 and 11
	// WHEN: Querying [March 10, March 11)
	// THEN: Only March 10, ordered by start

	store := newTestStore(t)
	ctx := context.Background()

	for i, start := range []time.Time{marchUTC(9, 9), marchUTC(10, 14), marchUTC(10, 8), marchUTC(11, 0)} {
		end := start.Add(time.Hour)
		minutes := 60
		require.NoError(t, store.CreateInterval(ctx, tracking.WorkInterval{
			ID:     tracking.IntervalID([]string{"a", "b", "c", "d"}[i]),
			UserID: "emp-1", Start: start, End: &end, DurationMinutes: &minutes,
			CreatedAt: start, UpdatedAt: end,
		}))
	}

	got, err := store.IntervalsInRange(ctx, "emp-1", marchUTC(10, 0), marchUTC(11, 0))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, tracking.IntervalID("c"), got[0].ID)
	assert.Equal(t, tracking.IntervalID("b"), got[1].ID)
}

func TestSQLite_UpdateMissingInterval_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateInterval(context.Background(), tracking.WorkInterval{
		ID: "ghost", UserID: "emp-1", Start: marchUTC(10, 8),
		CreatedAt: marchUTC(10, 8), UpdatedAt: marchUTC(10, 8),
	})
	assert.True(t, errors.Is(err, tracking.ErrNotFound))

	err = store.DeleteInterval(context.Background(), "ghost")
	assert.True(t, errors.Is(err, tracking.ErrNotFound))
}

// =============================================================================
// RATES
// =============================================================================

func TestSQLite_Rate_RoundTripWithWindow(t *testing.T) {
	// GIVEN: A night surcharge with a weekday window
	// WHEN: Creating and reading it back
	// THEN: Decimals and the JSON window survive

	store := newTestStore(t)
	ctx := context.Background()

	rate := tracking.Rate{
		ID: "rate-night", Code: "night", Label: "Night surcharge",
		Multiplier: decp("1.25"), AppliesTo: tracking.ClassNight,
		Window: &tracking.TimeWindow{
			Days:      []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			StartHour: 21, EndHour: 24,
		},
		Priority:  10,
		CreatedAt: marchUTC(1, 0), UpdatedAt: marchUTC(1, 0),
	}
	require.NoError(t, store.CreateRate(ctx, rate))

	got, err := store.GetRateByCode(ctx, "night")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Multiplier.Equal(*rate.Multiplier))
	assert.Nil(t, got.HourlyRate)
	require.NotNil(t, got.Window)
	assert.Equal(t, 21, got.Window.StartHour)
	assert.Len(t, got.Window.Days, 5)
	assert.True(t, got.Window.ContainsDay(time.Friday))
	assert.False(t, got.Window.ContainsDay(time.Sunday))
}

func TestSQLite_BaseRate_Lookup(t *testing.T) {
	// GIVEN: A base rate and a surcharge
	// WHEN: Querying BaseRate
	// THEN: Only the flagged row comes back; empty store yields nil

	store := newTestStore(t)
	ctx := context.Background()

	base, err := store.BaseRate(ctx)
	require.NoError(t, err)
	assert.Nil(t, base)

	require.NoError(t, store.CreateRate(ctx, tracking.Rate{
		ID: "rate-base", Code: "base", HourlyRate: decp("18.50"),
		AppliesTo: tracking.ClassManual, IsBaseRate: true,
		CreatedAt: marchUTC(1, 0), UpdatedAt: marchUTC(1, 0),
	}))
	require.NoError(t, store.CreateRate(ctx, tracking.Rate{
		ID: "rate-holiday", Code: "holiday", Multiplier: decp("2.00"),
		AppliesTo: tracking.ClassHoliday, Priority: 40,
		CreatedAt: marchUTC(1, 0), UpdatedAt: marchUTC(1, 0),
	}))

	base, err = store.BaseRate(ctx)
	require.NoError(t, err)
	require.NotNil(t, base)
	assert.Equal(t, "base", base.Code)
	assert.True(t, base.HourlyRate.Equal(*decp("18.50")))
}

func TestSQLite_ListRates_OrderedByPriorityThenCode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, r := range []tracking.Rate{
		{ID: "r1", Code: "zeta", AppliesTo: tracking.ClassNight, Priority: 10},
		{ID: "r2", Code: "alpha", AppliesTo: tracking.ClassNight, Priority: 10},
		{ID: "r3", Code: "base", AppliesTo: tracking.ClassManual, Priority: 0},
	} {
		r.CreatedAt = marchUTC(1, 0)
		r.UpdatedAt = marchUTC(1, 0)
		require.NoError(t, store.CreateRate(ctx, r))
	}

	rates, err := store.ListRates(ctx)
	require.NoError(t, err)
	require.Len(t, rates, 3)
	assert.Equal(t, "base", rates[0].Code)
	assert.Equal(t, "alpha", rates[1].Code)
	assert.Equal(t, "zeta", rates[2].Code)
}

// =============================================================================
// HOLIDAYS / ABSENCES
// =============================================================================

func TestSQLite_Holiday_RoundTripAndRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateHoliday(ctx, tracking.Holiday{
		ID: "h1", Date: marchUTC(16, 0), Region: "default", Name: "Some Holiday",
	}))

	got, err := store.HolidayOn(ctx, marchUTC(16, 0), "default")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Some Holiday", got.Name)

	got, err = store.HolidayOn(ctx, marchUTC(16, 0), "bavaria")
	require.NoError(t, err)
	assert.Nil(t, got, "region-exact lookup")

	list, err := store.HolidaysInRange(ctx, marchUTC(1, 0), time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), "default")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLite_Absence_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ab := tracking.Absence{
		ID: "ab1", UserID: "emp-1", Date: marchUTC(12, 0),
		Type: tracking.AbsenceSick, Hours: *decp("8"), Amount: *decp("148.00"),
		Note: "flu", CreatedAt: marchUTC(12, 7),
	}
	require.NoError(t, store.CreateAbsence(ctx, ab))

	got, err := store.AbsenceOn(ctx, "emp-1", marchUTC(12, 0), tracking.AbsenceSick)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Hours.Equal(ab.Hours))
	assert.True(t, got.Amount.Equal(ab.Amount))

	got, err = store.AbsenceOn(ctx, "emp-1", marchUTC(12, 0), tracking.AbsenceVacation)
	require.NoError(t, err)
	assert.Nil(t, got, "type-exact lookup")

	got, err = store.GetAbsence(ctx, "ab1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, tracking.UserID("emp-1"), got.UserID)

	got, err = store.GetAbsence(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// =============================================================================
// AUDIT
// =============================================================================

func TestSQLite_Audit_AppendAndFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, action := range []tracking.AuditAction{tracking.AuditCheckIn, tracking.AuditCheckOut, tracking.AuditRateChanged} {
		require.NoError(t, store.AppendAudit(ctx, tracking.AuditEntry{
			ID: string(rune('a' + i)), At: marchUTC(10, 8+i),
			ActorID: "emp-1", ActorRole: tracking.RoleUser,
			Action: action, UserID: "emp-1",
			Payload: map[string]any{"n": float64(i)},
		}))
	}

	uid := tracking.UserID("emp-1")
	entries, err := store.QueryAudit(ctx, tracking.AuditFilter{
		UserID:  &uid,
		Actions: []tracking.AuditAction{tracking.AuditCheckIn, tracking.AuditCheckOut},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, tracking.AuditCheckIn, entries[0].Action)
	assert.Equal(t, tracking.AuditCheckOut, entries[1].Action)
	assert.Equal(t, float64(0), entries[0].Payload["n"])
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestSQLite_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that writes then fails
	// WHEN: WithTx returns the error
	// THEN: Nothing is visible afterwards

	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s tracking.Store) error {
		if err := s.CreateInterval(ctx, tracking.WorkInterval{
			ID: "iv-tx", UserID: "emp-1", Start: marchUTC(10, 8),
			CreatedAt: marchUTC(10, 8), UpdatedAt: marchUTC(10, 8),
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.GetInterval(ctx, "iv-tx")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_WithTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s tracking.Store) error {
		return s.CreateInterval(ctx, tracking.WorkInterval{
			ID: "iv-tx", UserID: "emp-1", Start: marchUTC(10, 8),
			CreatedAt: marchUTC(10, 8), UpdatedAt: marchUTC(10, 8),
		})
	})
	require.NoError(t, err)

	got, err := store.GetInterval(ctx, "iv-tx")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestSQLite_OneOpenIndex_Backstop(t *testing.T) {
	// GIVEN: An open interval for emp-1
	// WHEN: Inserting a second open row directly, bypassing the engine
	// THEN: The partial unique index rejects it

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateInterval(ctx, tracking.WorkInterval{
		ID: "iv-1", UserID: "emp-1", Start: marchUTC(10, 8),
		CreatedAt: marchUTC(10, 8), UpdatedAt: marchUTC(10, 8),
	}))

	err := store.CreateInterval(ctx, tracking.WorkInterval{
		ID: "iv-2", UserID: "emp-1", Start: marchUTC(10, 9),
		CreatedAt: marchUTC(10, 9), UpdatedAt: marchUTC(10, 9),
	})
	assert.Error(t, err)
}
