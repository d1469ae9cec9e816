// Package memory provides an in-memory tracking.TxStore for tests and dev.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store keeps all records in maps guarded by a single RWMutex.
// WithTx snapshots the maps and restores them on error, which gives the
// same all-or-nothing semantics as a database transaction.
type Store struct {
	mu        sync.RWMutex
	intervals map[tracking.IntervalID]tracking.WorkInterval
	rates     map[tracking.RateID]tracking.Rate
	holidays  map[tracking.HolidayID]tracking.Holiday
	absences  map[tracking.AbsenceID]tracking.Absence
	audit     []tracking.AuditEntry
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		intervals: make(map[tracking.IntervalID]tracking.WorkInterval),
		rates:     make(map[tracking.RateID]tracking.Rate),
		holidays:  make(map[tracking.HolidayID]tracking.Holiday),
		absences:  make(map[tracking.AbsenceID]tracking.Absence),
	}
}

var _ tracking.TxStore = (*Store)(nil)

// =============================================================================
// TRANSACTIONS - Snapshot and restore
// =============================================================================

// WithTx executes fn against an unlocked view while holding the write
// lock, rolling back to a snapshot if fn fails. Serializing transactions
// on the write lock is what makes concurrent check-ins race-safe here.
func (m *Store) WithTx(_ context.Context, fn func(tracking.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type snapshotState struct {
	intervals map[tracking.IntervalID]tracking.WorkInterval
	rates     map[tracking.RateID]tracking.Rate
	holidays  map[tracking.HolidayID]tracking.Holiday
	absences  map[tracking.AbsenceID]tracking.Absence
	audit     []tracking.AuditEntry
}

func (m *Store) snapshot() snapshotState {
	s := snapshotState{
		intervals: make(map[tracking.IntervalID]tracking.WorkInterval, len(m.intervals)),
		rates:     make(map[tracking.RateID]tracking.Rate, len(m.rates)),
		holidays:  make(map[tracking.HolidayID]tracking.Holiday, len(m.holidays)),
		absences:  make(map[tracking.AbsenceID]tracking.Absence, len(m.absences)),
		audit:     append([]tracking.AuditEntry{}, m.audit...),
	}
	for k, v := range m.intervals {
		s.intervals[k] = v
	}
	for k, v := range m.rates {
		s.rates[k] = v
	}
	for k, v := range m.holidays {
		s.holidays[k] = v
	}
	for k, v := range m.absences {
		s.absences[k] = v
	}
	return s
}

func (m *Store) restore(s snapshotState) {
	m.intervals = s.intervals
	m.rates = s.rates
	m.holidays = s.holidays
	m.absences = s.absences
	m.audit = s.audit
}

// txView runs the unlocked operations while the parent holds the lock.
type txView struct{ parent *Store }

// =============================================================================
// INTERVAL STORE
// =============================================================================

func (m *Store) CreateInterval(ctx context.Context, iv tracking.WorkInterval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createIntervalLocked(iv)
}

func (m *Store) createIntervalLocked(iv tracking.WorkInterval) error {
	if _, ok := m.intervals[iv.ID]; ok {
		return tracking.ErrConflict
	}
	m.intervals[iv.ID] = iv
	return nil
}

func (m *Store) GetInterval(ctx context.Context, id tracking.IntervalID) (*tracking.WorkInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getIntervalLocked(id)
}

func (m *Store) getIntervalLocked(id tracking.IntervalID) (*tracking.WorkInterval, error) {
	iv, ok := m.intervals[id]
	if !ok {
		return nil, nil
	}
	return &iv, nil
}

func (m *Store) OpenInterval(ctx context.Context, userID tracking.UserID) (*tracking.WorkInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.openIntervalLocked(userID)
}

func (m *Store) openIntervalLocked(userID tracking.UserID) (*tracking.WorkInterval, error) {
	for _, iv := range m.intervals {
		if iv.UserID == userID && iv.End == nil {
			iv := iv
			return &iv, nil
		}
	}
	return nil, nil
}

func (m *Store) UpdateInterval(ctx context.Context, iv tracking.WorkInterval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateIntervalLocked(iv)
}

func (m *Store) updateIntervalLocked(iv tracking.WorkInterval) error {
	if _, ok := m.intervals[iv.ID]; !ok {
		return tracking.ErrNotFound
	}
	m.intervals[iv.ID] = iv
	return nil
}

func (m *Store) DeleteInterval(ctx context.Context, id tracking.IntervalID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteIntervalLocked(id)
}

func (m *Store) deleteIntervalLocked(id tracking.IntervalID) error {
	if _, ok := m.intervals[id]; !ok {
		return tracking.ErrNotFound
	}
	delete(m.intervals, id)
	return nil
}

func (m *Store) IntervalsInRange(ctx context.Context, userID tracking.UserID, from, to time.Time) ([]tracking.WorkInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.intervalsInRangeLocked(userID, from, to)
}

func (m *Store) intervalsInRangeLocked(userID tracking.UserID, from, to time.Time) ([]tracking.WorkInterval, error) {
	var result []tracking.WorkInterval
	for _, iv := range m.intervals {
		if iv.UserID == userID && !iv.Start.Before(from) && iv.Start.Before(to) {
			result = append(result, iv)
		}
	}
	sortIntervals(result)
	return result, nil
}

func (m *Store) IntervalsForUser(ctx context.Context, userID tracking.UserID) ([]tracking.WorkInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.intervalsForUserLocked(userID)
}

func (m *Store) intervalsForUserLocked(userID tracking.UserID) ([]tracking.WorkInterval, error) {
	var result []tracking.WorkInterval
	for _, iv := range m.intervals {
		if iv.UserID == userID {
			result = append(result, iv)
		}
	}
	sortIntervals(result)
	return result, nil
}

func sortIntervals(ivs []tracking.WorkInterval) {
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start.Before(ivs[j].Start) })
}

// =============================================================================
// RATE STORE
// =============================================================================

func (m *Store) CreateRate(ctx context.Context, r tracking.Rate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createRateLocked(r)
}

func (m *Store) createRateLocked(r tracking.Rate) error {
	if _, ok := m.rates[r.ID]; ok {
		return tracking.ErrConflict
	}
	for _, existing := range m.rates {
		if existing.Code == r.Code {
			return tracking.ErrConflict
		}
	}
	m.rates[r.ID] = r
	return nil
}

func (m *Store) GetRate(ctx context.Context, id tracking.RateID) (*tracking.Rate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRateLocked(id)
}

func (m *Store) getRateLocked(id tracking.RateID) (*tracking.Rate, error) {
	r, ok := m.rates[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Store) GetRateByCode(ctx context.Context, code string) (*tracking.Rate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRateByCodeLocked(code)
}

func (m *Store) getRateByCodeLocked(code string) (*tracking.Rate, error) {
	for _, r := range m.rates {
		if r.Code == code {
			r := r
			return &r, nil
		}
	}
	return nil, nil
}

func (m *Store) UpdateRate(ctx context.Context, r tracking.Rate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateRateLocked(r)
}

func (m *Store) updateRateLocked(r tracking.Rate) error {
	if _, ok := m.rates[r.ID]; !ok {
		return tracking.ErrNotFound
	}
	m.rates[r.ID] = r
	return nil
}

func (m *Store) DeleteRate(ctx context.Context, id tracking.RateID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteRateLocked(id)
}

func (m *Store) deleteRateLocked(id tracking.RateID) error {
	if _, ok := m.rates[id]; !ok {
		return tracking.ErrNotFound
	}
	delete(m.rates, id)
	return nil
}

func (m *Store) ListRates(ctx context.Context) ([]tracking.Rate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRatesLocked()
}

func (m *Store) listRatesLocked() ([]tracking.Rate, error) {
	result := make([]tracking.Rate, 0, len(m.rates))
	for _, r := range m.rates {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].Code < result[j].Code
	})
	return result, nil
}

func (m *Store) BaseRate(ctx context.Context) (*tracking.Rate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.baseRateLocked()
}

func (m *Store) baseRateLocked() (*tracking.Rate, error) {
	for _, r := range m.rates {
		if r.IsBaseRate {
			r := r
			return &r, nil
		}
	}
	return nil, nil
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

func (m *Store) CreateHoliday(ctx context.Context, h tracking.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createHolidayLocked(h)
}

func (m *Store) createHolidayLocked(h tracking.Holiday) error {
	if _, ok := m.holidays[h.ID]; ok {
		return tracking.ErrConflict
	}
	for _, existing := range m.holidays {
		if existing.Region == h.Region && existing.Date.Equal(h.Date) {
			return tracking.ErrConflict
		}
	}
	m.holidays[h.ID] = h
	return nil
}

func (m *Store) DeleteHoliday(ctx context.Context, id tracking.HolidayID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteHolidayLocked(id)
}

func (m *Store) deleteHolidayLocked(id tracking.HolidayID) error {
	if _, ok := m.holidays[id]; !ok {
		return tracking.ErrNotFound
	}
	delete(m.holidays, id)
	return nil
}

func (m *Store) HolidayOn(ctx context.Context, date time.Time, region string) (*tracking.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.holidayOnLocked(date, region)
}

func (m *Store) holidayOnLocked(date time.Time, region string) (*tracking.Holiday, error) {
	for _, h := range m.holidays {
		if h.Region == region && sameDate(h.Date, date) {
			h := h
			return &h, nil
		}
	}
	return nil, nil
}

func (m *Store) HolidaysInRange(ctx context.Context, from, to time.Time, region string) ([]tracking.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.holidaysInRangeLocked(from, to, region)
}

func (m *Store) holidaysInRangeLocked(from, to time.Time, region string) ([]tracking.Holiday, error) {
	var result []tracking.Holiday
	for _, h := range m.holidays {
		if h.Region == region && !h.Date.Before(from) && h.Date.Before(to) {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// =============================================================================
// ABSENCE STORE
// =============================================================================

func (m *Store) CreateAbsence(ctx context.Context, a tracking.Absence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createAbsenceLocked(a)
}

func (m *Store) createAbsenceLocked(a tracking.Absence) error {
	if _, ok := m.absences[a.ID]; ok {
		return tracking.ErrConflict
	}
	for _, existing := range m.absences {
		if existing.UserID == a.UserID && existing.Type == a.Type && sameDate(existing.Date, a.Date) {
			return tracking.ErrConflict
		}
	}
	m.absences[a.ID] = a
	return nil
}

func (m *Store) GetAbsence(ctx context.Context, id tracking.AbsenceID) (*tracking.Absence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAbsenceLocked(id)
}

func (m *Store) getAbsenceLocked(id tracking.AbsenceID) (*tracking.Absence, error) {
	a, ok := m.absences[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Store) DeleteAbsence(ctx context.Context, id tracking.AbsenceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteAbsenceLocked(id)
}

func (m *Store) deleteAbsenceLocked(id tracking.AbsenceID) error {
	if _, ok := m.absences[id]; !ok {
		return tracking.ErrNotFound
	}
	delete(m.absences, id)
	return nil
}

func (m *Store) AbsenceOn(ctx context.Context, userID tracking.UserID, date time.Time, typ tracking.AbsenceType) (*tracking.Absence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.absenceOnLocked(userID, date, typ)
}

func (m *Store) absenceOnLocked(userID tracking.UserID, date time.Time, typ tracking.AbsenceType) (*tracking.Absence, error) {
	for _, a := range m.absences {
		if a.UserID == userID && a.Type == typ && sameDate(a.Date, date) {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (m *Store) AbsencesInRange(ctx context.Context, userID tracking.UserID, from, to time.Time) ([]tracking.Absence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.absencesInRangeLocked(userID, from, to)
}

func (m *Store) absencesInRangeLocked(userID tracking.UserID, from, to time.Time) ([]tracking.Absence, error) {
	var result []tracking.Absence
	for _, a := range m.absences {
		if a.UserID == userID && !a.Date.Before(from) && a.Date.Before(to) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (m *Store) AppendAudit(ctx context.Context, entry tracking.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendAuditLocked(entry)
}

func (m *Store) appendAuditLocked(entry tracking.AuditEntry) error {
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Store) QueryAudit(ctx context.Context, filter tracking.AuditFilter) ([]tracking.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryAuditLocked(filter)
}

func (m *Store) queryAuditLocked(filter tracking.AuditFilter) ([]tracking.AuditEntry, error) {
	var result []tracking.AuditEntry
	for _, e := range m.audit {
		if filter.UserID != nil && e.UserID != *filter.UserID {
			continue
		}
		if filter.ActorID != nil && e.ActorID != *filter.ActorID {
			continue
		}
		if filter.From != nil && e.At.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !e.At.Before(*filter.To) {
			continue
		}
		if len(filter.Actions) > 0 && !containsAction(filter.Actions, e.Action) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func containsAction(actions []tracking.AuditAction, a tracking.AuditAction) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}

// =============================================================================
// TRANSACTIONAL VIEW - Store methods without locking
// =============================================================================

func (v *txView) CreateInterval(_ context.Context, iv tracking.WorkInterval) error {
	return v.parent.createIntervalLocked(iv)
}
func (v *txView) GetInterval(_ context.Context, id tracking.IntervalID) (*tracking.WorkInterval, error) {
	return v.parent.getIntervalLocked(id)
}
func (v *txView) OpenInterval(_ context.Context, userID tracking.UserID) (*tracking.WorkInterval, error) {
	return v.parent.openIntervalLocked(userID)
}
func (v *txView) UpdateInterval(_ context.Context, iv tracking.WorkInterval) error {
	return v.parent.updateIntervalLocked(iv)
}
func (v *txView) DeleteInterval(_ context.Context, id tracking.IntervalID) error {
	return v.parent.deleteIntervalLocked(id)
}
func (v *txView) IntervalsInRange(_ context.Context, userID tracking.UserID, from, to time.Time) ([]tracking.WorkInterval, error) {
	return v.parent.intervalsInRangeLocked(userID, from, to)
}
func (v *txView) IntervalsForUser(_ context.Context, userID tracking.UserID) ([]tracking.WorkInterval, error) {
	return v.parent.intervalsForUserLocked(userID)
}

func (v *txView) CreateRate(_ context.Context, r tracking.Rate) error {
	return v.parent.createRateLocked(r)
}
func (v *txView) GetRate(_ context.Context, id tracking.RateID) (*tracking.Rate, error) {
	return v.parent.getRateLocked(id)
}
func (v *txView) GetRateByCode(_ context.Context, code string) (*tracking.Rate, error) {
	return v.parent.getRateByCodeLocked(code)
}
func (v *txView) UpdateRate(_ context.Context, r tracking.Rate) error {
	return v.parent.updateRateLocked(r)
}
func (v *txView) DeleteRate(_ context.Context, id tracking.RateID) error {
	return v.parent.deleteRateLocked(id)
}
func (v *txView) ListRates(_ context.Context) ([]tracking.Rate, error) {
	return v.parent.listRatesLocked()
}
func (v *txView) BaseRate(_ context.Context) (*tracking.Rate, error) {
	return v.parent.baseRateLocked()
}

func (v *txView) CreateHoliday(_ context.Context, h tracking.Holiday) error {
	return v.parent.createHolidayLocked(h)
}
func (v *txView) DeleteHoliday(_ context.Context, id tracking.HolidayID) error {
	return v.parent.deleteHolidayLocked(id)
}
func (v *txView) HolidayOn(_ context.Context, date time.Time, region string) (*tracking.Holiday, error) {
	return v.parent.holidayOnLocked(date, region)
}
func (v *txView) HolidaysInRange(_ context.Context, from, to time.Time, region string) ([]tracking.Holiday, error) {
	return v.parent.holidaysInRangeLocked(from, to, region)
}

func (v *txView) CreateAbsence(_ context.Context, a tracking.Absence) error {
	return v.parent.createAbsenceLocked(a)
}
func (v *txView) GetAbsence(_ context.Context, id tracking.AbsenceID) (*tracking.Absence, error) {
	return v.parent.getAbsenceLocked(id)
}
func (v *txView) DeleteAbsence(_ context.Context, id tracking.AbsenceID) error {
	return v.parent.deleteAbsenceLocked(id)
}
func (v *txView) AbsenceOn(_ context.Context, userID tracking.UserID, date time.Time, typ tracking.AbsenceType) (*tracking.Absence, error) {
	return v.parent.absenceOnLocked(userID, date, typ)
}
func (v *txView) AbsencesInRange(_ context.Context, userID tracking.UserID, from, to time.Time) ([]tracking.Absence, error) {
	return v.parent.absencesInRangeLocked(userID, from, to)
}

func (v *txView) AppendAudit(_ context.Context, entry tracking.AuditEntry) error {
	return v.parent.appendAuditLocked(entry)
}
func (v *txView) QueryAudit(_ context.Context, filter tracking.AuditFilter) ([]tracking.AuditEntry, error) {
	return v.parent.queryAuditLocked(filter)
}
