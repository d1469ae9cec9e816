/*
Package sqlite provides the SQLite-backed implementation of tracking.TxStore.

PURPOSE:
  Persists work intervals, rates, holidays, absences and the audit log.
  The same patterns apply to PostgreSQL - only minor dialect differences.

KEY TABLES:
  work_intervals: Sessions; at most one open (end_utc IS NULL) row per user
  rates:          Rate definitions, window serialized as JSON
  holidays:       Exact-date rows, unique per (date, region)
  absences:       Flat-rate records with frozen amounts
  audit_log:      Append-only mutation trail

CONCURRENCY:
  A sync.Mutex serializes WithTx calls on top of SQLite's single-writer
  model; the open-session and overlap checks therefore observe a stable
  view before their writes commit. Read-only queries run lock-free on the
  connection pool.

WAL MODE:
  Opened with WAL so report reads do not block clock mutations.

USAGE:
  store, err := sqlite.New("./data/tracking.db")
  if err != nil { log.Fatal(err) }
  defer store.Close()

SEE ALSO:
  - tracking/store.go: Interface definitions
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

// Store implements tracking.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes WithTx
}

// New opens (or creates) the database and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

var _ tracking.TxStore = (*Store)(nil)

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS work_intervals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		start_utc TEXT NOT NULL,
		end_utc TEXT,
		duration_minutes INTEGER,
		pause_total_minutes INTEGER NOT NULL DEFAULT 0,
		pause_started_utc TEXT,
		category TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		project TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_intervals_user_start
		ON work_intervals(user_id, start_utc);

	-- Backstop for the at-most-one-open-session invariant. The engine
	-- enforces it via transactional check-then-write; this index catches
	-- anything that slips past a bug.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_intervals_one_open
		ON work_intervals(user_id) WHERE end_utc IS NULL;

	CREATE TABLE IF NOT EXISTS rates (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL DEFAULT '',
		multiplier TEXT,
		hourly_rate TEXT,
		applies_to TEXT NOT NULL,
		window_json TEXT,
		is_base_rate INTEGER NOT NULL DEFAULT 0,
		fixed_amount TEXT,
		fixed_hours TEXT,
		priority INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rates_applies_to ON rates(applies_to);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		region TEXT NOT NULL,
		name TEXT NOT NULL,
		UNIQUE(date, region)
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_region_date ON holidays(region, date);

	CREATE TABLE IF NOT EXISTS absences (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		hours TEXT NOT NULL,
		amount TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE(user_id, date, type)
	);

	CREATE INDEX IF NOT EXISTS idx_absences_user_date ON absences(user_id, date);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		at TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		action TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_log(user_id, at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within one database transaction. The store mutex
// keeps concurrent check-then-write sequences serialized.
func (s *Store) WithTx(ctx context.Context, fn func(tracking.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{db: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore runs all Store operations against the open sql.Tx.
type txStore struct {
	db *sql.Tx
}

var _ tracking.Store = (*txStore)(nil)

// =============================================================================
// INTERVAL STORE
// =============================================================================

const intervalColumns = `id, user_id, start_utc, end_utc, duration_minutes,
	pause_total_minutes, pause_started_utc, category, note, project,
	created_at, updated_at`

func createInterval(ctx context.Context, db dbtx, iv tracking.WorkInterval) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO work_intervals
		(id, user_id, start_utc, end_utc, duration_minutes, pause_total_minutes,
		 pause_started_utc, category, note, project, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.ID, iv.UserID, fmtTime(iv.Start), fmtTimePtr(iv.End), iv.DurationMinutes,
		iv.PauseTotalMinutes, fmtTimePtr(iv.PauseStartedAt), iv.Category, iv.Note,
		iv.Project, fmtTime(iv.CreatedAt), fmtTime(iv.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert interval: %w", err)
	}
	return nil
}

func getInterval(ctx context.Context, db dbtx, id tracking.IntervalID) (*tracking.WorkInterval, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+intervalColumns+` FROM work_intervals WHERE id = ?`, id)
	iv, err := scanInterval(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return iv, nil
}

func openInterval(ctx context.Context, db dbtx, userID tracking.UserID) (*tracking.WorkInterval, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+intervalColumns+` FROM work_intervals WHERE user_id = ? AND end_utc IS NULL`, userID)
	iv, err := scanInterval(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return iv, nil
}

func updateInterval(ctx context.Context, db dbtx, iv tracking.WorkInterval) error {
	res, err := db.ExecContext(ctx, `
		UPDATE work_intervals SET
			user_id = ?, start_utc = ?, end_utc = ?, duration_minutes = ?,
			pause_total_minutes = ?, pause_started_utc = ?, category = ?,
			note = ?, project = ?, updated_at = ?
		WHERE id = ?`,
		iv.UserID, fmtTime(iv.Start), fmtTimePtr(iv.End), iv.DurationMinutes,
		iv.PauseTotalMinutes, fmtTimePtr(iv.PauseStartedAt), iv.Category,
		iv.Note, iv.Project, fmtTime(iv.UpdatedAt), iv.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update interval: %w", err)
	}
	return requireRow(res)
}

func deleteInterval(ctx context.Context, db dbtx, id tracking.IntervalID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM work_intervals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func intervalsInRange(ctx context.Context, db dbtx, userID tracking.UserID, from, to time.Time) ([]tracking.WorkInterval, error) {
	return queryIntervals(ctx, db, `
		SELECT `+intervalColumns+` FROM work_intervals
		WHERE user_id = ? AND start_utc >= ? AND start_utc < ?
		ORDER BY start_utc ASC`,
		userID, fmtTime(from), fmtTime(to))
}

func intervalsForUser(ctx context.Context, db dbtx, userID tracking.UserID) ([]tracking.WorkInterval, error) {
	return queryIntervals(ctx, db, `
		SELECT `+intervalColumns+` FROM work_intervals
		WHERE user_id = ? ORDER BY start_utc ASC`, userID)
}

func queryIntervals(ctx context.Context, db dbtx, query string, args ...any) ([]tracking.WorkInterval, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query intervals: %w", err)
	}
	defer rows.Close()

	var result []tracking.WorkInterval
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *iv)
	}
	return result, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanInterval(row scannable) (*tracking.WorkInterval, error) {
	var (
		iv           tracking.WorkInterval
		start        string
		end          sql.NullString
		duration     sql.NullInt64
		pauseStarted sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(&iv.ID, &iv.UserID, &start, &end, &duration,
		&iv.PauseTotalMinutes, &pauseStarted, &iv.Category, &iv.Note,
		&iv.Project, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	iv.Start = parseTime(start)
	iv.End = parseTimePtr(end)
	iv.PauseStartedAt = parseTimePtr(pauseStarted)
	if duration.Valid {
		d := int(duration.Int64)
		iv.DurationMinutes = &d
	}
	iv.CreatedAt = parseTime(createdAt)
	iv.UpdatedAt = parseTime(updatedAt)
	return &iv, nil
}

func (s *Store) CreateInterval(ctx context.Context, iv tracking.WorkInterval) error {
	return createInterval(ctx, s.db, iv)
}
func (s *Store) GetInterval(ctx context.Context, id tracking.IntervalID) (*tracking.WorkInterval, error) {
	return getInterval(ctx, s.db, id)
}
func (s *Store) OpenInterval(ctx context.Context, userID tracking.UserID) (*tracking.WorkInterval, error) {
	return openInterval(ctx, s.db, userID)
}
func (s *Store) UpdateInterval(ctx context.Context, iv tracking.WorkInterval) error {
	return updateInterval(ctx, s.db, iv)
}
func (s *Store) DeleteInterval(ctx context.Context, id tracking.IntervalID) error {
	return deleteInterval(ctx, s.db, id)
}
func (s *Store) IntervalsInRange(ctx context.Context, userID tracking.UserID, from, to time.Time) ([]tracking.WorkInterval, error) {
	return intervalsInRange(ctx, s.db, userID, from, to)
}
func (s *Store) IntervalsForUser(ctx context.Context, userID tracking.UserID) ([]tracking.WorkInterval, error) {
	return intervalsForUser(ctx, s.db, userID)
}

func (t *txStore) CreateInterval(ctx context.Context, iv tracking.WorkInterval) error {
	return createInterval(ctx, t.db, iv)
}
func (t *txStore) GetInterval(ctx context.Context, id tracking.IntervalID) (*tracking.WorkInterval, error) {
	return getInterval(ctx, t.db, id)
}
func (t *txStore) OpenInterval(ctx context.Context, userID tracking.UserID) (*tracking.WorkInterval, error) {
	return openInterval(ctx, t.db, userID)
}
func (t *txStore) UpdateInterval(ctx context.Context, iv tracking.WorkInterval) error {
	return updateInterval(ctx, t.db, iv)
}
func (t *txStore) DeleteInterval(ctx context.Context, id tracking.IntervalID) error {
	return deleteInterval(ctx, t.db, id)
}
func (t *txStore) IntervalsInRange(ctx context.Context, userID tracking.UserID, from, to time.Time) ([]tracking.WorkInterval, error) {
	return intervalsInRange(ctx, t.db, userID, from, to)
}
func (t *txStore) IntervalsForUser(ctx context.Context, userID tracking.UserID) ([]tracking.WorkInterval, error) {
	return intervalsForUser(ctx, t.db, userID)
}

// =============================================================================
// RATE STORE
// =============================================================================

const rateColumns = `id, code, label, multiplier, hourly_rate, applies_to,
	window_json, is_base_rate, fixed_amount, fixed_hours, priority,
	created_at, updated_at`

type windowJSON struct {
	Days      []int `json:"days"`
	StartHour int   `json:"start_hour"`
	EndHour   int   `json:"end_hour"`
}

func marshalWindow(w *tracking.TimeWindow) (any, error) {
	if w == nil {
		return nil, nil
	}
	days := make([]int, len(w.Days))
	for i, d := range w.Days {
		days[i] = int(d)
	}
	b, err := json.Marshal(windowJSON{Days: days, StartHour: w.StartHour, EndHour: w.EndHour})
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalWindow(s sql.NullString) (*tracking.TimeWindow, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var wj windowJSON
	if err := json.Unmarshal([]byte(s.String), &wj); err != nil {
		return nil, fmt.Errorf("failed to decode rate window: %w", err)
	}
	w := &tracking.TimeWindow{StartHour: wj.StartHour, EndHour: wj.EndHour}
	for _, d := range wj.Days {
		w.Days = append(w.Days, time.Weekday(d))
	}
	return w, nil
}

func createRate(ctx context.Context, db dbtx, r tracking.Rate) error {
	window, err := marshalWindow(r.Window)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO rates
		(id, code, label, multiplier, hourly_rate, applies_to, window_json,
		 is_base_rate, fixed_amount, fixed_hours, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Code, r.Label, decPtr(r.Multiplier), decPtr(r.HourlyRate),
		r.AppliesTo, window, r.IsBaseRate, decPtr(r.FixedAmount),
		decPtr(r.FixedHours), r.Priority, fmtTime(r.CreatedAt), fmtTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert rate: %w", err)
	}
	return nil
}

func updateRate(ctx context.Context, db dbtx, r tracking.Rate) error {
	window, err := marshalWindow(r.Window)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE rates SET
			code = ?, label = ?, multiplier = ?, hourly_rate = ?, applies_to = ?,
			window_json = ?, is_base_rate = ?, fixed_amount = ?, fixed_hours = ?,
			priority = ?, updated_at = ?
		WHERE id = ?`,
		r.Code, r.Label, decPtr(r.Multiplier), decPtr(r.HourlyRate), r.AppliesTo,
		window, r.IsBaseRate, decPtr(r.FixedAmount), decPtr(r.FixedHours),
		r.Priority, fmtTime(r.UpdatedAt), r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rate: %w", err)
	}
	return requireRow(res)
}

func deleteRate(ctx context.Context, db dbtx, id tracking.RateID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM rates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func getRateWhere(ctx context.Context, db dbtx, where string, arg any) (*tracking.Rate, error) {
	row := db.QueryRowContext(ctx, `SELECT `+rateColumns+` FROM rates WHERE `+where, arg)
	r, err := scanRate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func listRates(ctx context.Context, db dbtx) ([]tracking.Rate, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+rateColumns+` FROM rates ORDER BY priority ASC, code ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rates: %w", err)
	}
	defer rows.Close()

	var result []tracking.Rate
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

func baseRateRow(ctx context.Context, db dbtx) (*tracking.Rate, error) {
	return getRateWhere(ctx, db, `is_base_rate = ?`, true)
}

func scanRate(row scannable) (*tracking.Rate, error) {
	var (
		r           tracking.Rate
		multiplier  sql.NullString
		hourlyRate  sql.NullString
		window      sql.NullString
		fixedAmount sql.NullString
		fixedHours  sql.NullString
		createdAt   string
		updatedAt   string
	)
	err := row.Scan(&r.ID, &r.Code, &r.Label, &multiplier, &hourlyRate,
		&r.AppliesTo, &window, &r.IsBaseRate, &fixedAmount, &fixedHours,
		&r.Priority, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if r.Multiplier, err = parseDecPtr(multiplier); err != nil {
		return nil, err
	}
	if r.HourlyRate, err = parseDecPtr(hourlyRate); err != nil {
		return nil, err
	}
	if r.FixedAmount, err = parseDecPtr(fixedAmount); err != nil {
		return nil, err
	}
	if r.FixedHours, err = parseDecPtr(fixedHours); err != nil {
		return nil, err
	}
	if r.Window, err = unmarshalWindow(window); err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func (s *Store) CreateRate(ctx context.Context, r tracking.Rate) error {
	return createRate(ctx, s.db, r)
}
func (s *Store) GetRate(ctx context.Context, id tracking.RateID) (*tracking.Rate, error) {
	return getRateWhere(ctx, s.db, `id = ?`, id)
}
func (s *Store) GetRateByCode(ctx context.Context, code string) (*tracking.Rate, error) {
	return getRateWhere(ctx, s.db, `code = ?`, code)
}
func (s *Store) UpdateRate(ctx context.Context, r tracking.Rate) error {
	return updateRate(ctx, s.db, r)
}
func (s *Store) DeleteRate(ctx context.Context, id tracking.RateID) error {
	return deleteRate(ctx, s.db, id)
}
func (s *Store) ListRates(ctx context.Context) ([]tracking.Rate, error) {
	return listRates(ctx, s.db)
}
func (s *Store) BaseRate(ctx context.Context) (*tracking.Rate, error) {
	return baseRateRow(ctx, s.db)
}

func (t *txStore) CreateRate(ctx context.Context, r tracking.Rate) error {
	return createRate(ctx, t.db, r)
}
func (t *txStore) GetRate(ctx context.Context, id tracking.RateID) (*tracking.Rate, error) {
	return getRateWhere(ctx, t.db, `id = ?`, id)
}
func (t *txStore) GetRateByCode(ctx context.Context, code string) (*tracking.Rate, error) {
	return getRateWhere(ctx, t.db, `code = ?`, code)
}
func (t *txStore) UpdateRate(ctx context.Context, r tracking.Rate) error {
	return updateRate(ctx, t.db, r)
}
func (t *txStore) DeleteRate(ctx context.Context, id tracking.RateID) error {
	return deleteRate(ctx, t.db, id)
}
func (t *txStore) ListRates(ctx context.Context) ([]tracking.Rate, error) {
	return listRates(ctx, t.db)
}
func (t *txStore) BaseRate(ctx context.Context) (*tracking.Rate, error) {
	return baseRateRow(ctx, t.db)
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

func createHoliday(ctx context.Context, db dbtx, h tracking.Holiday) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO holidays (id, date, region, name) VALUES (?, ?, ?, ?)`,
		h.ID, fmtDate(h.Date), h.Region, h.Name)
	if err != nil {
		return fmt.Errorf("failed to insert holiday: %w", err)
	}
	return nil
}

func deleteHoliday(ctx context.Context, db dbtx, id tracking.HolidayID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func holidayOn(ctx context.Context, db dbtx, date time.Time, region string) (*tracking.Holiday, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, date, region, name FROM holidays WHERE date = ? AND region = ?`,
		fmtDate(date), region)
	h, err := scanHoliday(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func holidaysInRange(ctx context.Context, db dbtx, from, to time.Time, region string) ([]tracking.Holiday, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, date, region, name FROM holidays
		WHERE region = ? AND date >= ? AND date < ?
		ORDER BY date ASC`,
		region, fmtDate(from), fmtDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var result []tracking.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *h)
	}
	return result, rows.Err()
}

func scanHoliday(row scannable) (*tracking.Holiday, error) {
	var h tracking.Holiday
	var date string
	if err := row.Scan(&h.ID, &date, &h.Region, &h.Name); err != nil {
		return nil, err
	}
	h.Date = parseDate(date)
	return &h, nil
}

func (s *Store) CreateHoliday(ctx context.Context, h tracking.Holiday) error {
	return createHoliday(ctx, s.db, h)
}
func (s *Store) DeleteHoliday(ctx context.Context, id tracking.HolidayID) error {
	return deleteHoliday(ctx, s.db, id)
}
func (s *Store) HolidayOn(ctx context.Context, date time.Time, region string) (*tracking.Holiday, error) {
	return holidayOn(ctx, s.db, date, region)
}
func (s *Store) HolidaysInRange(ctx context.Context, from, to time.Time, region string) ([]tracking.Holiday, error) {
	return holidaysInRange(ctx, s.db, from, to, region)
}

func (t *txStore) CreateHoliday(ctx context.Context, h tracking.Holiday) error {
	return createHoliday(ctx, t.db, h)
}
func (t *txStore) DeleteHoliday(ctx context.Context, id tracking.HolidayID) error {
	return deleteHoliday(ctx, t.db, id)
}
func (t *txStore) HolidayOn(ctx context.Context, date time.Time, region string) (*tracking.Holiday, error) {
	return holidayOn(ctx, t.db, date, region)
}
func (t *txStore) HolidaysInRange(ctx context.Context, from, to time.Time, region string) ([]tracking.Holiday, error) {
	return holidaysInRange(ctx, t.db, from, to, region)
}

// =============================================================================
// ABSENCE STORE
// =============================================================================

func createAbsence(ctx context.Context, db dbtx, a tracking.Absence) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO absences (id, user_id, date, type, hours, amount, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, fmtDate(a.Date), a.Type, a.Hours.String(),
		a.Amount.String(), a.Note, fmtTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert absence: %w", err)
	}
	return nil
}

func getAbsence(ctx context.Context, db dbtx, id tracking.AbsenceID) (*tracking.Absence, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, date, type, hours, amount, note, created_at
		FROM absences WHERE id = ?`, id)
	a, err := scanAbsence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func deleteAbsence(ctx context.Context, db dbtx, id tracking.AbsenceID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM absences WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func absenceOn(ctx context.Context, db dbtx, userID tracking.UserID, date time.Time, typ tracking.AbsenceType) (*tracking.Absence, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, date, type, hours, amount, note, created_at
		FROM absences WHERE user_id = ? AND date = ? AND type = ?`,
		userID, fmtDate(date), typ)
	a, err := scanAbsence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func absencesInRange(ctx context.Context, db dbtx, userID tracking.UserID, from, to time.Time) ([]tracking.Absence, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, date, type, hours, amount, note, created_at
		FROM absences WHERE user_id = ? AND date >= ? AND date < ?
		ORDER BY date ASC`,
		userID, fmtDate(from), fmtDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query absences: %w", err)
	}
	defer rows.Close()

	var result []tracking.Absence
	for rows.Next() {
		a, err := scanAbsence(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func scanAbsence(row scannable) (*tracking.Absence, error) {
	var (
		a         tracking.Absence
		date      string
		hours     string
		amount    string
		createdAt string
	)
	if err := row.Scan(&a.ID, &a.UserID, &date, &a.Type, &hours, &amount, &a.Note, &createdAt); err != nil {
		return nil, err
	}
	a.Date = parseDate(date)
	var err error
	if a.Hours, err = decimal.NewFromString(hours); err != nil {
		return nil, fmt.Errorf("failed to parse absence hours: %w", err)
	}
	if a.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse absence amount: %w", err)
	}
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func (s *Store) CreateAbsence(ctx context.Context, a tracking.Absence) error {
	return createAbsence(ctx, s.db, a)
}
func (s *Store) GetAbsence(ctx context.Context, id tracking.AbsenceID) (*tracking.Absence, error) {
	return getAbsence(ctx, s.db, id)
}
func (s *Store) DeleteAbsence(ctx context.Context, id tracking.AbsenceID) error {
	return deleteAbsence(ctx, s.db, id)
}
func (s *Store) AbsenceOn(ctx context.Context, userID tracking.UserID, date time.Time, typ tracking.AbsenceType) (*tracking.Absence, error) {
	return absenceOn(ctx, s.db, userID, date, typ)
}
func (s *Store) AbsencesInRange(ctx context.Context, userID tracking.UserID, from, to time.Time) ([]tracking.Absence, error) {
	return absencesInRange(ctx, s.db, userID, from, to)
}

func (t *txStore) CreateAbsence(ctx context.Context, a tracking.Absence) error {
	return createAbsence(ctx, t.db, a)
}
func (t *txStore) GetAbsence(ctx context.Context, id tracking.AbsenceID) (*tracking.Absence, error) {
	return getAbsence(ctx, t.db, id)
}
func (t *txStore) DeleteAbsence(ctx context.Context, id tracking.AbsenceID) error {
	return deleteAbsence(ctx, t.db, id)
}
func (t *txStore) AbsenceOn(ctx context.Context, userID tracking.UserID, date time.Time, typ tracking.AbsenceType) (*tracking.Absence, error) {
	return absenceOn(ctx, t.db, userID, date, typ)
}
func (t *txStore) AbsencesInRange(ctx context.Context, userID tracking.UserID, from, to time.Time) ([]tracking.Absence, error) {
	return absencesInRange(ctx, t.db, userID, from, to)
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func appendAudit(ctx context.Context, db dbtx, e tracking.AuditEntry) error {
	payload, _ := json.Marshal(e.Payload)
	_, err := db.ExecContext(ctx, `
		INSERT INTO audit_log (id, at, actor_id, actor_role, action, user_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, fmtTime(e.At), e.ActorID, e.ActorRole, e.Action, e.UserID, string(payload))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func queryAudit(ctx context.Context, db dbtx, f tracking.AuditFilter) ([]tracking.AuditEntry, error) {
	query := `SELECT id, at, actor_id, actor_role, action, user_id, payload_json
		FROM audit_log WHERE 1=1`
	var args []any
	if f.UserID != nil {
		query += ` AND user_id = ?`
		args = append(args, *f.UserID)
	}
	if f.ActorID != nil {
		query += ` AND actor_id = ?`
		args = append(args, *f.ActorID)
	}
	if f.From != nil {
		query += ` AND at >= ?`
		args = append(args, fmtTime(*f.From))
	}
	if f.To != nil {
		query += ` AND at < ?`
		args = append(args, fmtTime(*f.To))
	}
	if len(f.Actions) > 0 {
		query += ` AND action IN (?` + repeatPlaceholder(len(f.Actions)-1) + `)`
		for _, a := range f.Actions {
			args = append(args, a)
		}
	}
	query += ` ORDER BY at ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var result []tracking.AuditEntry
	for rows.Next() {
		var (
			e       tracking.AuditEntry
			at      string
			payload sql.NullString
		)
		if err := rows.Scan(&e.ID, &at, &e.ActorID, &e.ActorRole, &e.Action, &e.UserID, &payload); err != nil {
			return nil, err
		}
		e.At = parseTime(at)
		if payload.Valid && payload.String != "" {
			json.Unmarshal([]byte(payload.String), &e.Payload)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) AppendAudit(ctx context.Context, e tracking.AuditEntry) error {
	return appendAudit(ctx, s.db, e)
}
func (s *Store) QueryAudit(ctx context.Context, f tracking.AuditFilter) ([]tracking.AuditEntry, error) {
	return queryAudit(ctx, s.db, f)
}

func (t *txStore) AppendAudit(ctx context.Context, e tracking.AuditEntry) error {
	return appendAudit(ctx, t.db, e)
}
func (t *txStore) QueryAudit(ctx context.Context, f tracking.AuditFilter) ([]tracking.AuditEntry, error) {
	return queryAudit(ctx, t.db, f)
}

// =============================================================================
// HELPERS
// =============================================================================

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func fmtDate(t time.Time) string { return t.Format("2006-01-02") }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func parseDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func decPtr(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDecPtr(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse decimal: %w", err)
	}
	return &d, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tracking.ErrNotFound
	}
	return nil
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ",?"
	}
	return out
}
