/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

CONVENTIONS:
  - Instants are RFC3339 strings, dates are "2006-01-02" strings.
  - Money and multipliers travel as decimal strings to avoid float drift.

VALIDATION:
  Structural validation (parseable times, decimals) happens in handlers;
  semantic validation lives in the domain packages.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/Bazdi/zeiterfassung1337-sub000/clock"
	"github.com/Bazdi/zeiterfassung1337-sub000/payroll"
	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

// =============================================================================
// INTERVAL TYPES
// =============================================================================

// IntervalDTO represents a work interval in API responses.
type IntervalDTO struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	Start             string  `json:"start"`
	End               *string `json:"end,omitempty"`
	DurationMinutes   *int    `json:"duration_minutes,omitempty"`
	PauseTotalMinutes int     `json:"pause_total_minutes"`
	PauseStartedAt    *string `json:"pause_started_at,omitempty"`
	State             string  `json:"state"`
	Category          string  `json:"category,omitempty"`
	Note              string  `json:"note,omitempty"`
	Project           string  `json:"project,omitempty"`
}

// CheckInRequest carries the optional tags of a new session.
type CheckInRequest struct {
	Category string `json:"category"`
	Note     string `json:"note"`
	Project  string `json:"project"`
}

// ManualIntervalRequest creates or replaces a hand-entered interval.
type ManualIntervalRequest struct {
	UserID            string  `json:"user_id"`
	Start             string  `json:"start"`
	End               *string `json:"end,omitempty"`
	PauseTotalMinutes int     `json:"pause_total_minutes"`
	Category          string  `json:"category"`
	Note              string  `json:"note"`
	Project           string  `json:"project"`
}

// StatusDTO is the live clock view.
type StatusDTO struct {
	CheckedIn    bool         `json:"checked_in"`
	State        string       `json:"state"`
	Open         *IntervalDTO `json:"open,omitempty"`
	PauseSeconds int64        `json:"pause_seconds"`
	Today        DayDTO       `json:"today"`
}

// DayDTO sums the current day's sessions.
type DayDTO struct {
	Entries      int `json:"entries"`
	NetMinutes   int `json:"net_minutes"`
	PauseMinutes int `json:"pause_minutes"`
}

// =============================================================================
// RATE TYPES
// =============================================================================

// RateDTO represents a rate definition in API responses.
type RateDTO struct {
	ID          string         `json:"id"`
	Code        string         `json:"code"`
	Label       string         `json:"label"`
	Multiplier  *string        `json:"multiplier,omitempty"`
	HourlyRate  *string        `json:"hourly_rate,omitempty"`
	AppliesTo   string         `json:"applies_to"`
	Window      *TimeWindowDTO `json:"window,omitempty"`
	IsBaseRate  bool           `json:"is_base_rate"`
	FixedAmount *string        `json:"fixed_amount,omitempty"`
	FixedHours  *string        `json:"fixed_hours,omitempty"`
	Priority    int            `json:"priority"`
}

// TimeWindowDTO is the weekday/hour predicate of a surcharge rate.
type TimeWindowDTO struct {
	Days      []int `json:"days"` // 0=Sunday .. 6=Saturday
	StartHour int   `json:"start_hour"`
	EndHour   int   `json:"end_hour"`
}

// RateRequest creates or replaces a rate definition.
type RateRequest struct {
	Code        string         `json:"code"`
	Label       string         `json:"label"`
	Multiplier  *string        `json:"multiplier,omitempty"`
	HourlyRate  *string        `json:"hourly_rate,omitempty"`
	AppliesTo   string         `json:"applies_to"`
	Window      *TimeWindowDTO `json:"window,omitempty"`
	IsBaseRate  bool           `json:"is_base_rate"`
	FixedAmount *string        `json:"fixed_amount,omitempty"`
	FixedHours  *string        `json:"fixed_hours,omitempty"`
	Priority    int            `json:"priority"`
}

// =============================================================================
// HOLIDAY / ABSENCE TYPES
// =============================================================================

// HolidayDTO represents a stored holiday.
type HolidayDTO struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Region string `json:"region"`
	Name   string `json:"name"`
}

// CreateHolidayRequest stores one holiday row.
type CreateHolidayRequest struct {
	Date   string `json:"date"`
	Region string `json:"region"`
	Name   string `json:"name"`
}

// AbsenceDTO represents a flat-rate absence record.
type AbsenceDTO struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Type   string `json:"type"`
	Hours  string `json:"hours"`
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
}

// CreateAbsenceRequest records one absence day.
type CreateAbsenceRequest struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Type   string `json:"type"`
	Hours  string `json:"hours"`
	Note   string `json:"note"`
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// BucketDTO is one pay category of a monthly summary.
type BucketDTO struct {
	Hours    string `json:"hours"`
	Earnings string `json:"earnings"`
	Entries  int    `json:"entries"`
}

// MonthlySummaryDTO is the monthly wage estimate.
type MonthlySummaryDTO struct {
	UserID        string               `json:"user_id"`
	Year          int                  `json:"year"`
	Month         int                  `json:"month"`
	RegularWork   BucketDTO            `json:"regular_work"`
	SurchargeWork BucketDTO            `json:"surcharge_work"`
	Surcharges    map[string]BucketDTO `json:"surcharges"`
	Absences      BucketDTO            `json:"absences"`
	MonthlyBonus  BucketDTO            `json:"monthly_bonus"`
	TotalHours    string               `json:"total_hours"`
	GrossEarnings string               `json:"gross_earnings"`
	NetEarnings   string               `json:"net_earnings"`
	TaxRate       string               `json:"tax_rate"`
}

// PeriodReportDTO aggregates one day or ISO week.
type PeriodReportDTO struct {
	Key             string         `json:"key"`
	Entries         int            `json:"entries"`
	NetMinutes      int            `json:"net_minutes"`
	PauseMinutes    int            `json:"pause_minutes"`
	FirstCheckIn    *string        `json:"first_check_in,omitempty"`
	LastCheckOut    *string        `json:"last_check_out,omitempty"`
	CategoryMinutes map[string]int `json:"category_minutes"`
}

// AuditEntryDTO is one audit log row.
type AuditEntryDTO struct {
	ID        string         `json:"id"`
	At        string         `json:"at"`
	ActorID   string         `json:"actor_id"`
	ActorRole string         `json:"actor_role"`
	Action    string         `json:"action"`
	UserID    string         `json:"user_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toIntervalDTO(iv *tracking.WorkInterval) *IntervalDTO {
	if iv == nil {
		return nil
	}
	dto := &IntervalDTO{
		ID:                string(iv.ID),
		UserID:            string(iv.UserID),
		Start:             iv.Start.Format(time.RFC3339),
		DurationMinutes:   iv.DurationMinutes,
		PauseTotalMinutes: iv.PauseTotalMinutes,
		State:             string(iv.State()),
		Category:          iv.Category,
		Note:              iv.Note,
		Project:           iv.Project,
	}
	if iv.End != nil {
		dto.End = strPtr(iv.End.Format(time.RFC3339))
	}
	if iv.PauseStartedAt != nil {
		dto.PauseStartedAt = strPtr(iv.PauseStartedAt.Format(time.RFC3339))
	}
	return dto
}

func toRateDTO(r *tracking.Rate) RateDTO {
	dto := RateDTO{
		ID:         string(r.ID),
		Code:       r.Code,
		Label:      r.Label,
		AppliesTo:  string(r.AppliesTo),
		IsBaseRate: r.IsBaseRate,
		Priority:   r.Priority,
	}
	if r.Multiplier != nil {
		dto.Multiplier = strPtr(r.Multiplier.String())
	}
	if r.HourlyRate != nil {
		dto.HourlyRate = strPtr(r.HourlyRate.String())
	}
	if r.FixedAmount != nil {
		dto.FixedAmount = strPtr(r.FixedAmount.String())
	}
	if r.FixedHours != nil {
		dto.FixedHours = strPtr(r.FixedHours.String())
	}
	if r.Window != nil {
		w := TimeWindowDTO{StartHour: r.Window.StartHour, EndHour: r.Window.EndHour}
		for _, d := range r.Window.Days {
			w.Days = append(w.Days, int(d))
		}
		dto.Window = &w
	}
	return dto
}

func toHolidayDTO(h *tracking.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:     string(h.ID),
		Date:   h.Date.Format("2006-01-02"),
		Region: h.Region,
		Name:   h.Name,
	}
}

func toAbsenceDTO(a *tracking.Absence) AbsenceDTO {
	return AbsenceDTO{
		ID:     string(a.ID),
		UserID: string(a.UserID),
		Date:   a.Date.Format("2006-01-02"),
		Type:   string(a.Type),
		Hours:  a.Hours.String(),
		Amount: a.Amount.String(),
		Note:   a.Note,
	}
}

func toBucketDTO(b payroll.Bucket) BucketDTO {
	return BucketDTO{Hours: b.Hours.String(), Earnings: b.Earnings.String(), Entries: b.Entries}
}

func toSummaryDTO(s *payroll.MonthlySummary) MonthlySummaryDTO {
	dto := MonthlySummaryDTO{
		UserID:        string(s.UserID),
		Year:          s.Year,
		Month:         int(s.Month),
		RegularWork:   toBucketDTO(s.RegularWork),
		SurchargeWork: toBucketDTO(s.SurchargeWork),
		Surcharges:    make(map[string]BucketDTO, len(s.Surcharges)),
		Absences:      toBucketDTO(s.Absences),
		MonthlyBonus:  toBucketDTO(s.MonthlyBonus),
		TotalHours:    s.TotalHours.String(),
		GrossEarnings: s.GrossEarnings.String(),
		NetEarnings:   s.NetEarnings.String(),
		TaxRate:       s.TaxRate.String(),
	}
	for code, b := range s.Surcharges {
		dto.Surcharges[code] = toBucketDTO(b)
	}
	return dto
}

func toPeriodReportDTO(r *payroll.PeriodReport) PeriodReportDTO {
	dto := PeriodReportDTO{
		Key:             r.Key,
		Entries:         r.Entries,
		NetMinutes:      r.NetMinutes,
		PauseMinutes:    r.PauseMinutes,
		CategoryMinutes: r.CategoryMinutes,
	}
	if r.FirstCheckIn != nil {
		dto.FirstCheckIn = strPtr(r.FirstCheckIn.Format(time.RFC3339))
	}
	if r.LastCheckOut != nil {
		dto.LastCheckOut = strPtr(r.LastCheckOut.Format(time.RFC3339))
	}
	return dto
}

func toStatusDTO(st *clock.Status) StatusDTO {
	return StatusDTO{
		CheckedIn:    st.CheckedIn,
		State:        string(st.State),
		Open:         toIntervalDTO(st.Open),
		PauseSeconds: st.PauseSeconds,
		Today: DayDTO{
			Entries:      st.Today.Entries,
			NetMinutes:   st.Today.NetMinutes,
			PauseMinutes: st.Today.PauseMinutes,
		},
	}
}

func toAuditDTO(e *tracking.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:        e.ID,
		At:        e.At.Format(time.RFC3339),
		ActorID:   string(e.ActorID),
		ActorRole: string(e.ActorRole),
		Action:    string(e.Action),
		UserID:    string(e.UserID),
		Payload:   e.Payload,
	}
}

func strPtr(s string) *string { return &s }
