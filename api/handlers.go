/*
handlers.go - HTTP API handlers for the time-tracking engine

PURPOSE:
  Exposes the clock state machine, manual intervals, rate catalog, holiday
  calendar, absences and wage reports via REST. Handles HTTP request and
  response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Clock:
    POST   /api/clock/check-in         Open a session
    POST   /api/clock/check-out        Close the open session
    POST   /api/clock/pause/start      Begin a pause
    POST   /api/clock/pause/stop       End the running pause
    GET    /api/clock/status           Live state + today's aggregate

  Intervals:
    GET    /api/intervals              List intervals in a range
    POST   /api/intervals              Manual interval creation
    PUT    /api/intervals/{id}         Manual interval edit
    DELETE /api/intervals/{id}         Delete an interval

  Rates (admin):
    GET    /api/rates                  List rate definitions
    POST   /api/rates                  Create a rate
    PUT    /api/rates/{id}             Replace a rate
    DELETE /api/rates/{id}             Delete a rate

  Holidays:
    GET    /api/holidays               List a month's holidays
    POST   /api/holidays               Create one (admin)
    DELETE /api/holidays/{id}          Delete one (admin)

  Absences:
    GET    /api/absences               List a user's month
    POST   /api/absences               Record an absence
    DELETE /api/absences/{id}          Delete an absence

  Reports:
    GET    /api/reports/monthly        Monthly wage summary
    GET    /api/reports/daily          Per-day aggregates
    GET    /api/reports/weekly         Per-ISO-week aggregates

  Audit (admin):
    GET    /api/audit                  Query the audit trail

IDENTITY:
  The caller is identified by the X-User-ID and X-User-Role headers,
  supplied by the authenticating proxy in front of this service. The
  engine trusts them; it only enforces the admin-override rule.

ERROR HANDLING:
  The error taxonomy maps onto HTTP status codes:
  - 400: Validation errors, invalid input
  - 403: Actor may not act on the target user
  - 404: Referenced record missing, no open session
  - 409: Conflict (open session, overlap, duplicates)
  - 500: Missing rate configuration, internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Bazdi/zeiterfassung1337-sub000/clock"
	"github.com/Bazdi/zeiterfassung1337-sub000/payroll"
	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine     *clock.Engine
	Catalog    *payroll.Catalog
	Calendar   *payroll.Calendar
	Absences   *payroll.Absences
	Calculator *payroll.Calculator
	Store      tracking.TxStore
	Region     string
}

// NewHandler wires the handler with its domain services.
func NewHandler(engine *clock.Engine, catalog *payroll.Catalog, calendar *payroll.Calendar, absences *payroll.Absences, calculator *payroll.Calculator, store tracking.TxStore, region string) *Handler {
	return &Handler{
		Engine:     engine,
		Catalog:    catalog,
		Calendar:   calendar,
		Absences:   absences,
		Calculator: calculator,
		Store:      store,
		Region:     region,
	}
}

// actor extracts the authenticated caller from the request headers.
func actorFrom(r *http.Request) tracking.Actor {
	role := tracking.Role(r.Header.Get("X-User-Role"))
	if role != tracking.RoleAdmin {
		role = tracking.RoleUser
	}
	return tracking.Actor{
		UserID: tracking.UserID(r.Header.Get("X-User-ID")),
		Role:   role,
	}
}

// targetUser resolves which user's data the request addresses: the user_id
// query parameter when present (admin override), the actor itself otherwise.
func targetUser(r *http.Request, actor tracking.Actor) tracking.UserID {
	if uid := r.URL.Query().Get("user_id"); uid != "" {
		return tracking.UserID(uid)
	}
	return actor.UserID
}

// =============================================================================
// CLOCK HANDLERS
// =============================================================================

// CheckIn opens a session for the target user.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	var req CheckInRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	iv, err := h.Engine.CheckIn(r.Context(), actor, targetUser(r, actor), clock.CheckInInput{
		Category: req.Category,
		Note:     req.Note,
		Project:  req.Project,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIntervalDTO(iv))
}

// CheckOut closes the target user's open session.
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	iv, err := h.Engine.CheckOut(r.Context(), actor, targetUser(r, actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toIntervalDTO(iv))
}

// PauseStart begins a pause on the open session.
func (h *Handler) PauseStart(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	iv, err := h.Engine.PauseStart(r.Context(), actor, targetUser(r, actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toIntervalDTO(iv))
}

// PauseStop ends the running pause.
func (h *Handler) PauseStop(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	iv, err := h.Engine.PauseStop(r.Context(), actor, targetUser(r, actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toIntervalDTO(iv))
}

// Status reports the live clock state and the day's aggregate.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	st, err := h.Engine.Status(r.Context(), actor, targetUser(r, actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusDTO(st))
}

// =============================================================================
// INTERVAL HANDLERS
// =============================================================================

// ListIntervals returns the target user's intervals in [from, to).
func (h *Handler) ListIntervals(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	userID := targetUser(r, actor)
	if err := tracking.Authorize(actor, userID); err != nil {
		writeDomainError(w, err)
		return
	}

	from, err := parseTimeParam(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid 'from' parameter", err)
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid 'to' parameter", err)
		return
	}

	intervals, err := h.Store.IntervalsInRange(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list intervals", err)
		return
	}

	dtos := make([]IntervalDTO, len(intervals))
	for i := range intervals {
		dtos[i] = *toIntervalDTO(&intervals[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateInterval creates a manual interval.
func (h *Handler) CreateInterval(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	in, err := decodeManualInput(r, actor)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	iv, err := h.Engine.CreateManual(r.Context(), actor, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIntervalDTO(iv))
}

// UpdateInterval edits a manual interval.
func (h *Handler) UpdateInterval(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	id := tracking.IntervalID(chi.URLParam(r, "id"))
	in, err := decodeManualInput(r, actor)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	iv, err := h.Engine.UpdateManual(r.Context(), actor, id, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toIntervalDTO(iv))
}

// DeleteInterval removes an interval.
func (h *Handler) DeleteInterval(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	id := tracking.IntervalID(chi.URLParam(r, "id"))
	if err := h.Engine.DeleteInterval(r.Context(), actor, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeManualInput(r *http.Request, actor tracking.Actor) (clock.ManualInput, error) {
	var req ManualIntervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return clock.ManualInput{}, err
	}

	userID := tracking.UserID(req.UserID)
	if userID == "" {
		userID = actor.UserID
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return clock.ManualInput{}, err
	}

	in := clock.ManualInput{
		UserID:            userID,
		Start:             start,
		PauseTotalMinutes: req.PauseTotalMinutes,
		Category:          req.Category,
		Note:              req.Note,
		Project:           req.Project,
	}
	if req.End != nil {
		end, err := time.Parse(time.RFC3339, *req.End)
		if err != nil {
			return clock.ManualInput{}, err
		}
		in.End = &end
	}
	return in, nil
}

// =============================================================================
// RATE HANDLERS
// =============================================================================

// ListRates returns all rate definitions ordered by priority.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.Catalog.ListRates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rates", err)
		return
	}
	dtos := make([]RateDTO, len(rates))
	for i := range rates {
		dtos[i] = toRateDTO(&rates[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRate creates a rate definition.
func (h *Handler) CreateRate(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	rate, err := decodeRate(r, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := h.Catalog.CreateRate(r.Context(), actor, rate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRateDTO(created))
}

// UpdateRate replaces a rate definition.
func (h *Handler) UpdateRate(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	id := tracking.RateID(chi.URLParam(r, "id"))
	rate, err := decodeRate(r, id)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := h.Catalog.UpdateRate(r.Context(), actor, rate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRateDTO(updated))
}

// DeleteRate removes a rate definition.
func (h *Handler) DeleteRate(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	id := tracking.RateID(chi.URLParam(r, "id"))
	if err := h.Catalog.DeleteRate(r.Context(), actor, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeRate(r *http.Request, id tracking.RateID) (tracking.Rate, error) {
	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return tracking.Rate{}, err
	}

	rate := tracking.Rate{
		ID:         id,
		Code:       req.Code,
		Label:      req.Label,
		AppliesTo:  tracking.RateClass(req.AppliesTo),
		IsBaseRate: req.IsBaseRate,
		Priority:   req.Priority,
	}

	var err error
	if rate.Multiplier, err = parseDecField(req.Multiplier); err != nil {
		return tracking.Rate{}, err
	}
	if rate.HourlyRate, err = parseDecField(req.HourlyRate); err != nil {
		return tracking.Rate{}, err
	}
	if rate.FixedAmount, err = parseDecField(req.FixedAmount); err != nil {
		return tracking.Rate{}, err
	}
	if rate.FixedHours, err = parseDecField(req.FixedHours); err != nil {
		return tracking.Rate{}, err
	}
	if req.Window != nil {
		w := tracking.TimeWindow{StartHour: req.Window.StartHour, EndHour: req.Window.EndHour}
		for _, d := range req.Window.Days {
			w.Days = append(w.Days, time.Weekday(d))
		}
		rate.Window = &w
	}
	return rate, nil
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns a month's holidays for the configured region.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year/month", err)
		return
	}
	region := r.URL.Query().Get("region")
	if region == "" {
		region = h.Region
	}

	holidays, err := h.Calendar.ListForMonth(r.Context(), year, month, region)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}
	dtos := make([]HolidayDTO, len(holidays))
	for i := range holidays {
		dtos[i] = toHolidayDTO(&holidays[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday stores one holiday row.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
		return
	}
	region := req.Region
	if region == "" {
		region = h.Region
	}

	created, err := h.Calendar.Create(r.Context(), actor, date, region, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(created))
}

// DeleteHoliday removes a holiday row.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	id := tracking.HolidayID(chi.URLParam(r, "id"))
	if err := h.Calendar.Delete(r.Context(), actor, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ABSENCE HANDLERS
// =============================================================================

// ListAbsences returns the target user's absences of a month.
func (h *Handler) ListAbsences(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	year, month, err := parseMonthParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year/month", err)
		return
	}

	absences, err := h.Absences.ListForMonth(r.Context(), actor, targetUser(r, actor), year, month)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]AbsenceDTO, len(absences))
	for i := range absences {
		dtos[i] = toAbsenceDTO(&absences[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAbsence records an absence day with a frozen amount.
func (h *Handler) CreateAbsence(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	var req CreateAbsenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
		return
	}
	hours, err := decimal.NewFromString(req.Hours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hours", err)
		return
	}
	userID := tracking.UserID(req.UserID)
	if userID == "" {
		userID = actor.UserID
	}

	created, err := h.Absences.Create(r.Context(), actor, userID, date, tracking.AbsenceType(req.Type), hours, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAbsenceDTO(created))
}

// DeleteAbsence removes an absence record.
func (h *Handler) DeleteAbsence(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	id := tracking.AbsenceID(chi.URLParam(r, "id"))
	if err := h.Absences.Delete(r.Context(), actor, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// MonthlySummary returns the monthly wage estimate.
func (h *Handler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	year, month, err := parseMonthParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year/month", err)
		return
	}

	summary, err := h.Calculator.ComputeMonthlySummary(r.Context(), actor, targetUser(r, actor), year, month)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// DailyReport returns per-day aggregates in [from, to).
func (h *Handler) DailyReport(w http.ResponseWriter, r *http.Request) {
	h.periodReport(w, r, h.Calculator.DailyReport)
}

// WeeklyReport returns per-ISO-week aggregates in [from, to).
func (h *Handler) WeeklyReport(w http.ResponseWriter, r *http.Request) {
	h.periodReport(w, r, h.Calculator.WeeklyReport)
}

func (h *Handler) periodReport(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor tracking.Actor, userID tracking.UserID, from, to time.Time) ([]payroll.PeriodReport, error)) {
	actor := actorFrom(r)
	from, err := parseTimeParam(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid 'from' parameter", err)
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid 'to' parameter", err)
		return
	}

	reports, err := fn(r.Context(), actor, targetUser(r, actor), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]PeriodReportDTO, len(reports))
	for i := range reports {
		dtos[i] = toPeriodReportDTO(&reports[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// QueryAudit returns the audit trail. Admin only.
func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if actor.Role != tracking.RoleAdmin {
		writeDomainError(w, &tracking.ForbiddenError{Actor: actor.UserID})
		return
	}

	var filter tracking.AuditFilter
	if uid := r.URL.Query().Get("user_id"); uid != "" {
		u := tracking.UserID(uid)
		filter.UserID = &u
	}
	if aid := r.URL.Query().Get("actor_id"); aid != "" {
		a := tracking.UserID(aid)
		filter.ActorID = &a
	}
	if f := r.URL.Query().Get("from"); f != "" {
		t, err := time.Parse(time.RFC3339, f)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid 'from' parameter", err)
			return
		}
		filter.From = &t
	}
	if tStr := r.URL.Query().Get("to"); tStr != "" {
		t, err := time.Parse(time.RFC3339, tStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid 'to' parameter", err)
			return
		}
		filter.To = &t
	}

	entries, err := h.Store.QueryAudit(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query audit log", err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i := range entries {
		dtos[i] = toAuditDTO(&entries[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, &tracking.FieldError{Field: name, Reason: "required"}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func parseMonthParams(r *http.Request) (int, time.Month, error) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		return 0, 0, &tracking.FieldError{Field: "year", Reason: "required integer"}
	}
	m, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || m < 1 || m > 12 {
		return 0, 0, &tracking.FieldError{Field: "month", Reason: "must be in [1,12]"}
	}
	return year, time.Month(m), nil
}

func parseDecField(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// writeDomainError maps the error taxonomy to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case tracking.IsValidation(err):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case tracking.IsAuthorization(err):
		writeError(w, http.StatusForbidden, "Forbidden", err)
	case tracking.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case tracking.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	case tracking.IsConfiguration(err):
		writeError(w, http.StatusInternalServerError, "Configuration missing", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
