package tenantcfg

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sazaba/wppai-server-sub000/internal/schedule"
	"github.com/sazaba/wppai-server-sub000/pkg/logging"
)

// Handler provides HTTP endpoints for tenant scheduling configuration.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a new tenant config HTTP handler.
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes returns a chi router with scheduling admin routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{tenantID}/hours", h.GetHours)
	r.Put("/{tenantID}/hours/{weekday}", h.SetHours)
	r.Put("/{tenantID}/exceptions/{date}", h.SetException)
	r.Delete("/{tenantID}/exceptions/{date}", h.DeleteException)
	r.Get("/{tenantID}/policy", h.GetPolicy)
	r.Put("/{tenantID}/policy", h.SetPolicy)
	return r
}

type windowDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toDTO(windows []schedule.Window) []windowDTO {
	out := make([]windowDTO, 0, len(windows))
	for _, w := range windows {
		out = append(out, windowDTO{
			Start: schedule.FormatClock(w.StartMin),
			End:   schedule.FormatClock(w.EndMin),
		})
	}
	return out
}

func fromDTO(dtos []windowDTO) ([]schedule.Window, error) {
	var out []schedule.Window
	for _, d := range dtos {
		w, err := schedule.ParseWindow(d.Start, d.End)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// GetHours returns the weekly schedule keyed by weekday number (0 = Sunday).
// GET /admin/schedule/{tenantID}/hours
func (h *Handler) GetHours(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	weekly, err := h.repo.WeeklyHours(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to load weekly hours", "tenant_id", tenantID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	resp := make(map[string][]windowDTO, len(weekly))
	for weekday, windows := range weekly {
		resp[strconv.Itoa(int(weekday))] = toDTO(windows)
	}
	writeJSON(w, h.logger, resp)
}

// SetHours replaces one weekday's windows. An empty windows list closes the
// weekday.
// PUT /admin/schedule/{tenantID}/hours/{weekday}
func (h *Handler) SetHours(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	weekday, err := strconv.Atoi(chi.URLParam(r, "weekday"))
	if err != nil || weekday < 0 || weekday > 6 {
		http.Error(w, `{"error": "weekday must be 0..6"}`, http.StatusBadRequest)
		return
	}

	var req struct {
		Windows []windowDTO `json:"windows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	windows, err := fromDTO(req.Windows)
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	if err := h.repo.SetWeeklyHours(r.Context(), tenantID, time.Weekday(weekday), windows); err != nil {
		if schedule.IsValidation(err) {
			writeScheduleError(w, err)
			return
		}
		h.logger.Error("failed to set weekly hours", "tenant_id", tenantID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.logger.Info("weekly hours updated", "tenant_id", tenantID, "weekday", weekday, "windows", len(windows))
	w.WriteHeader(http.StatusNoContent)
}

// SetException overrides hours on one date.
// PUT /admin/schedule/{tenantID}/exceptions/{date}
func (h *Handler) SetException(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	date, err := schedule.ParseCivilDate(chi.URLParam(r, "date"))
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	var req struct {
		Closed  bool        `json:"closed"`
		Windows []windowDTO `json:"windows"`
		Reason  string      `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	windows, err := fromDTO(req.Windows)
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	exc := &HoursException{
		TenantID: tenantID,
		Date:     date,
		Closed:   req.Closed,
		Windows:  windows,
		Reason:   req.Reason,
	}
	if err := h.repo.UpsertException(r.Context(), exc); err != nil {
		if schedule.IsValidation(err) {
			writeScheduleError(w, err)
			return
		}
		h.logger.Error("failed to upsert exception", "tenant_id", tenantID, "date", date, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.logger.Info("hours exception set", "tenant_id", tenantID, "date", date.String(), "closed", req.Closed)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteException removes a date override.
// DELETE /admin/schedule/{tenantID}/exceptions/{date}
func (h *Handler) DeleteException(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	date, err := schedule.ParseCivilDate(chi.URLParam(r, "date"))
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	err = h.repo.DeleteException(r.Context(), tenantID, date)
	if errors.Is(err, schedule.ErrNotFound) {
		http.Error(w, `{"error": "exception not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to delete exception", "tenant_id", tenantID, "date", date, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type policyDTO struct {
	Timezone             string   `json:"timezone"`
	BufferMin            int      `json:"buffer_min"`
	MinNoticeHours       int      `json:"min_notice_hours"`
	BookingWindowDays    int      `json:"booking_window_days"`
	AllowSameDay         bool     `json:"allow_same_day"`
	MaxDailyAppointments int      `json:"max_daily_appointments"`
	BlackoutDates        []string `json:"blackout_dates"`
	RequireConfirmation  bool     `json:"require_confirmation"`
}

// GetPolicy returns the effective booking policy, server defaults applied.
// GET /admin/schedule/{tenantID}/policy
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	pol, err := h.repo.Policy(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to load policy", "tenant_id", tenantID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	dto := policyDTO{
		Timezone:             pol.Timezone,
		BufferMin:            pol.BufferMin,
		MinNoticeHours:       pol.MinNoticeHours,
		BookingWindowDays:    pol.BookingWindowDays,
		AllowSameDay:         pol.AllowSameDay,
		MaxDailyAppointments: pol.MaxDailyAppointments,
		RequireConfirmation:  pol.RequireConfirmation,
	}
	for _, d := range pol.BlackoutDates {
		dto.BlackoutDates = append(dto.BlackoutDates, d.String())
	}
	writeJSON(w, h.logger, dto)
}

// SetPolicy stores the tenant's booking policy. Omitted numeric knobs stay
// unset and keep following server defaults; an explicit zero is stored as
// zero.
// PUT /admin/schedule/{tenantID}/policy
func (h *Handler) SetPolicy(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req struct {
		Timezone             string   `json:"timezone"`
		BufferMin            *int     `json:"buffer_min"`
		MinNoticeHours       *int     `json:"min_notice_hours"`
		BookingWindowDays    *int     `json:"booking_window_days"`
		AllowSameDay         bool     `json:"allow_same_day"`
		MaxDailyAppointments int      `json:"max_daily_appointments"`
		BlackoutDates        []string `json:"blackout_dates"`
		RequireConfirmation  bool     `json:"require_confirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.Timezone != "" {
		if _, err := schedule.LoadZone(req.Timezone); err != nil {
			writeScheduleError(w, err)
			return
		}
	}

	upd := &PolicyUpdate{
		TenantID:             tenantID,
		Timezone:             req.Timezone,
		BufferMin:            req.BufferMin,
		MinNoticeHours:       req.MinNoticeHours,
		BookingWindowDays:    req.BookingWindowDays,
		AllowSameDay:         req.AllowSameDay,
		MaxDailyAppointments: req.MaxDailyAppointments,
		RequireConfirmation:  req.RequireConfirmation,
	}
	for _, raw := range req.BlackoutDates {
		d, err := schedule.ParseCivilDate(raw)
		if err != nil {
			writeScheduleError(w, err)
			return
		}
		upd.BlackoutDates = append(upd.BlackoutDates, d)
	}

	if err := h.repo.UpsertPolicy(r.Context(), upd); err != nil {
		h.logger.Error("failed to save policy", "tenant_id", tenantID, "error", err)
		http.Error(w, `{"error": "failed to save policy"}`, http.StatusInternalServerError)
		return
	}
	h.logger.Info("booking policy updated", "tenant_id", tenantID, "timezone", upd.Timezone)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, logger *logging.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeScheduleError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
