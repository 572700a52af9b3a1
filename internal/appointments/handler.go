package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sazaba/wppai-server-sub000/internal/schedule"
	"github.com/sazaba/wppai-server-sub000/internal/tenantcfg"
	"github.com/sazaba/wppai-server-sub000/pkg/logging"
)

// PolicyLoader resolves the tenant policy for timezone and buffer lookups.
type PolicyLoader interface {
	Policy(ctx context.Context, tenantID string) (*tenantcfg.BookingPolicy, error)
}

// Handler provides admin HTTP endpoints over booked appointments.
type Handler struct {
	svc      *Service
	policies PolicyLoader
	logger   *logging.Logger
}

// NewHandler creates the appointments admin handler.
func NewHandler(svc *Service, policies PolicyLoader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, policies: policies, logger: logger}
}

// Routes returns a chi router with appointment admin routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{tenantID}/appointments", h.ListDay)
	r.Post("/{tenantID}/appointments/{apptID}/cancel", h.Cancel)
	r.Post("/{tenantID}/appointments/{apptID}/reschedule", h.Reschedule)
	r.Post("/{tenantID}/appointments/cancel", h.CancelMany)
	return r
}

type appointmentDTO struct {
	ID            string     `json:"id"`
	ServiceName   string     `json:"service_name"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	StartAt       time.Time  `json:"start_at"`
	EndAt         time.Time  `json:"end_at"`
	Status        string     `json:"status"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

func toAppointmentDTO(a Appointment) appointmentDTO {
	return appointmentDTO{
		ID:            a.ID,
		ServiceName:   a.ServiceName,
		CustomerName:  a.CustomerName,
		CustomerPhone: a.CustomerPhone,
		StartAt:       a.StartAt,
		EndAt:         a.EndAt,
		Status:        string(a.Status),
		DeletedAt:     a.DeletedAt,
	}
}

// ListDay returns the tenant's active appointments on one civil date.
// GET /admin/appointments/{tenantID}/appointments?date=2025-06-16
func (h *Handler) ListDay(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	date, err := schedule.ParseCivilDate(r.URL.Query().Get("date"))
	if err != nil {
		writeHandlerError(w, http.StatusBadRequest, err)
		return
	}

	pol, err := h.policies.Policy(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to load policy", "tenant_id", tenantID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	conv, err := schedule.LoadZone(pol.Timezone)
	if err != nil {
		writeHandlerError(w, http.StatusBadRequest, err)
		return
	}

	appts, err := h.svc.ListDay(r.Context(), tenantID, conv, date)
	if err != nil {
		h.logger.Error("failed to list appointments", "tenant_id", tenantID, "date", date, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	out := make([]appointmentDTO, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentDTO(a))
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		h.logger.Error("failed to encode appointments", "tenant_id", tenantID, "error", err)
	}
}

// Cancel soft-deletes one appointment.
// POST /admin/appointments/{tenantID}/appointments/{apptID}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	apptID := chi.URLParam(r, "apptID")

	appt, err := h.svc.Cancel(r.Context(), tenantID, apptID)
	if errors.Is(err, schedule.ErrNotFound) {
		http.Error(w, `{"error": "appointment not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to cancel appointment", "tenant_id", tenantID, "appointment_id", apptID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toAppointmentDTO(*appt))
}

// Reschedule moves an appointment to a new start instant.
// POST /admin/appointments/{tenantID}/appointments/{apptID}/reschedule
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	apptID := chi.URLParam(r, "apptID")

	var req struct {
		Start time.Time `json:"start"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	pol, err := h.policies.Policy(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to load policy", "tenant_id", tenantID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	appt, err := h.svc.Reschedule(r.Context(), tenantID, apptID, req.Start, pol.BufferMin)
	switch {
	case errors.Is(err, schedule.ErrNotFound):
		http.Error(w, `{"error": "appointment not found"}`, http.StatusNotFound)
		return
	case errors.Is(err, schedule.ErrConflict):
		http.Error(w, `{"error": "slot already taken"}`, http.StatusConflict)
		return
	case schedule.IsValidation(err):
		writeHandlerError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		h.logger.Error("failed to reschedule appointment", "tenant_id", tenantID, "appointment_id", apptID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toAppointmentDTO(*appt))
}

// CancelMany cancels a batch of appointment ids in one statement.
// POST /admin/appointments/{tenantID}/appointments/cancel
func (h *Handler) CancelMany(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		http.Error(w, `{"error": "ids required"}`, http.StatusBadRequest)
		return
	}

	n, err := h.svc.CancelMany(r.Context(), tenantID, req.IDs)
	if err != nil {
		h.logger.Error("failed to cancel appointments", "tenant_id", tenantID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"cancelled": n})
}

func writeHandlerError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
