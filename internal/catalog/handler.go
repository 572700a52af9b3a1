package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sazaba/wppai-server-sub000/internal/schedule"
	"github.com/sazaba/wppai-server-sub000/pkg/logging"
)

// Handler provides HTTP endpoints for managing a tenant's service catalog.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a new catalog HTTP handler.
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes returns a chi router with catalog admin routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{tenantID}/services", h.List)
	r.Post("/{tenantID}/services", h.Create)
	r.Put("/{tenantID}/services/{serviceID}", h.Update)
	r.Delete("/{tenantID}/services/{serviceID}", h.Delete)
	return r
}

type serviceDTO struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	DurationMin int      `json:"duration_min"`
	PriceMin    *int     `json:"price_min,omitempty"`
	PriceMax    *int     `json:"price_max,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Enabled     bool     `json:"enabled"`
}

func (d *serviceDTO) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return schedule.NewValidationError("name", "empty")
	}
	if d.DurationMin < 0 {
		return schedule.NewValidationError("duration_min", "negative")
	}
	if d.PriceMin != nil && d.PriceMax != nil && *d.PriceMax < *d.PriceMin {
		return schedule.NewValidationError("price_max", "below price_min")
	}
	return nil
}

// List returns all services for a tenant, disabled included.
// GET /admin/catalog/{tenantID}/services
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	services, err := h.repo.List(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to list services", "tenant_id", tenantID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	out := make([]serviceDTO, 0, len(services))
	for _, s := range services {
		out = append(out, serviceDTO{
			ID:          s.ID,
			Name:        s.Name,
			DurationMin: s.DurationMin,
			PriceMin:    s.PriceMin,
			PriceMax:    s.PriceMax,
			Aliases:     s.Aliases,
			Enabled:     s.Enabled,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		h.logger.Error("failed to encode services", "tenant_id", tenantID, "error", err)
	}
}

// Create adds a service to the tenant catalog.
// POST /admin/catalog/{tenantID}/services
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req serviceDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	svc := &Service{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Name:        strings.TrimSpace(req.Name),
		DurationMin: req.DurationMin,
		PriceMin:    req.PriceMin,
		PriceMax:    req.PriceMax,
		Aliases:     req.Aliases,
		Enabled:     req.Enabled,
	}
	if err := h.repo.Create(r.Context(), svc); err != nil {
		if schedule.IsValidation(err) {
			writeError(w, http.StatusConflict, err)
			return
		}
		h.logger.Error("failed to create service", "tenant_id", tenantID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("service created", "tenant_id", tenantID, "service_id", svc.ID, "name", svc.Name)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"id": svc.ID})
}

// Update rewrites a service.
// PUT /admin/catalog/{tenantID}/services/{serviceID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	serviceID := chi.URLParam(r, "serviceID")

	var req serviceDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	svc := &Service{
		ID:          serviceID,
		TenantID:    tenantID,
		Name:        strings.TrimSpace(req.Name),
		DurationMin: req.DurationMin,
		PriceMin:    req.PriceMin,
		PriceMax:    req.PriceMax,
		Aliases:     req.Aliases,
		Enabled:     req.Enabled,
	}
	err := h.repo.Update(r.Context(), svc)
	if errors.Is(err, schedule.ErrNotFound) {
		http.Error(w, `{"error": "service not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to update service", "tenant_id", tenantID, "service_id", serviceID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a service.
// DELETE /admin/catalog/{tenantID}/services/{serviceID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	serviceID := chi.URLParam(r, "serviceID")

	err := h.repo.Delete(r.Context(), tenantID, serviceID)
	if errors.Is(err, schedule.ErrNotFound) {
		http.Error(w, `{"error": "service not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to delete service", "tenant_id", tenantID, "service_id", serviceID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.logger.Info("service deleted", "tenant_id", tenantID, "service_id", serviceID)
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
