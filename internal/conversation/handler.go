package conversation

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sazaba/wppai-server-sub000/internal/tenancy"
	"github.com/sazaba/wppai-server-sub000/pkg/logging"
)

// Handler exposes the conversational booking flow over HTTP.
type Handler struct {
	machine *Machine
	logger  *logging.Logger
}

// NewHandler creates the conversation HTTP handler.
func NewHandler(machine *Machine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{machine: machine, logger: logger}
}

// Routes returns a chi router with conversation routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/message", h.PostMessage)
	return r
}

type messageRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	CallerPhone    string `json:"caller_phone"`
}

// PostMessage runs one conversational turn and returns the single reply.
// POST /conversations/message
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "tenant required"}`, http.StatusUnauthorized)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ConversationID) == "" || strings.TrimSpace(req.Text) == "" {
		http.Error(w, `{"error": "conversation_id and text required"}`, http.StatusBadRequest)
		return
	}

	reply, err := h.machine.HandleMessage(r.Context(), tenantID, req.ConversationID, req.Text, req.CallerPhone)
	if err != nil {
		h.logger.Error("conversation turn failed",
			"tenant_id", tenantID, "conversation_id", req.ConversationID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		h.logger.Error("failed to encode reply", "tenant_id", tenantID, "error", err)
	}
}
