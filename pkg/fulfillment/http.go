package fulfillment

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/systechdigital/redemption-platform/pkg/common/logger"
	"github.com/systechdigital/redemption-platform/pkg/common/models"
)

type Handler struct {
	scheduler *Scheduler
	orch      *Orchestrator
	settings  SettingsStore
}

func NewHandler(scheduler *Scheduler, orch *Orchestrator, settings SettingsStore) *Handler {
	return &Handler{scheduler: scheduler, orch: orch, settings: settings}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/automation/trigger", h.handleTrigger).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/automation/reprocess", h.handleReprocess).Methods(http.MethodPost)
	r.HandleFunc("/automation/settings", h.handleGetSettings).Methods(http.MethodGet)
	r.HandleFunc("/automation/settings", h.handleUpdateSettings).Methods(http.MethodPut)
}

func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.Trigger(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("trigger failed")
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type reprocessRequest struct {
	ClaimID string `json:"claim_id"`
}

func (h *Handler) handleReprocess(w http.ResponseWriter, r *http.Request) {
	var req reprocessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.ClaimID == "" {
		http.Error(w, "claim_id is required", http.StatusBadRequest)
		return
	}

	detail, err := h.orch.ReprocessClaimID(r.Context(), req.ClaimID)
	if err != nil {
		if IsRetryable(err) {
			logger.Log.WithError(err).Error("reprocess failed")
			http.Error(w, "reprocess failed, try again", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "claim not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": detail.Outcome == OutcomeDelivered,
		"detail":  detail,
	})
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to load automation settings")
		http.Error(w, "failed to load settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	settings, err := h.settings.Get(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to load automation settings")
		http.Error(w, "failed to load settings", http.StatusInternalServerError)
		return
	}

	if req.IsEnabled != nil {
		settings.IsEnabled = *req.IsEnabled
	}
	if req.IntervalMinutes != nil {
		if !models.ValidSweepInterval(*req.IntervalMinutes) {
			http.Error(w, "interval_minutes must be one of 1, 5, 30, 60, 360, 1440", http.StatusBadRequest)
			return
		}
		settings.IntervalMinutes = *req.IntervalMinutes
	}

	if err := h.settings.Update(r.Context(), settings); err != nil {
		logger.Log.WithError(err).Error("failed to update automation settings")
		http.Error(w, "failed to update settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
