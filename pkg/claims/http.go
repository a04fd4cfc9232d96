package claims

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/systechdigital/redemption-platform/pkg/common/logger"
	"github.com/systechdigital/redemption-platform/pkg/common/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/claims/otp", h.handleRequestOTP).Methods(http.MethodPost)
	r.HandleFunc("/claims", h.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/claims/{claimId}", h.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/payments/webhook", h.handlePaymentWebhook).Methods(http.MethodPost)
}

func (h *Handler) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req models.RequestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.service.RequestOTP(r.Context(), req.Email); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to issue otp")
		http.Error(w, "failed to send verification code", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "verification code sent"})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Submit(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrOTPRequired):
			http.Error(w, err.Error(), http.StatusUnauthorized)
		default:
			logger.Log.WithError(err).Error("failed to submit claim")
			http.Error(w, "failed to submit claim", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	claimID := mux.Vars(r)["claimId"]

	claim, err := h.service.Status(r.Context(), claimID)
	if err != nil {
		http.Error(w, "claim not found", http.StatusNotFound)
		return
	}
	// Expose only what the customer needs to track their claim.
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claim_id":       claim.ClaimID,
		"payment_status": claim.PaymentStatus,
		"ott_status":     claim.OTTStatus,
		"ott_code":       claim.OTTCode,
		"platform":       claim.Platform,
		"created_at":     claim.CreatedAt,
	})
}

func (h *Handler) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		http.Error(w, "order id, payment id and signature are required", http.StatusBadRequest)
		return
	}

	claim, err := h.service.ConfirmPayment(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSignature):
			http.Error(w, "signature verification failed", http.StatusUnauthorized)
		case errors.Is(err, ErrOrderNotFound):
			http.Error(w, "order not found", http.StatusNotFound)
		default:
			logger.Log.WithError(err).Error("payment webhook failed")
			http.Error(w, "failed to process payment", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claim_id":       claim.ClaimID,
		"payment_status": claim.PaymentStatus,
		"ott_status":     claim.OTTStatus,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
