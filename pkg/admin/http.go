package admin

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	adminauth "github.com/systechdigital/redemption-platform/pkg/admin/auth"
	"github.com/systechdigital/redemption-platform/pkg/admin/middleware"
	"github.com/systechdigital/redemption-platform/pkg/claims"
	"github.com/systechdigital/redemption-platform/pkg/common/logger"
	"github.com/systechdigital/redemption-platform/pkg/common/models"
	"github.com/systechdigital/redemption-platform/pkg/inventory"
)

const maxSheetBytes = 10 << 20 // 10 MiB upload cap

type Handler struct {
	service *Service
	jwt     *adminauth.JWTManager
	oidc    *adminauth.OIDCAuthenticator
}

// NewHandler wires the admin API. oidc may be nil when SSO is not configured.
func NewHandler(service *Service, jwt *adminauth.JWTManager, oidc *adminauth.OIDCAuthenticator) *Handler {
	return &Handler{service: service, jwt: jwt, oidc: oidc}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/admin/login", h.handleLogin).Methods(http.MethodPost)
	if h.oidc != nil {
		r.HandleFunc("/admin/oidc/login", h.handleOIDCLogin).Methods(http.MethodGet)
		r.HandleFunc("/admin/oidc/callback", h.handleOIDCCallback).Methods(http.MethodGet)
	}

	protected := r.PathPrefix("/admin").Subrouter()
	protected.Use(middleware.RequireAdmin(h.jwt))
	protected.HandleFunc("/dashboard", h.handleDashboard).Methods(http.MethodGet)
	protected.HandleFunc("/imports/sales", h.handleImportSales).Methods(http.MethodPost)
	protected.HandleFunc("/imports/keys", h.handleImportKeys).Methods(http.MethodPost)
	protected.HandleFunc("/claims", h.handleListClaims).Methods(http.MethodGet)
	protected.HandleFunc("/claims/export", h.handleExportClaims).Methods(http.MethodGet)
	protected.HandleFunc("/claims/{claimId}", h.handleDeleteClaim).Methods(http.MethodDelete)
	protected.HandleFunc("/sales", h.handleListSales).Methods(http.MethodGet)
	protected.HandleFunc("/keys", h.handleListKeys).Methods(http.MethodGet)
	protected.HandleFunc("/notifications", h.handleListNotifications).Methods(http.MethodGet)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, adminauth.ErrBadCredentials) {
			http.Error(w, "invalid email or password", http.StatusUnauthorized)
			return
		}
		logger.Log.WithError(err).Error("login failed")
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleOIDCLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     "oidc_state",
		Value:    state,
		Path:     "/admin/oidc",
		HttpOnly: true,
		MaxAge:   300,
	})
	http.Redirect(w, r, h.oidc.AuthURL(state), http.StatusFound)
}

func (h *Handler) handleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("oidc_state")
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}

	email, err := h.oidc.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		logger.Log.WithError(err).Error("oidc exchange failed")
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	resp, err := h.service.issueToken(email)
	if err != nil {
		logger.Log.WithError(err).Error("token issue failed")
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to build dashboard")
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// sheetBody accepts either a multipart upload with a "file" field or a raw
// text/csv request body.
func sheetBody(r *http.Request) (io.ReadCloser, error) {
	if err := r.ParseMultipartForm(maxSheetBytes); err == nil {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("multipart form is missing the file field")
		}
		return file, nil
	}
	return http.MaxBytesReader(nil, r.Body, maxSheetBytes), nil
}

func (h *Handler) handleImportSales(w http.ResponseWriter, r *http.Request) {
	body, err := sheetBody(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer body.Close()

	result, err := h.service.ImportSales(r.Context(), body)
	if err != nil {
		writeImportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleImportKeys(w http.ResponseWriter, r *http.Request) {
	body, err := sheetBody(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer body.Close()

	result, err := h.service.ImportKeys(r.Context(), body)
	if err != nil {
		writeImportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeImportError(w http.ResponseWriter, err error) {
	var rowErr *inventory.RowError
	if errors.As(err, &rowErr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"success": false,
			"row":     rowErr.Row,
			"error":   rowErr.Msg,
		})
		return
	}
	logger.Log.WithError(err).Error("import failed")
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}

func (h *Handler) handleListClaims(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := claims.ListFilter{
		PaymentStatus: q.Get("payment_status"),
		OTTStatus:     q.Get("ott_status"),
		Email:         q.Get("email"),
		Limit:         parsePositive(q.Get("limit"), 50),
		Offset:        parsePositive(q.Get("offset"), 0),
	}

	items, total, err := h.service.ListClaims(r.Context(), filter)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list claims")
		http.Error(w, "failed to list claims", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claims": items,
		"total":  total,
	})
}

func (h *Handler) handleExportClaims(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="claims.csv"`)
	if err := h.service.ExportClaims(r.Context(), w); err != nil {
		logger.Log.WithError(err).Error("claims export failed")
	}
}

func (h *Handler) handleDeleteClaim(w http.ResponseWriter, r *http.Request) {
	claimID := mux.Vars(r)["claimId"]
	if err := h.service.DeleteClaim(r.Context(), claimID); err != nil {
		http.Error(w, "claim not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "claim deleted"})
}

func (h *Handler) handleListSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, total, err := h.service.ListSales(r.Context(), parsePositive(q.Get("limit"), 50), parsePositive(q.Get("offset"), 0))
	if err != nil {
		logger.Log.WithError(err).Error("failed to list sales records")
		http.Error(w, "failed to list sales records", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": items,
		"total":   total,
	})
}

func (h *Handler) handleListKeys(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, total, err := h.service.ListKeys(r.Context(), parsePositive(q.Get("limit"), 50), parsePositive(q.Get("offset"), 0))
	if err != nil {
		logger.Log.WithError(err).Error("failed to list keys")
		http.Error(w, "failed to list keys", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"keys":  items,
		"total": total,
	})
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := parsePositive(r.URL.Query().Get("limit"), 100)
	items, err := h.service.ListNotifications(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list notifications")
		http.Error(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": items,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
