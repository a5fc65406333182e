package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/atpstore/backend-atp/internal/common"
)

// Handler exposes the admin user management endpoints. All routes assume
// RequireRole("admin") ran upstream.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// ListUsers handles GET /api/v1/admin/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "admin service not configured", nil)
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 20)
	offset := common.AtoiDefault(r.URL.Query().Get("offset"), 0)
	page, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(page.Total))
	common.JSON(w, http.StatusOK, map[string]any{"data": page.Users, "total": page.Total})
}

// GetUser handles GET /api/v1/admin/users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "admin service not configured", nil)
		return
	}
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": user})
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole handles PATCH /api/v1/admin/users/{id}.
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "admin service not configured", nil)
		return
	}
	claims, ok := common.ClaimsFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	var in updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	in.Role = strings.TrimSpace(in.Role)
	if in.Role == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "role is required", nil)
		return
	}
	user, err := h.service.UpdateRole(r.Context(), claims.UserID, chi.URLParam(r, "id"), in.Role)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": user})
}

// DeleteUser handles DELETE /api/v1/admin/users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "admin service not configured", nil)
		return
	}
	claims, ok := common.ClaimsFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	if err := h.service.DeleteUser(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := appErr.Code
		if code == "" {
			code = "INTERNAL"
		}
		message := appErr.Message
		if message == "" {
			message = "internal error"
		}
		common.JSONError(w, status, code, message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
