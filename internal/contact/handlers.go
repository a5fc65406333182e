package contact

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/atpstore/backend-atp/internal/common"
	"github.com/atpstore/backend-atp/internal/i18n"
)

// Handler exposes the public contact form endpoint.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service  *Service
	Validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	v := cfg.Validate
	if v == nil {
		v = validator.New()
	}
	return &Handler{service: cfg.Service, validate: v}
}

// Submit handles POST /api/v1/contact. Accepted submissions respond 202; the
// emails go out asynchronously.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "contact service not configured", nil)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	lang := i18n.Resolve(in.Language)
	if err := h.validate.Struct(in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", i18n.APIMessage(string(lang), "validation_failed"), map[string]any{"reason": err.Error()})
		return
	}

	err := h.service.Submit(r.Context(), common.ClientIP(r), in)
	switch {
	case err == nil:
		common.JSON(w, http.StatusAccepted, map[string]any{"message": i18n.APIMessage(string(lang), "message_sent")})
	case errors.Is(err, ErrRateLimited):
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", i18n.APIMessage(string(lang), "rate_limited"), nil)
	default:
		h.writeError(w, err, lang)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error, lang i18n.Language) {
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
			message = i18n.APIMessage(string(lang), "internal_error")
		}
		common.JSONError(w, status, code, message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", i18n.APIMessage(string(lang), "internal_error"), nil)
}
