package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atpstore/backend-atp/internal/common"
)

// Handler exposes public catalog endpoints. Responses are anonymous and
// cacheable; CacheControl is surfaced so CDNs can absorb browse traffic.
type Handler struct {
	service *Service
}

// browseCacheControl is sent on list and detail reads. Short enough that a
// price change propagates quickly, long enough to shield the data layer.
const browseCacheControl = "public, max-age=60"

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Brands handles GET /api/v1/brands.
func (h *Handler) Brands(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	rows, err := h.service.ListBrands(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", browseCacheControl)
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	rows, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", browseCacheControl)
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Products handles GET /api/v1/products with filters, sorting, and pagination.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	params, err := h.service.ParseListParams(r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}
	result, err := h.service.ListProducts(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", browseCacheControl)
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.Pagination{Page: result.Page, PerPage: result.Limit, TotalItems: int(result.Total)},
	})
}

// ProductDetail handles GET /api/v1/products/{slug}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "product slug is required", nil)
		return
	}
	detail, err := h.service.GetProductDetail(r.Context(), slug)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", browseCacheControl)
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// Related handles GET /api/v1/products/{slug}/related.
func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "product slug is required", nil)
		return
	}
	items, err := h.service.ListRelatedProducts(r.Context(), slug)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", browseCacheControl)
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
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
		var details any
		if appErr.Details != nil {
			details = appErr.Details
		}
		if appErr.Err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(appErr.Err, &syntaxErr) {
				details = map[string]any{"offset": syntaxErr.Offset}
			}
		}
		common.JSONError(w, status, code, message, details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
