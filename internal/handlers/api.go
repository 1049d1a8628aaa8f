package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"shipdash/internal/errors"
	"shipdash/internal/observability"
	"shipdash/internal/store"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
	cacheMaxAge  = "public, max-age=300"
)

type APIHandlers struct {
	store  *store.Store
	logger *slog.Logger
}

func NewAPIHandlers(st *store.Store, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		store:  st,
		logger: logger,
	}
}

// pageParams clamps pagination inputs instead of rejecting them: non-numeric
// or negative values fall back to the defaults, and limit is capped at
// maxLimit to keep scans bounded.
func pageParams(r *http.Request) (limit, offset int) {
	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			limit = v
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset = 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

func (h *APIHandlers) HandleListShipments(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())
	limit, offset := pageParams(r)

	shipments, total, err := h.store.ListShipments(r.Context(), limit, offset)
	if err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "failed to list shipments"), requestID)
		return
	}

	w.Header().Set("Cache-Control", cacheMaxAge)
	errors.WritePage(w, shipments, total)
}

func (h *APIHandlers) HandleListCompanies(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())
	limit, offset := pageParams(r)
	search := r.URL.Query().Get("search")

	companies, total, err := h.store.ListCompanies(r.Context(), limit, offset, search)
	if err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "failed to list companies"), requestID)
		return
	}

	// Shape check on aggregation output, not on user input.
	for _, c := range companies {
		if err := c.Validate(); err != nil {
			errors.WriteError(w, h.logger, errors.ValidationWrap(err, "company listing failed validation"), requestID)
			return
		}
	}

	w.Header().Set("Cache-Control", cacheMaxAge)
	errors.WritePage(w, companies, total)
}

func (h *APIHandlers) HandleCompanyDetail(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	// PathValue is already URL-decoded by the mux.
	name := r.PathValue("name")
	if name == "" {
		errors.WriteError(w, h.logger, errors.BadRequest("company name is required"), requestID)
		return
	}

	detail, err := h.store.GetCompanyDetail(r.Context(), name)
	if err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "failed to load company detail"), requestID)
		return
	}
	if detail == nil {
		errors.WriteError(w, h.logger, errors.NotFound("company not found"), requestID)
		return
	}

	if err := detail.Validate(); err != nil {
		errors.WriteError(w, h.logger, errors.ValidationWrap(err, "company detail failed validation"), requestID)
		return
	}

	errors.WriteSuccess(w, detail)
}

func (h *APIHandlers) HandleCompanyStats(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	snapshot, err := h.store.Stats(r.Context())
	if err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "failed to compute stats"), requestID)
		return
	}

	if err := snapshot.Validate(); err != nil {
		errors.WriteError(w, h.logger, errors.ValidationWrap(err, "stats snapshot failed validation"), requestID)
		return
	}

	errors.WriteSuccessWithHeaders(w, snapshot, map[string]string{
		"Cache-Control": cacheMaxAge,
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleAdminStats(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	count, err := h.store.Count(r.Context())
	if err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "failed to read record count"), requestID)
		return
	}

	errors.WriteSuccess(w, map[string]any{
		"record_count": count,
	})
}
