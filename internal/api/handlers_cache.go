// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/dinemap/internal/apperrors"
	"github.com/tomtom215/dinemap/internal/cache"
	"github.com/tomtom215/dinemap/internal/invalidation"
	"github.com/tomtom215/dinemap/internal/logging"
	"github.com/tomtom215/dinemap/internal/refresh"
	"github.com/tomtom215/dinemap/internal/validation"
)

type cacheStatsResponse struct {
	Timestamp time.Time              `json:"timestamp"`
	Caches    map[string]cache.Stats `json:"caches"`
}

type cacheActionResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name,omitempty"`
	Removed   *int      `json:"removed,omitempty"`
}

type invalidateResponse struct {
	Message        string              `json:"message"`
	Timestamp      time.Time           `json:"timestamp"`
	Type           invalidation.Type   `json:"type"`
	RestaurantName string              `json:"restaurantName,omitempty"`
	Deleted        invalidation.Counts `json:"deleted"`
}

type refreshResponse struct {
	Message string `json:"message"`
	*refresh.Report
}

// authorize checks the request's admin credential and writes the error
// response itself when it is rejected.
func (h *Handler) authorize(rw *ResponseWriter, r *http.Request) bool {
	cred := adminCredential(r)
	if err := h.admin.Authorize(r.Context(), cred); err != nil {
		logging.Ctx(r.Context()).Warn().
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Bool("credential_present", cred != "").
			Msg("Access denied: admin credential required")
		rw.Err(err, cred)
		return false
	}
	return true
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.authorize(rw, r) {
		return
	}
	rw.Success(cacheStatsResponse{Timestamp: time.Now().UTC(), Caches: h.admin.Stats()})
}

// CacheStatsAction handles POST /api/v1/cache/stats with
// {"type": "all"} or {"type": "restaurant", "name": "..."}.
func (h *Handler) CacheStatsAction(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.authorize(rw, r) {
		return
	}

	var req validation.CacheStatsRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationFailed(verr)
		return
	}

	now := time.Now().UTC()
	if req.Type == "all" {
		h.admin.InvalidateAll()
		rw.Success(cacheActionResponse{Message: "All memory caches invalidated", Timestamp: now})
		return
	}

	removed := h.admin.InvalidateEntity(req.Name)
	rw.Success(cacheActionResponse{
		Message:   "Memory cache invalidated for " + req.Name,
		Timestamp: now,
		Name:      req.Name,
		Removed:   &removed,
	})
}

// Invalidate handles DELETE /api/v1/cache/invalidate?type=&restaurantName=.
func (h *Handler) Invalidate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	cred := adminCredential(r)

	q := r.URL.Query()
	req := validation.InvalidateRequest{Type: q.Get("type"), Name: q.Get("restaurantName")}
	if req.Name == "" {
		req.Name = q.Get("name")
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationFailed(verr)
		return
	}

	counts, err := h.admin.InvalidateByType(r.Context(), cred, req.Type, req.Name)
	if err != nil {
		var derr *apperrors.DependencyError
		if errors.As(err, &derr) {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Durable invalidation failed")
			rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
				"durable store unavailable", map[string]interface{}{"deleted": counts})
			return
		}
		rw.Err(err, cred)
		return
	}

	typ, _ := invalidation.ParseType(req.Type) // already accepted by the controller
	logging.Ctx(r.Context()).Info().
		Str("type", string(typ)).
		Str("name", sanitizeLogValue(req.Name)).
		Msg("Cache invalidated via API")

	rw.Success(invalidateResponse{
		Message:        "Cache invalidated successfully",
		Timestamp:      time.Now().UTC(),
		Type:           typ,
		RestaurantName: req.Name,
		Deleted:        counts,
	})
}

// InvalidateStatus handles GET /api/v1/cache/invalidate.
func (h *Handler) InvalidateStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.authorize(rw, r) {
		return
	}

	report, err := h.admin.Status(r.Context())
	if err != nil {
		rw.Err(&apperrors.DependencyError{Tier: "durable", Err: err}, "")
		return
	}
	rw.Success(report)
}

// Refresh handles POST /api/v1/cache/refresh. The run happens within the
// request.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.authorize(rw, r) {
		return
	}
	if h.refresher == nil {
		rw.ServiceUnavailable("review refresh is not configured")
		return
	}

	report, err := h.refresher.RunOnce(r.Context())
	switch {
	case errors.Is(err, refresh.ErrRunInProgress):
		rw.Error(http.StatusConflict, ErrCodeConflict, err.Error())
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Review refresh failed")
		rw.ErrorWithDetails(http.StatusInternalServerError, ErrCodeInternalError, "review refresh failed", report)
		return
	}

	rw.Success(refreshResponse{Message: "Review refresh completed", Report: report})
}
