// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/dinemap/internal/batch"
	"github.com/tomtom215/dinemap/internal/models"
	"github.com/tomtom215/dinemap/internal/tiered"
	"github.com/tomtom215/dinemap/internal/validation"
)

// batchResponse wraps the per-restaurant attribute map.
type batchResponse struct {
	Results batch.Result `json:"results"`
}

// lookupResponse is the answer to a single attribute lookup.
type lookupResponse struct {
	Name   string        `json:"name"`
	Found  bool          `json:"found"`
	Source tiered.Source `json:"source"`
	Value  interface{}   `json:"value,omitempty"`
}

func newLookupResponse[V any](name string, res tiered.Result[V]) lookupResponse {
	out := lookupResponse{Name: name, Found: res.Found, Source: res.Source}
	if res.Found {
		out.Value = res.Value
	}
	return out
}

// Batch handles POST /api/v1/batch.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req validation.BatchRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	h.runBatch(rw, r, &req)
}

// BatchQuery handles GET /api/v1/batch?names=a,b&include=rating,photo.
func (h *Handler) BatchQuery(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q := r.URL.Query()
	req := validation.BatchRequest{
		Restaurants: parseCommaSeparated(q.Get("names")),
		Include:     parseCommaSeparated(q.Get("include")),
	}
	h.runBatch(rw, r, &req)
}

func (h *Handler) runBatch(rw *ResponseWriter, r *http.Request, req *validation.BatchRequest) {
	if verr := validation.ValidateStruct(req); verr != nil {
		rw.ValidationFailed(verr)
		return
	}

	kinds, err := models.ParseAttributeKinds(req.Include)
	if err != nil {
		rw.Err(err, "")
		return
	}

	result, err := h.guide.Batch(r.Context(), batch.Request{EntityKeys: req.Restaurants, Kinds: kinds})
	if err != nil {
		rw.Err(err, "")
		return
	}

	rw.Header().Set("Cache-Control", cacheControlRating)
	rw.Success(batchResponse{Results: result})
}

// homeResponse is the home aggregate plus whether it came from memory.
type homeResponse struct {
	models.Home
	Cached bool `json:"cached"`
}

// Home handles GET /api/v1/home.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	home, cached, err := h.guide.Home(r.Context())
	if err != nil {
		rw.Err(err, "")
		return
	}

	rw.Header().Set("Cache-Control", cacheControlShort)
	rw.Success(homeResponse{Home: home, Cached: cached})
}

// restaurantName extracts and unescapes the {name} path parameter.
func restaurantName(r *http.Request) (string, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		return "", false
	}
	name = strings.TrimSpace(name)
	return name, name != ""
}

// Rating handles GET /api/v1/ratings/{name}.
func (h *Handler) Rating(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	name, ok := restaurantName(r)
	if !ok {
		rw.BadRequest("restaurant name is required")
		return
	}

	rw.Header().Set("Cache-Control", cacheControlRating)
	rw.Success(newLookupResponse(name, h.guide.Rating(r.Context(), name)))
}

// Photo handles GET /api/v1/photos/{name}.
func (h *Handler) Photo(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	name, ok := restaurantName(r)
	if !ok {
		rw.BadRequest("restaurant name is required")
		return
	}

	res := h.guide.Photo(r.Context(), name)
	if res.Found && res.Value.Cacheable() {
		rw.Header().Set("Cache-Control", cacheControlImage)
	} else {
		rw.Header().Set("Cache-Control", cacheControlShort)
	}
	rw.Success(newLookupResponse(name, res))
}

// Reviews handles GET /api/v1/reviews/{name}.
func (h *Handler) Reviews(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	name, ok := restaurantName(r)
	if !ok {
		rw.BadRequest("restaurant name is required")
		return
	}

	rw.Header().Set("Cache-Control", cacheControlReview)
	rw.Success(newLookupResponse(name, h.guide.Reviews(r.Context(), name)))
}
