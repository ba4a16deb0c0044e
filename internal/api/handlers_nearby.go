// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package api

import (
	"net/http"
	"strings"

	"github.com/tomtom215/dinemap/internal/geo"
	"github.com/tomtom215/dinemap/internal/proximity"
	"github.com/tomtom215/dinemap/internal/validation"
)

// Nearby handles GET /api/v1/nearby.
//
// Query parameters: lat, lng (required), radius in meters or maxDistance
// in kilometres, limit, brand.
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req, err := nearbyRequestFromQuery(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		rw.ValidationFailed(verr)
		return
	}

	result, err := h.nearby.NearbyAmenities(r.Context(), proximity.Query{
		Origin:       geo.Point{Lat: *req.Lat, Lng: *req.Lng},
		RadiusMeters: req.RadiusMeters(),
		Limit:        req.Limit,
		Brand:        req.Brand,
	})
	if err != nil {
		rw.Err(err, "")
		return
	}

	rw.Header().Set("Cache-Control", cacheControlShort)
	rw.Success(result)
}

func nearbyRequestFromQuery(r *http.Request) (*validation.NearbyRequest, error) {
	req := &validation.NearbyRequest{
		Brand: strings.TrimSpace(r.URL.Query().Get("brand")),
	}

	var err error
	if req.Lat, err = parseFloatParam(r, "lat"); err != nil {
		return nil, err
	}
	if req.Lng, err = parseFloatParam(r, "lng"); err != nil {
		return nil, err
	}
	if radius, err := parseFloatParam(r, "radius"); err != nil {
		return nil, err
	} else if radius != nil {
		req.Radius = *radius
	}
	if km, err := parseFloatParam(r, "maxDistance"); err != nil {
		return nil, err
	} else if km != nil {
		req.MaxDistanceKm = *km
	}
	if req.Limit, err = parseIntParam(r, "limit"); err != nil {
		return nil, err
	}
	return req, nil
}
