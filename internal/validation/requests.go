// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package validation

// BatchRequest is the body of POST /api/v1/batch. More than 50 names are
// accepted; the aggregator drops the excess.
type BatchRequest struct {
	Restaurants []string `json:"restaurants" validate:"required,min=1,dive,notblank"`
	Include     []string `json:"include" validate:"required,min=1,dive,attrkind"`
}

// NearbyRequest holds the query of GET /api/v1/nearby. Radius is in
// meters; MaxDistanceKm is the older kilometre form and is used only
// when Radius is zero.
type NearbyRequest struct {
	Lat           *float64 `json:"lat" validate:"required,latitude"`
	Lng           *float64 `json:"lng" validate:"required,longitude"`
	Radius        float64  `json:"radius" validate:"gte=0"`
	MaxDistanceKm float64  `json:"maxDistance" validate:"gte=0"`
	Limit         int      `json:"limit" validate:"gte=0,lte=50"`
	Brand         string   `json:"brand" validate:"omitempty,max=64"`
}

// RadiusMeters resolves the effective radius. Zero means "use the default".
func (r *NearbyRequest) RadiusMeters() float64 {
	if r.Radius > 0 {
		return r.Radius
	}
	return r.MaxDistanceKm * 1000
}

// CacheStatsRequest is the body of POST /api/v1/cache/stats.
type CacheStatsRequest struct {
	Type string `json:"type" validate:"required,oneof=all restaurant"`
	Name string `json:"name" validate:"required_if=Type restaurant,max=200"`
}

// InvalidateRequest holds the query of DELETE /api/v1/cache/invalidate.
// The type value itself is checked by the controller after authorization.
type InvalidateRequest struct {
	Type string `json:"type" validate:"max=32"`
	Name string `json:"restaurantName" validate:"max=200"`
}
