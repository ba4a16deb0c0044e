// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package geo answers "nearest N within radius" queries over small point
// sets by brute-force great-circle distance. Candidate sets are a few
// hundred stores at most, so no spatial index is kept.
package geo

import (
	"fmt"
	"math"

	"github.com/tomtom215/dinemap/internal/apperrors"
)

// EarthRadiusMeters is the mean Earth radius used by Haversine.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects out-of-range or non-finite coordinates.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return apperrors.NewValidation("lat", "must be between -90 and 90, got %v", p.Lat)
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) || p.Lng < -180 || p.Lng > 180 {
		return apperrors.NewValidation("lng", "must be between -180 and 180, got %v", p.Lng)
	}
	return nil
}

// String formats the point as "lat,lng", the form Google Maps URLs expect.
func (p Point) String() string {
	return fmt.Sprintf("%g,%g", p.Lat, p.Lng)
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// FormatDistance renders meters for display: "850m" below one kilometer,
// "1.2km" from there on.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int64(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

// RoundKm converts meters to kilometers rounded to three decimals.
func RoundKm(meters float64) float64 {
	return math.Round(meters) / 1000
}

// DirectionsURL returns a Google Maps walking-directions link to p.
func DirectionsURL(p Point) string {
	return "https://www.google.com/maps/dir/?api=1&destination=" + p.String() + "&travelmode=walking"
}
