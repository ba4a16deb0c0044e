// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package geo

import (
	"math"
	"sort"

	"github.com/tomtom215/dinemap/internal/apperrors"
)

const (
	// DefaultLimit is the result count used when a query passes limit <= 0.
	DefaultLimit = 5

	// MaxRadiusMeters caps every radius so live candidate fetches stay bounded.
	MaxRadiusMeters = 50000.0
)

// RadiusOptions are the radii offered to clients, in meters.
var RadiusOptions = []int{500, 1000, 2000, 5000}

// Candidate is a point that may be returned by a proximity query.
type Candidate struct {
	ID      string `json:"id"`
	Point   Point  `json:"point"`
	Payload any    `json:"payload,omitempty"`
}

// Match is a candidate annotated with its distance from the query origin.
type Match struct {
	Candidate
	DistanceMeters float64 `json:"distanceMeters"`
	DistanceKm     float64 `json:"distanceKm"`
	DistanceText   string  `json:"distanceText"`
	WithinRadius   bool    `json:"withinRadius"`
	DirectionsURL  string  `json:"directionsUrl"`
}

// ClampRadius bounds radiusMeters to MaxRadiusMeters.
func ClampRadius(radiusMeters float64) float64 {
	return math.Min(radiusMeters, MaxRadiusMeters)
}

// Nearest returns the candidates within radiusMeters of origin, closest
// first, at most limit of them. Equal distances keep input order.
func Nearest(origin Point, candidates []Candidate, radiusMeters float64, limit int) ([]Match, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(radiusMeters) || radiusMeters < 0 {
		return nil, apperrors.NewValidation("radius", "must be a non-negative number of meters")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	radiusMeters = ClampRadius(radiusMeters)

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		d := Haversine(origin, c.Point)
		matches = append(matches, Match{
			Candidate:      c,
			DistanceMeters: d,
			WithinRadius:   d <= radiusMeters,
		})
	}

	matches = FilterByRadius(matches)
	SortByDistance(matches)

	if len(matches) > limit {
		matches = matches[:limit]
	}

	for i := range matches {
		m := &matches[i]
		m.DistanceKm = RoundKm(m.DistanceMeters)
		m.DistanceText = FormatDistance(m.DistanceMeters)
		m.DirectionsURL = DirectionsURL(m.Point)
	}

	return matches, nil
}

// FilterByRadius keeps the matches flagged WithinRadius, preserving order.
func FilterByRadius(matches []Match) []Match {
	kept := matches[:0]
	for _, m := range matches {
		if m.WithinRadius {
			kept = append(kept, m)
		}
	}
	return kept
}

// SortByDistance orders matches ascending by distance. The sort is stable.
func SortByDistance(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceMeters < matches[j].DistanceMeters
	})
}
