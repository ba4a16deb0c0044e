// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package geo

import (
	"math"
	"strings"
	"testing"

	"github.com/tomtom215/dinemap/internal/apperrors"
)

var taipeiMainStation = Point{Lat: 25.0478, Lng: 121.5170}

func TestHaversine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		a, b    Point
		wantMin float64
		wantMax float64
	}{
		{"same point", taipeiMainStation, taipeiMainStation, 0, 0},
		{"taipei station to ximending", taipeiMainStation, Point{Lat: 25.0421, Lng: 121.5081}, 1090, 1110},
		{"one degree of latitude", Point{Lat: 0, Lng: 0}, Point{Lat: 1, Lng: 0}, 111190, 111200},
		{"antipodal", Point{Lat: 0, Lng: 0}, Point{Lat: 0, Lng: 180}, 20015000, 20016000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.a, tt.b)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("Expected distance in [%v, %v], got %v", tt.wantMin, tt.wantMax, got)
			}
			if back := Haversine(tt.b, tt.a); math.Abs(back-got) > 1e-6 {
				t.Errorf("Expected symmetric distance, got %v and %v", got, back)
			}
		})
	}
}

func TestFormatDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		meters float64
		want   string
	}{
		{0, "0m"},
		{49.6, "50m"},
		{999.4, "999m"},
		{1000, "1.0km"},
		{1097.99, "1.1km"},
		{12345, "12.3km"},
	}

	for _, tt := range tests {
		if got := FormatDistance(tt.meters); got != tt.want {
			t.Errorf("FormatDistance(%v): expected %q, got %q", tt.meters, tt.want, got)
		}
	}
}

func TestPointValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		p       Point
		wantErr bool
	}{
		{"valid", taipeiMainStation, false},
		{"poles and antimeridian", Point{Lat: -90, Lng: 180}, false},
		{"lat too high", Point{Lat: 90.01, Lng: 0}, true},
		{"lng too low", Point{Lat: 0, Lng: -180.5}, true},
		{"nan", Point{Lat: math.NaN(), Lng: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !apperrors.IsValidation(err) {
				t.Errorf("Expected ValidationError, got %T", err)
			}
		})
	}
}

func TestNearest_IncludesCandidateWithinRadius(t *testing.T) {
	t.Parallel()

	candidates := []Candidate{{ID: "ximending", Point: Point{Lat: 25.0421, Lng: 121.5081}}}

	got, err := Nearest(taipeiMainStation, candidates, 2000, 5)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(got))
	}

	m := got[0]
	if m.DistanceMeters < 1090 || m.DistanceMeters > 1110 {
		t.Errorf("Expected about 1.1km, got %vm", m.DistanceMeters)
	}
	if !m.WithinRadius {
		t.Error("Expected WithinRadius=true")
	}
	if m.DistanceText != "1.1km" {
		t.Errorf("Expected distance text 1.1km, got %s", m.DistanceText)
	}
	if m.DistanceKm != 1.098 {
		t.Errorf("Expected distance km 1.098, got %v", m.DistanceKm)
	}
	if !strings.Contains(m.DirectionsURL, "destination=25.0421,121.5081") {
		t.Errorf("Unexpected directions URL: %s", m.DirectionsURL)
	}
}

func TestNearest_ExcludesCandidateOutsideRadius(t *testing.T) {
	t.Parallel()

	far := Candidate{ID: "far", Point: Point{Lat: taipeiMainStation.Lat + 0.045, Lng: taipeiMainStation.Lng}}

	got, err := Nearest(taipeiMainStation, []Candidate{far}, 2000, 5)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no matches, got %d", len(got))
	}
}

func TestNearest_OrdersByDistance(t *testing.T) {
	t.Parallel()

	at := func(id string, dLat float64) Candidate {
		return Candidate{ID: id, Point: Point{Lat: taipeiMainStation.Lat + dLat, Lng: taipeiMainStation.Lng}}
	}
	candidates := []Candidate{at("100m", 0.0009), at("50m", 0.00045), at("200m", 0.0018)}

	got, err := Nearest(taipeiMainStation, candidates, 1000, 5)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}

	want := []string{"50m", "100m", "200m"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d matches, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, got[i].ID)
		}
		if got[i].DistanceText != id {
			t.Errorf("Position %d: expected text %s, got %s", i, id, got[i].DistanceText)
		}
	}
}

func TestNearest_StableForEqualDistances(t *testing.T) {
	t.Parallel()

	p := Point{Lat: taipeiMainStation.Lat + 0.001, Lng: taipeiMainStation.Lng}
	candidates := []Candidate{{ID: "first", Point: p}, {ID: "second", Point: p}, {ID: "third", Point: p}}

	got, err := Nearest(taipeiMainStation, candidates, 500, 5)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	for i, id := range []string{"first", "second", "third"} {
		if got[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestNearest_LimitAndDefaults(t *testing.T) {
	t.Parallel()

	candidates := make([]Candidate, 8)
	for i := range candidates {
		candidates[i] = Candidate{ID: string(rune('a' + i)), Point: Point{Lat: taipeiMainStation.Lat + float64(i)*0.0001, Lng: taipeiMainStation.Lng}}
	}

	got, err := Nearest(taipeiMainStation, candidates, 5000, 0)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if len(got) != DefaultLimit {
		t.Errorf("Expected default limit %d, got %d", DefaultLimit, len(got))
	}

	got, err = Nearest(taipeiMainStation, candidates, 5000, 3)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Expected 3 matches, got %d", len(got))
	}
}

func TestNearest_EmptyCandidates(t *testing.T) {
	t.Parallel()

	got, err := Nearest(taipeiMainStation, nil, 1000, 5)
	if err != nil {
		t.Fatalf("Expected no error for empty candidates, got %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil result, got %#v", got)
	}
}

func TestNearest_RejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := Nearest(Point{Lat: 91, Lng: 0}, nil, 1000, 5); !apperrors.IsValidation(err) {
		t.Errorf("Expected ValidationError for bad origin, got %v", err)
	}
	if _, err := Nearest(taipeiMainStation, nil, -1, 5); !apperrors.IsValidation(err) {
		t.Errorf("Expected ValidationError for negative radius, got %v", err)
	}
}

func TestNearest_ClampsRadius(t *testing.T) {
	t.Parallel()

	// ~55km north, beyond the clamp.
	beyond := Candidate{ID: "beyond", Point: Point{Lat: taipeiMainStation.Lat + 0.5, Lng: taipeiMainStation.Lng}}
	// ~44km north, inside the clamp.
	inside := Candidate{ID: "inside", Point: Point{Lat: taipeiMainStation.Lat + 0.4, Lng: taipeiMainStation.Lng}}

	got, err := Nearest(taipeiMainStation, []Candidate{beyond, inside}, 1e9, 5)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "inside" {
		t.Errorf("Expected only the candidate inside 50km, got %#v", got)
	}
	if ClampRadius(60000) != MaxRadiusMeters {
		t.Errorf("Expected clamp to %v", MaxRadiusMeters)
	}
}
