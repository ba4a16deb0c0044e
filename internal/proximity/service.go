// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package proximity answers "what is near me" queries for the guide's
// restaurants and for configured amenity brands.
//
// Candidate sets come from one of two places:
//   - durable: the restaurants collection, or the amenities collection
//     filtered by brand (filled by SyncBrand)
//   - live: a nearby search against the places API around the origin
//
// Either set is kept in the restaurant cache namespace. Ranking is a full
// scan with geo.Nearest; there is no spatial index.
package proximity

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tomtom215/dinemap/internal/apperrors"
	"github.com/tomtom215/dinemap/internal/cache"
	"github.com/tomtom215/dinemap/internal/config"
	"github.com/tomtom215/dinemap/internal/geo"
	"github.com/tomtom215/dinemap/internal/logging"
	"github.com/tomtom215/dinemap/internal/metrics"
	"github.com/tomtom215/dinemap/internal/models"
	"github.com/tomtom215/dinemap/internal/places"
	"github.com/tomtom215/dinemap/internal/store"
)

// BrandRestaurants selects the guide's own restaurants. It is the brand
// used when a query names none.
const BrandRestaurants = "restaurants"

// originPrecision is the number of decimals an origin is rounded to when
// keying live candidate sets (about 110m at 3).
const originPrecision = 3

// NearbySource is the live candidate provider.
type NearbySource interface {
	FetchNearbyPoints(ctx context.Context, origin geo.Point, radiusMeters float64, category places.Category) ([]models.Amenity, error)
}

// Query is one nearby request.
type Query struct {
	Origin       geo.Point
	RadiusMeters float64
	Limit        int
	Brand        string
}

// Result is the answer to a Query.
type Result struct {
	Origin  geo.Point   `json:"user_location"`
	Brand   string      `json:"brand"`
	Source  string      `json:"source"`
	Matches []geo.Match `json:"data"`
	Total   int         `json:"total"`
}

// Service ranks candidates around an origin.
type Service struct {
	store          store.DurableStore
	live           NearbySource
	cache          *cache.LRU[[]models.Amenity]
	cfg            config.ProximityConfig
	durableTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithDurableTimeout bounds every durable candidate scan. A scan that runs
// out of time degrades to an empty candidate set.
func WithDurableTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.durableTimeout = d
	}
}

// NewService creates a proximity service. live may be nil, in which case
// live brands always answer empty.
func NewService(st store.DurableStore, live NearbySource, candidates *cache.LRU[[]models.Amenity], cfg config.ProximityConfig, opts ...Option) *Service {
	s := &Service{
		store: st,
		live:  live,
		cache: candidates,
		cfg:   cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// scan runs a bounded Scan over collection.
func (s *Service) scan(ctx context.Context, collection string, fn func(*store.Record) error) error {
	if s.durableTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.durableTimeout)
		defer cancel()
	}
	return s.store.Scan(ctx, collection, fn)
}

// NearbyAmenities returns the candidates of q.Brand nearest to q.Origin.
// Bad input is a validation error. A failing candidate source is logged
// and yields an empty result.
func (s *Service) NearbyAmenities(ctx context.Context, q Query) (*Result, error) {
	if err := q.Origin.Validate(); err != nil {
		return nil, err
	}
	if q.RadiusMeters == 0 {
		q.RadiusMeters = s.cfg.DefaultRadius
	}
	if q.Limit <= 0 {
		q.Limit = s.cfg.DefaultLimit
	}
	brand := strings.ToLower(strings.TrimSpace(q.Brand))
	if brand == "" {
		brand = BrandRestaurants
	}
	if _, ok := s.cfg.Brand(brand); !ok && brand != BrandRestaurants {
		return nil, apperrors.NewValidation("brand", "unknown brand %q", brand)
	}

	// Reject a bad radius before any candidate fetch.
	if _, err := geo.Nearest(q.Origin, nil, q.RadiusMeters, q.Limit); err != nil {
		return nil, err
	}

	source, amenities, err := s.candidates(ctx, brand, q)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("brand", brand).Str("source", source).Msg("Nearby candidates unavailable")
		amenities = nil
	}

	matches, err := geo.Nearest(q.Origin, toCandidates(amenities), q.RadiusMeters, q.Limit)
	if err != nil {
		return nil, err
	}

	metrics.ProximityQueries.WithLabelValues(brand, source).Inc()
	metrics.ProximityResults.Observe(float64(len(matches)))

	return &Result{
		Origin:  q.Origin,
		Brand:   brand,
		Source:  source,
		Matches: matches,
		Total:   len(matches),
	}, nil
}

// candidates loads the candidate set for brand, consulting the cache first.
func (s *Service) candidates(ctx context.Context, brand string, q Query) (string, []models.Amenity, error) {
	if brand == BrandRestaurants {
		list, err := s.cached(durableKey(brand), func() ([]models.Amenity, error) {
			return s.loadRestaurants(ctx)
		})
		return config.BrandSourceDurable, list, err
	}

	b, _ := s.cfg.Brand(brand)

	if b.Source == config.BrandSourceLive {
		if s.live == nil {
			return config.BrandSourceLive, nil, nil
		}
		radius := geo.ClampRadius(q.RadiusMeters)
		list, err := s.cached(liveKey(brand, q.Origin, radius), func() ([]models.Amenity, error) {
			return s.live.FetchNearbyPoints(ctx, q.Origin, radius, places.Category{
				PlaceType: b.PlaceType,
				Keyword:   b.Keyword,
			})
		})
		return config.BrandSourceLive, list, err
	}

	list, err := s.cached(durableKey(brand), func() ([]models.Amenity, error) {
		return s.loadAmenities(ctx, brand)
	})
	return config.BrandSourceDurable, list, err
}

func (s *Service) cached(key string, load func() ([]models.Amenity, error)) ([]models.Amenity, error) {
	if s.cache != nil {
		if list, ok := s.cache.Get(key); ok {
			return list, nil
		}
	}
	list, err := load()
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(key, list)
	}
	return list, nil
}

func (s *Service) loadRestaurants(ctx context.Context) ([]models.Amenity, error) {
	var out []models.Amenity
	err := s.scan(ctx, store.CollectionRestaurants, func(rec *store.Record) error {
		var r models.Restaurant
		if err := rec.Decode(&r); err != nil {
			logging.Ctx(ctx).Debug().Err(err).Str("key", rec.Key).Msg("Skipping undecodable restaurant")
			return nil
		}
		if r.Coordinates.Validate() != nil {
			return nil
		}
		name := r.Name
		if name == "" {
			name = rec.Key
		}
		out = append(out, models.Amenity{
			PlaceID:     rec.Key,
			Name:        name,
			Address:     r.Building,
			Brand:       BrandRestaurants,
			Coordinates: r.Coordinates,
		})
		return nil
	})
	return out, err
}

func (s *Service) loadAmenities(ctx context.Context, brand string) ([]models.Amenity, error) {
	prefix := brand + ":"
	var out []models.Amenity
	err := s.scan(ctx, store.CollectionAmenities, func(rec *store.Record) error {
		if !strings.HasPrefix(rec.Key, prefix) {
			return nil
		}
		var a models.Amenity
		if err := rec.Decode(&a); err != nil {
			return nil
		}
		out = append(out, a)
		return nil
	})
	return out, err
}

func toCandidates(list []models.Amenity) []geo.Candidate {
	out := make([]geo.Candidate, len(list))
	for i, a := range list {
		id := a.PlaceID
		if id == "" {
			id = a.Name
		}
		out[i] = geo.Candidate{ID: id, Point: a.Coordinates, Payload: a}
	}
	return out
}

func durableKey(brand string) string {
	return brand + ":all"
}

func liveKey(brand string, origin geo.Point, radius float64) string {
	scale := math.Pow(10, originPrecision)
	lat := math.Round(origin.Lat*scale) / scale
	lng := math.Round(origin.Lng*scale) / scale
	return fmt.Sprintf("%s:%.*f,%.*f:%d", brand, originPrecision, lat, originPrecision, lng, int(radius))
}
