// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package proximity

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/dinemap/internal/apperrors"
	"github.com/tomtom215/dinemap/internal/geo"
	"github.com/tomtom215/dinemap/internal/logging"
	"github.com/tomtom215/dinemap/internal/places"
	"github.com/tomtom215/dinemap/internal/store"
)

// SyncRadiusMeters is the search radius around each sync seed.
const SyncRadiusMeters = 2000

// DefaultSyncSeeds are the centers of Taipei's twelve districts.
var DefaultSyncSeeds = []geo.Point{
	{Lat: 25.0608, Lng: 121.5576},
	{Lat: 25.0330, Lng: 121.5654},
	{Lat: 25.0267, Lng: 121.5435},
	{Lat: 25.0685, Lng: 121.5264},
	{Lat: 25.0320, Lng: 121.5180},
	{Lat: 25.0631, Lng: 121.5130},
	{Lat: 25.0340, Lng: 121.4997},
	{Lat: 24.9897, Lng: 121.5703},
	{Lat: 25.0550, Lng: 121.6069},
	{Lat: 25.0830, Lng: 121.5880},
	{Lat: 25.0930, Lng: 121.5250},
	{Lat: 25.1320, Lng: 121.5020},
}

// ErrNoLiveSource is returned by SyncBrand when the service has no live source.
var ErrNoLiveSource = errors.New("no live nearby source configured")

// SyncBrand runs a nearby search for brand around every seed and upserts
// the distinct results into the amenities collection, keyed
// "<brand>:<place id>". It returns the number of amenities written. A
// failing seed is skipped; the call fails only when every seed fails.
func (s *Service) SyncBrand(ctx context.Context, brand string, seeds []geo.Point) (int, error) {
	b, ok := s.cfg.Brand(brand)
	if !ok {
		return 0, apperrors.NewValidation("brand", "unknown brand %q", brand)
	}
	if s.live == nil {
		return 0, ErrNoLiveSource
	}
	if len(seeds) == 0 {
		seeds = DefaultSyncSeeds
	}

	log := logging.Ctx(ctx).With().Str("brand", brand).Logger()
	category := places.Category{PlaceType: b.PlaceType, Keyword: b.Keyword}

	seen := make(map[string]struct{})
	written, failed := 0, 0
	var lastErr error

	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		found, err := s.live.FetchNearbyPoints(ctx, seed, SyncRadiusMeters, category)
		if err != nil {
			failed++
			lastErr = err
			log.Warn().Err(err).Str("seed", seed.String()).Msg("Amenity sync search failed")
			continue
		}

		for _, a := range found {
			if a.PlaceID == "" {
				continue
			}
			if _, dup := seen[a.PlaceID]; dup {
				continue
			}
			seen[a.PlaceID] = struct{}{}

			a.Brand = brand
			if err := s.store.Upsert(ctx, store.CollectionAmenities, brand+":"+a.PlaceID, a); err != nil {
				return written, fmt.Errorf("store amenity %s: %w", a.PlaceID, err)
			}
			written++
		}
	}

	if failed == len(seeds) {
		return 0, fmt.Errorf("all %d sync searches failed: %w", failed, lastErr)
	}

	if s.cache != nil {
		s.cache.Delete(durableKey(brand))
	}
	log.Info().Int("written", written).Int("failed_seeds", failed).Msg("Amenity sync complete")
	return written, nil
}
