// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package guide

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/dinemap/internal/apperrors"
	"github.com/tomtom215/dinemap/internal/batch"
	"github.com/tomtom215/dinemap/internal/logging"
	"github.com/tomtom215/dinemap/internal/models"
	"github.com/tomtom215/dinemap/internal/store"
)

const (
	homeKey        = "home_data"
	defaultHomeTTL = 5 * time.Minute
)

// Home assembles the home screen aggregate. cached reports whether the
// memoised copy was served.
func (s *Service) Home(ctx context.Context) (home models.Home, cached bool, err error) {
	if h, ok := s.home.Get(homeKey); ok {
		return h, true, nil
	}

	home = models.Home{
		PopularRatings: make(map[string]models.Rating, len(s.homeCfg.Popular)),
		MarketRatings:  make(map[string]models.Rating, len(s.homeCfg.Markets)),
		ImageURLs:      make(map[string]string),
	}

	names := make([]string, 0, len(s.homeCfg.Popular)+len(s.homeCfg.Markets))
	names = append(append(names, s.homeCfg.Popular...), s.homeCfg.Markets...)
	if len(names) > 0 {
		res, err := s.Batch(ctx, batch.Request{
			EntityKeys: names,
			Kinds:      []models.AttributeKind{models.KindRating, models.KindPhoto},
		})
		if err != nil {
			return models.Home{}, false, err
		}
		pick := func(dst map[string]models.Rating, list []string) {
			for _, name := range list {
				if r, ok := res[name][models.KindRating].(models.Rating); ok {
					dst[name] = r
				}
			}
		}
		pick(home.PopularRatings, s.homeCfg.Popular)
		pick(home.MarketRatings, s.homeCfg.Markets)
		for name, attrs := range res {
			if p, ok := attrs[models.KindPhoto].(models.Photo); ok && p.Cacheable() {
				home.ImageURLs[name] = p.PhotoURL
			}
		}
	}

	home.CustomRestaurants, err = s.restaurants(ctx)
	if err != nil {
		return models.Home{}, false, &apperrors.DependencyError{Tier: "durable", Err: err}
	}
	home.Timestamp = s.now().UTC()

	s.home.Set(homeKey, home)
	logging.Ctx(ctx).Debug().
		Int("featured", len(names)).
		Int("restaurants", len(home.CustomRestaurants)).
		Msg("Home aggregate rebuilt")
	return home, false, nil
}

// restaurants reads the guide's own restaurant list from the durable store.
func (s *Service) restaurants(ctx context.Context) ([]models.Restaurant, error) {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.durableTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, s.durableTimeout)
	}
	defer cancel()

	out := []models.Restaurant{}
	err := s.store.Scan(callCtx, store.CollectionRestaurants, func(rec *store.Record) error {
		var r models.Restaurant
		if err := rec.Decode(&r); err != nil {
			return err
		}
		if r.Name == "" {
			r.Name = rec.Key
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", store.CollectionRestaurants, err)
	}
	return out, nil
}
