// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package guide binds the cache engine to the restaurant guide's data:
// one tiered lookup per attribute (rating, photo, reviews) over the
// process caches, the durable store and the places API, and the batch
// aggregator fed from the same sources.
package guide

import (
	"context"
	"sort"
	"time"

	"github.com/tomtom215/dinemap/internal/batch"
	"github.com/tomtom215/dinemap/internal/cache"
	"github.com/tomtom215/dinemap/internal/config"
	"github.com/tomtom215/dinemap/internal/models"
	"github.com/tomtom215/dinemap/internal/store"
	"github.com/tomtom215/dinemap/internal/tiered"
)

// External is the subset of the places client the guide reads from.
type External interface {
	FetchRating(ctx context.Context, name string) (models.Rating, error)
	FetchPhoto(ctx context.Context, name string) (models.Photo, error)
	FetchReviews(ctx context.Context, name string) (models.Reviews, error)
}

// Service serves restaurant attributes through the cache tiers.
type Service struct {
	store  store.DurableStore
	caches *cache.Registry

	ratings *tiered.Orchestrator[models.Rating]
	photos  *tiered.Orchestrator[models.Photo]
	reviews *tiered.Orchestrator[models.Reviews]

	ratingFetchers tiered.Fetchers[models.Rating]
	photoFetchers  tiered.Fetchers[models.Photo]
	reviewFetchers tiered.Fetchers[models.Reviews]

	aggregator *batch.Aggregator

	home           *cache.LRU[models.Home]
	homeCfg        config.HomeConfig
	durableTimeout time.Duration
	now            func() time.Time
}

// NewRegistry sizes the process caches from configuration.
func NewRegistry(cfg config.CacheConfig, opts ...cache.Option) *cache.Registry {
	ns := func(c config.NamespaceConfig) cache.NamespaceConfig {
		return cache.NamespaceConfig{MaxSize: c.MaxSize, TTL: c.TTL}
	}
	return cache.NewRegistry(cache.RegistryConfig{
		Rating:     ns(cfg.Rating),
		Review:     ns(cfg.Review),
		Image:      ns(cfg.Image),
		Restaurant: ns(cfg.Restaurant),
	}, opts...)
}

// NewService wires the lookups. ext may be nil, in which case only the
// memory and durable tiers are consulted.
func NewService(st store.DurableStore, ext External, caches *cache.Registry, cfg config.CacheConfig) *Service {
	homeTTL := cfg.Home.TTL
	if homeTTL <= 0 {
		homeTTL = defaultHomeTTL
	}
	s := &Service{
		store:          st,
		caches:         caches,
		home:           cache.NewLRU[models.Home](1, homeTTL),
		homeCfg:        cfg.Home,
		durableTimeout: cfg.DurableTimeout,
		now:            time.Now,
	}

	opts := func(name string, staleness time.Duration) tiered.Options {
		return tiered.Options{
			Name:            name,
			StalenessWindow: staleness,
			DurableTimeout:  cfg.DurableTimeout,
			ExternalTimeout: cfg.ExternalTimeout,
			SingleFlight:    cfg.SingleFlight,
		}
	}

	s.ratings = tiered.New[models.Rating](caches.Ratings(), opts(cache.NamespaceRating, cfg.RatingStaleness))
	s.photos = tiered.New[models.Photo](caches.Images(), opts(cache.NamespaceImage, cfg.ImageStaleness))
	s.reviews = tiered.New[models.Reviews](caches.Reviews(), opts(cache.NamespaceReview, cfg.ReviewStaleness))

	reviewDocs := durableDoc[models.Reviews](st, store.CollectionReviews)

	// Ratings live inside review documents; a rating-only fetch must not
	// overwrite one, so it is never persisted.
	s.ratingFetchers = tiered.Fetchers[models.Rating]{
		Durable: derived(reviewDocs, models.Reviews.RatingOf),
	}
	s.photoFetchers = tiered.Fetchers[models.Photo]{
		Durable: durableDoc[models.Photo](st, store.CollectionImages),
		Persist: persist(st, store.CollectionImages, models.Photo.Cacheable),
	}
	s.reviewFetchers = tiered.Fetchers[models.Reviews]{
		Durable: reviewDocs,
		Persist: persist[models.Reviews](st, store.CollectionReviews, nil),
	}
	if ext != nil {
		s.ratingFetchers.External = upstream(ext.FetchRating)
		s.photoFetchers.External = upstream(ext.FetchPhoto)
		s.reviewFetchers.External = upstream(ext.FetchReviews)
	}

	sources := map[models.AttributeKind]batch.KindSource{
		models.KindRating:  batch.NewSource[models.Rating](caches.Ratings(), s.loadRatings, nil),
		models.KindPhoto:   batch.NewSource[models.Photo](caches.Images(), s.loadPhotos, models.Photo.Cacheable),
		models.KindReviews: batch.NewSource[models.Reviews](nil, s.loadReviews, nil),
	}
	for kind, src := range sources {
		src.Timeout = cfg.DurableTimeout
		sources[kind] = src
	}
	s.aggregator = batch.NewAggregator(sources)

	return s
}

// Rating looks up the aggregate rating of name.
func (s *Service) Rating(ctx context.Context, name string) tiered.Result[models.Rating] {
	return s.ratings.Lookup(ctx, name, s.ratingFetchers)
}

// Photo looks up the representative photo of name.
func (s *Service) Photo(ctx context.Context, name string) tiered.Result[models.Photo] {
	return s.photos.Lookup(ctx, name, s.photoFetchers)
}

// Reviews looks up the review document of name.
func (s *Service) Reviews(ctx context.Context, name string) tiered.Result[models.Reviews] {
	return s.reviews.Lookup(ctx, name, s.reviewFetchers)
}

// RefreshReviews fetches name's reviews from the external source, writes
// them through and drops the now outdated memory rating.
func (s *Service) RefreshReviews(ctx context.Context, name string) tiered.Result[models.Reviews] {
	res := s.reviews.Refresh(ctx, name, s.reviewFetchers)
	if res.Found {
		s.caches.Ratings().Delete(name)
	}
	return res
}

// Batch runs the batch aggregator.
func (s *Service) Batch(ctx context.Context, req batch.Request) (batch.Result, error) {
	return s.aggregator.Aggregate(ctx, req)
}

// RestaurantNames lists every restaurant of the durable restaurants
// collection in key order.
func (s *Service) RestaurantNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.store.Scan(ctx, store.CollectionRestaurants, func(rec *store.Record) error {
		names = append(names, rec.Key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s *Service) loadRatings(ctx context.Context, keys []string) (map[string]models.Rating, error) {
	docs, err := store.GetMany[models.Reviews](ctx, s.store, store.CollectionReviews, keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Rating, len(docs))
	for name, doc := range docs {
		out[name] = doc.RatingOf()
	}
	return out, nil
}

// loadReviews backs the uncached reviews kind.
func (s *Service) loadReviews(ctx context.Context, keys []string) (map[string]models.Reviews, error) {
	return store.GetMany[models.Reviews](ctx, s.store, store.CollectionReviews, keys)
}

func (s *Service) loadPhotos(ctx context.Context, keys []string) (map[string]models.Photo, error) {
	return store.GetMany[models.Photo](ctx, s.store, store.CollectionImages, keys)
}
