// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package batch answers "give me these attributes for these restaurants"
// in one call. Each attribute kind is resolved by its own pipeline: a
// memory partition, one bulk durable query for the misses, then a memory
// back-fill. Pipelines run concurrently and fail independently.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/dinemap/internal/apperrors"
	"github.com/tomtom215/dinemap/internal/logging"
	"github.com/tomtom215/dinemap/internal/metrics"
	"github.com/tomtom215/dinemap/internal/models"
)

// MaxEntityKeys caps the number of entity keys processed per request.
// Extra keys are dropped silently.
const MaxEntityKeys = 50

// CacheView is the memory tier of one kind, erased to any.
type CacheView interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// KindSource resolves one attribute kind.
type KindSource struct {
	// Cache may be nil, in which case every key goes to LoadMany and
	// nothing is back-filled.
	Cache CacheView

	// LoadMany is the bulk durable query. Keys absent from the returned
	// map are simply not found.
	LoadMany func(ctx context.Context, keys []string) (map[string]any, error)

	// Cacheable filters back-fill. Nil means every loaded value is cached.
	Cacheable func(v any) bool

	// Timeout bounds LoadMany. A load that runs out of time fails the
	// kind like any other load error. Zero disables the bound.
	Timeout time.Duration
}

// Request is a batch query.
type Request struct {
	EntityKeys []string
	Kinds      []models.AttributeKind
}

// Result maps every requested entity key to the attributes found for it.
// Keys with nothing found map to an empty sub-map.
type Result map[string]map[models.AttributeKind]any

// Aggregator runs batch queries.
type Aggregator struct {
	sources map[models.AttributeKind]KindSource
}

// NewAggregator creates an Aggregator. Kinds without a source are
// accepted in requests but contribute nothing.
func NewAggregator(sources map[models.AttributeKind]KindSource) *Aggregator {
	copied := make(map[models.AttributeKind]KindSource, len(sources))
	for k, s := range sources {
		copied[k] = s
	}
	return &Aggregator{sources: copied}
}

// Aggregate runs req. Only validation errors are returned; a failing kind
// pipeline is logged and leaves its attribute out of the result.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) (Result, error) {
	keys, kinds, err := normalize(req)
	if err != nil {
		return nil, err
	}
	metrics.BatchRequests.Inc()

	result := make(Result, len(keys))
	for _, k := range keys {
		result[k] = make(map[models.AttributeKind]any, len(kinds))
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, kind := range kinds {
		src, ok := a.sources[kind]
		if !ok {
			continue
		}

		wg.Add(1)
		go func(kind models.AttributeKind, src KindSource) {
			defer wg.Done()

			found, err := runPipeline(ctx, kind, src, keys)
			if err != nil {
				metrics.BatchKindFailures.WithLabelValues(string(kind)).Inc()
				logging.Ctx(ctx).Warn().
					Err(err).
					Str("kind", string(kind)).
					Int("keys", len(keys)).
					Msg("Batch pipeline failed, omitting kind")
				return
			}

			mu.Lock()
			defer mu.Unlock()
			for key, v := range found {
				if attrs, ok := result[key]; ok {
					attrs[kind] = v
				}
			}
		}(kind, src)
	}
	wg.Wait()

	return result, nil
}

// runPipeline resolves one kind for keys.
func runPipeline(ctx context.Context, kind models.AttributeKind, src KindSource, keys []string) (found map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s pipeline: %v", kind, r)
		}
	}()

	found = make(map[string]any, len(keys))
	misses := make([]string, 0, len(keys))
	for _, k := range keys {
		if src.Cache != nil {
			if v, ok := src.Cache.Get(k); ok {
				found[k] = v
				continue
			}
		}
		misses = append(misses, k)
	}
	metrics.BatchCacheHits.WithLabelValues(string(kind)).Add(float64(len(found)))
	metrics.BatchCacheMisses.WithLabelValues(string(kind)).Add(float64(len(misses)))

	if len(misses) == 0 || src.LoadMany == nil {
		return found, nil
	}

	loadCtx, cancel := ctx, context.CancelFunc(func() {})
	if src.Timeout > 0 {
		loadCtx, cancel = context.WithTimeout(ctx, src.Timeout)
	}
	defer cancel()

	loaded, err := src.LoadMany(loadCtx, misses)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}

	for _, k := range misses {
		v, ok := loaded[k]
		if !ok {
			continue
		}
		found[k] = v
		if src.Cache != nil && (src.Cacheable == nil || src.Cacheable(v)) {
			src.Cache.Set(k, v)
		}
	}
	return found, nil
}

// normalize validates req, collapsing duplicates and truncating keys.
func normalize(req Request) ([]string, []models.AttributeKind, error) {
	if len(req.EntityKeys) == 0 {
		return nil, nil, apperrors.NewValidation("restaurants", "at least one restaurant is required")
	}
	if len(req.Kinds) == 0 {
		return nil, nil, apperrors.NewValidation("include", "at least one attribute kind is required")
	}

	kinds := make([]models.AttributeKind, 0, len(req.Kinds))
	seenKind := make(map[models.AttributeKind]struct{}, len(req.Kinds))
	for _, k := range req.Kinds {
		if !k.Valid() {
			return nil, nil, apperrors.NewValidation("include", "unknown attribute kind %q", string(k))
		}
		if _, dup := seenKind[k]; dup {
			continue
		}
		seenKind[k] = struct{}{}
		kinds = append(kinds, k)
	}

	limit := len(req.EntityKeys)
	if limit > MaxEntityKeys {
		limit = MaxEntityKeys
	}
	keys := make([]string, 0, limit)
	seenKey := make(map[string]struct{}, limit)
	for _, k := range req.EntityKeys[:limit] {
		if _, dup := seenKey[k]; dup {
			continue
		}
		seenKey[k] = struct{}{}
		keys = append(keys, k)
	}

	return keys, kinds, nil
}
