// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package batch

import (
	"context"
	"fmt"
)

// TypedCache is the subset of cache.LRU[V] a source needs.
type TypedCache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
}

type cacheView[V any] struct {
	c TypedCache[V]
}

func (v cacheView[V]) Get(key string) (any, bool) {
	val, ok := v.c.Get(key)
	if !ok {
		return nil, false
	}
	return val, true
}

func (v cacheView[V]) Set(key string, value any) {
	if typed, ok := value.(V); ok {
		v.c.Set(key, typed)
	}
}

// NewSource builds a KindSource over a typed cache and loader. c may be nil
// for kinds that are never cached; cacheable may be nil to cache everything.
func NewSource[V any](c TypedCache[V], load func(ctx context.Context, keys []string) (map[string]V, error), cacheable func(V) bool) KindSource {
	src := KindSource{
		LoadMany: func(ctx context.Context, keys []string) (map[string]any, error) {
			typed, err := load(ctx, keys)
			if err != nil {
				return nil, err
			}
			out := make(map[string]any, len(typed))
			for k, v := range typed {
				out[k] = v
			}
			return out, nil
		},
	}
	if c != nil {
		src.Cache = cacheView[V]{c: c}
	}
	if cacheable != nil {
		src.Cacheable = func(v any) bool {
			typed, ok := v.(V)
			if !ok {
				panic(fmt.Sprintf("batch: unexpected value type %T", v))
			}
			return cacheable(typed)
		}
	}
	return src
}
