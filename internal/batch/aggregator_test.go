// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/dinemap/internal/apperrors"
	"github.com/tomtom215/dinemap/internal/cache"
	"github.com/tomtom215/dinemap/internal/models"
)

// recordingLoader serves values from a fixed map and records its calls.
type recordingLoader[V any] struct {
	data  map[string]V
	calls int32
	keys  [][]string
	err   error
}

func (l *recordingLoader[V]) load(_ context.Context, keys []string) (map[string]V, error) {
	atomic.AddInt32(&l.calls, 1)
	l.keys = append(l.keys, append([]string(nil), keys...))
	if l.err != nil {
		return nil, l.err
	}
	out := make(map[string]V)
	for _, k := range keys {
		if v, ok := l.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("restaurant-%02d", i)
	}
	return out
}

func TestAggregate_Validation(t *testing.T) {
	t.Parallel()

	a := NewAggregator(nil)
	tests := []struct {
		name string
		req  Request
	}{
		{"no keys", Request{Kinds: []models.AttributeKind{models.KindRating}}},
		{"no kinds", Request{EntityKeys: []string{"a"}}},
		{"unknown kind", Request{EntityKeys: []string{"a"}, Kinds: []models.AttributeKind{"menu"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Aggregate(context.Background(), tt.req)
			if !apperrors.IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestAggregate_TruncatesTo50AndFillsEveryKey(t *testing.T) {
	t.Parallel()

	ratings := &recordingLoader[models.Rating]{data: map[string]models.Rating{
		"restaurant-00": {Rating: 4.5, UserRatingsTotal: 120},
	}}
	a := NewAggregator(map[models.AttributeKind]KindSource{
		models.KindRating: NewSource[models.Rating](nil, ratings.load, nil),
	})

	res, err := a.Aggregate(context.Background(), Request{
		EntityKeys: names(75),
		Kinds:      []models.AttributeKind{models.KindRating},
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(res) != MaxEntityKeys {
		t.Fatalf("Expected %d keys, got %d", MaxEntityKeys, len(res))
	}
	for _, k := range names(50) {
		if _, ok := res[k]; !ok {
			t.Errorf("Expected key %s present", k)
		}
	}
	if _, ok := res["restaurant-50"]; ok {
		t.Error("Expected key restaurant-50 to be truncated")
	}
	if len(ratings.keys) != 1 || len(ratings.keys[0]) != MaxEntityKeys {
		t.Errorf("Expected one bulk load of %d keys, got %v", MaxEntityKeys, ratings.keys)
	}
	if got := res["restaurant-00"][models.KindRating]; got != (models.Rating{Rating: 4.5, UserRatingsTotal: 120}) {
		t.Errorf("Unexpected rating %v", got)
	}
	if len(res["restaurant-01"]) != 0 {
		t.Errorf("Expected empty sub-map for missing entity, got %v", res["restaurant-01"])
	}
}

func TestAggregate_CachePartitionAndBackfill(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[models.Rating](10, time.Minute)
	c.Set("a", models.Rating{Rating: 4.0})

	loader := &recordingLoader[models.Rating]{data: map[string]models.Rating{
		"b": {Rating: 3.5},
	}}
	a := NewAggregator(map[models.AttributeKind]KindSource{
		models.KindRating: NewSource[models.Rating](c, loader.load, nil),
	})

	req := Request{EntityKeys: []string{"a", "b", "c"}, Kinds: []models.AttributeKind{models.KindRating}}
	res, err := a.Aggregate(context.Background(), req)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(loader.keys) != 1 || len(loader.keys[0]) != 2 || loader.keys[0][0] != "b" || loader.keys[0][1] != "c" {
		t.Errorf("Expected durable load of [b c], got %v", loader.keys)
	}
	if res["a"][models.KindRating].(models.Rating).Rating != 4.0 {
		t.Error("Expected a from memory")
	}
	if res["b"][models.KindRating].(models.Rating).Rating != 3.5 {
		t.Error("Expected b from durable")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("Expected b back-filled into memory")
	}

	// Second call: a and b hit memory, only c goes to the store.
	if _, err := a.Aggregate(context.Background(), req); err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(loader.keys) != 2 || len(loader.keys[1]) != 1 || loader.keys[1][0] != "c" {
		t.Errorf("Expected second load of [c], got %v", loader.keys)
	}
}

func TestAggregate_NoLoadWhenAllCached(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[models.Rating](10, time.Minute)
	c.Set("a", models.Rating{Rating: 5})
	loader := &recordingLoader[models.Rating]{}
	a := NewAggregator(map[models.AttributeKind]KindSource{
		models.KindRating: NewSource[models.Rating](c, loader.load, nil),
	})

	if _, err := a.Aggregate(context.Background(), Request{
		EntityKeys: []string{"a"},
		Kinds:      []models.AttributeKind{models.KindRating},
	}); err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if loader.calls != 0 {
		t.Errorf("Expected no durable load, got %d", loader.calls)
	}
}

func TestAggregate_PhotoBackfillRespectsCacheable(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[models.Photo](10, time.Minute)
	loader := &recordingLoader[models.Photo]{data: map[string]models.Photo{
		"open":   {PhotoURL: "https://example.test/open.jpg"},
		"closed": {PhotoURL: "https://example.test/closed.jpg", IsClosed: true, BusinessStatus: "CLOSED_PERMANENTLY"},
		"nourl":  {},
	}}
	a := NewAggregator(map[models.AttributeKind]KindSource{
		models.KindPhoto: NewSource[models.Photo](c, loader.load, models.Photo.Cacheable),
	})

	res, err := a.Aggregate(context.Background(), Request{
		EntityKeys: []string{"open", "closed", "nourl"},
		Kinds:      []models.AttributeKind{models.KindPhoto},
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	for _, k := range []string{"open", "closed", "nourl"} {
		if _, ok := res[k][models.KindPhoto]; !ok {
			t.Errorf("Expected photo result for %s", k)
		}
	}
	if _, ok := c.Get("open"); !ok {
		t.Error("Expected open photo cached")
	}
	if _, ok := c.Get("closed"); ok {
		t.Error("Expected closed photo not cached")
	}
	if _, ok := c.Get("nourl"); ok {
		t.Error("Expected empty photo not cached")
	}
}

func TestAggregate_KindFailureIsIsolated(t *testing.T) {
	t.Parallel()

	ratings := &recordingLoader[models.Rating]{data: map[string]models.Rating{"a": {Rating: 4.2}}}
	photos := &recordingLoader[models.Photo]{err: errors.New("image_cache unavailable")}
	a := NewAggregator(map[models.AttributeKind]KindSource{
		models.KindRating: NewSource[models.Rating](nil, ratings.load, nil),
		models.KindPhoto:  NewSource[models.Photo](nil, photos.load, nil),
		models.KindReviews: {
			LoadMany: func(context.Context, []string) (map[string]any, error) {
				panic("cursor closed")
			},
		},
	})

	res, err := a.Aggregate(context.Background(), Request{
		EntityKeys: []string{"a"},
		Kinds:      models.AllAttributeKinds,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, ok := res["a"][models.KindRating]; !ok {
		t.Error("Expected rating despite other kinds failing")
	}
	if _, ok := res["a"][models.KindPhoto]; ok {
		t.Error("Expected no photo for failed kind")
	}
	if _, ok := res["a"][models.KindReviews]; ok {
		t.Error("Expected no reviews for panicking kind")
	}
}

func TestAggregate_DuplicatesCollapsed(t *testing.T) {
	t.Parallel()

	loader := &recordingLoader[models.Rating]{}
	a := NewAggregator(map[models.AttributeKind]KindSource{
		models.KindRating: NewSource[models.Rating](nil, loader.load, nil),
	})

	res, err := a.Aggregate(context.Background(), Request{
		EntityKeys: []string{"a", "b", "a"},
		Kinds:      []models.AttributeKind{models.KindRating, models.KindRating},
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(res) != 2 {
		t.Errorf("Expected 2 keys, got %d", len(res))
	}
	if loader.calls != 1 || len(loader.keys[0]) != 2 {
		t.Errorf("Expected one load of 2 keys, got %d calls %v", loader.calls, loader.keys)
	}
}

func TestAggregate_KindsRunConcurrently(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	blocking := func(context.Context, []string) (map[string]any, error) {
		started <- struct{}{}
		<-release
		return map[string]any{"a": true}, nil
	}
	a := NewAggregator(map[models.AttributeKind]KindSource{
		models.KindRating: {LoadMany: blocking},
		models.KindPhoto:  {LoadMany: blocking},
	})

	done := make(chan Result, 1)
	go func() {
		res, _ := a.Aggregate(context.Background(), Request{
			EntityKeys: []string{"a"},
			Kinds:      []models.AttributeKind{models.KindRating, models.KindPhoto},
		})
		done <- res
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("Expected both pipelines to start before either finished")
		}
	}
	close(release)

	res := <-done
	if len(res["a"]) != 2 {
		t.Errorf("Expected both kinds merged, got %v", res["a"])
	}
}

func TestAggregate_LoadTimeoutOmitsKind(t *testing.T) {
	t.Parallel()

	ratings := &recordingLoader[models.Rating]{data: map[string]models.Rating{"a": {Rating: 4.6}}}
	hung := func(ctx context.Context, _ []string) (map[string]any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	a := NewAggregator(map[models.AttributeKind]KindSource{
		models.KindRating: NewSource[models.Rating](nil, ratings.load, nil),
		models.KindPhoto:  {LoadMany: hung, Timeout: 50 * time.Millisecond},
	})

	// The caller's context outlives the load timeout by far.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	res, err := a.Aggregate(ctx, Request{
		EntityKeys: []string{"a"},
		Kinds:      []models.AttributeKind{models.KindRating, models.KindPhoto},
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected the hung load to be cut at its timeout, took %v", elapsed)
	}
	if _, ok := res["a"][models.KindPhoto]; ok {
		t.Error("Expected no photo after the load timed out")
	}
	if _, ok := res["a"][models.KindRating]; !ok {
		t.Error("Expected rating from the healthy kind")
	}
}
