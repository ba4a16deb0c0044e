// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package store is the durable tier: a small document store keyed by
// (collection, key) whose records carry creation and update timestamps.
//
// Two backends implement DurableStore: BadgerDB (embedded, the default)
// and DynamoDB (single table, PK=collection, SK=key).
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Collection names.
const (
	CollectionReviews     = "google_reviews_cache"
	CollectionImages      = "image_cache"
	CollectionPrices      = "restaurant_prices"
	CollectionRestaurants = "restaurants"
	CollectionAmenities   = "amenities"
)

// ErrNotFound is returned by FindOne when no record exists.
var ErrNotFound = errors.New("record not found")

// ErrInvalidKey is returned for empty collection or key names.
var ErrInvalidKey = errors.New("collection and key must be non-empty")

// Record is one stored document.
type Record struct {
	Collection string          `json:"collection"`
	Key        string          `json:"key"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Decode unmarshals the record data into v.
func (r *Record) Decode(v any) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", r.Collection, r.Key, err)
	}
	return nil
}

// Filter selects records of a collection for DeleteMany. The zero Filter
// matches every record.
type Filter struct {
	KeyContains string
}

// Match reports whether key passes the filter.
func (f Filter) Match(key string) bool {
	return f.KeyContains == "" || strings.Contains(key, f.KeyContains)
}

// DurableStore is the persistence contract of the durable tier.
type DurableStore interface {
	// FindOne returns ErrNotFound when the key is absent.
	FindOne(ctx context.Context, collection, key string) (*Record, error)

	// FindMany is the bulk lookup: one round trip for a set of keys.
	// Absent keys are simply missing from the result.
	FindMany(ctx context.Context, collection string, keys []string) ([]*Record, error)

	// Upsert stores data as JSON, refreshing UpdatedAt and keeping CreatedAt.
	Upsert(ctx context.Context, collection, key string, data any) error

	DeleteOne(ctx context.Context, collection, key string) (int, error)
	DeleteMany(ctx context.Context, collection string, filter Filter) (int, error)
	Count(ctx context.Context, collection string) (int, error)

	// Scan calls fn for every record of collection. Returning an error stops the scan.
	Scan(ctx context.Context, collection string, fn func(*Record) error) error

	Close() error
}

// Get loads and decodes one record, also returning its UpdatedAt.
func Get[T any](ctx context.Context, s DurableStore, collection, key string) (T, time.Time, error) {
	var v T
	rec, err := s.FindOne(ctx, collection, key)
	if err != nil {
		return v, time.Time{}, err
	}
	if err := rec.Decode(&v); err != nil {
		return v, time.Time{}, err
	}
	return v, rec.UpdatedAt, nil
}

// GetMany bulk-loads and decodes records keyed by record key. Records that
// fail to decode are skipped.
func GetMany[T any](ctx context.Context, s DurableStore, collection string, keys []string) (map[string]T, error) {
	recs, err := s.FindMany(ctx, collection, keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(recs))
	for _, rec := range recs {
		var v T
		if err := rec.Decode(&v); err != nil {
			continue
		}
		out[rec.Key] = v
	}
	return out, nil
}

// dedupe drops empty and repeated keys, keeping first-seen order.
func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func validateKey(collection, key string) error {
	if collection == "" || key == "" {
		return ErrInvalidKey
	}
	return nil
}
