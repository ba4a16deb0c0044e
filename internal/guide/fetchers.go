// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package guide

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/dinemap/internal/places"
	"github.com/tomtom215/dinemap/internal/store"
	"github.com/tomtom215/dinemap/internal/tiered"
)

// durableDoc reads one document of collection, treating ErrNotFound as a
// plain miss.
func durableDoc[T any](st store.DurableStore, collection string) tiered.DurableFetch[T] {
	return func(ctx context.Context, key string) (T, time.Time, bool, error) {
		v, updatedAt, err := store.Get[T](ctx, st, collection, key)
		switch {
		case err == nil:
			return v, updatedAt, true, nil
		case errors.Is(err, store.ErrNotFound):
			return v, time.Time{}, false, nil
		default:
			return v, time.Time{}, false, err
		}
	}
}

// derived projects a durable fetch of one type into another.
func derived[S, T any](fetch tiered.DurableFetch[S], project func(S) T) tiered.DurableFetch[T] {
	return func(ctx context.Context, key string) (T, time.Time, bool, error) {
		var zero T
		v, updatedAt, found, err := fetch(ctx, key)
		if err != nil || !found {
			return zero, updatedAt, found, err
		}
		return project(v), updatedAt, true, nil
	}
}

// upstream adapts a places call; places.ErrNotFound becomes a clean miss.
func upstream[T any](fetch func(ctx context.Context, name string) (T, error)) tiered.ExternalFetch[T] {
	return func(ctx context.Context, key string) (T, bool, error) {
		v, err := fetch(ctx, key)
		switch {
		case err == nil:
			return v, true, nil
		case errors.Is(err, places.ErrNotFound):
			return v, false, nil
		default:
			return v, false, err
		}
	}
}

// persist writes values to collection, skipping those keep rejects.
func persist[T any](st store.DurableStore, collection string, keep func(T) bool) tiered.DurableWrite[T] {
	return func(ctx context.Context, key string, value T) error {
		if keep != nil && !keep(value) {
			return nil
		}
		return st.Upsert(ctx, collection, key, value)
	}
}
