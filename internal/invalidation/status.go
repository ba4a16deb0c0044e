// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package invalidation

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/dinemap/internal/store"
)

// RecordRef identifies one durable record by key and update time.
type RecordRef struct {
	Key       string    `json:"restaurantName"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CollectionStatus describes one durable collection.
type CollectionStatus struct {
	Count  int        `json:"count"`
	Oldest *RecordRef `json:"oldest,omitempty"`
	Newest *RecordRef `json:"newest,omitempty"`
}

// StatusReport is the durable-tier overview.
type StatusReport struct {
	Timestamp time.Time                 `json:"timestamp"`
	Cache     map[Type]CollectionStatus `json:"cache"`
}

// Status counts the invalidatable collections and finds the oldest and
// newest review records.
func (c *Controller) Status(ctx context.Context) (*StatusReport, error) {
	report := &StatusReport{
		Timestamp: c.now().UTC(),
		Cache:     make(map[Type]CollectionStatus, len(targets)),
	}

	for _, tg := range targets {
		callCtx, cancel := c.durableCtx(ctx)
		n, err := c.store.Count(callCtx, tg.collection)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", tg.collection, err)
		}
		report.Cache[tg.typ] = CollectionStatus{Count: n}
	}

	reviews := report.Cache[TypeReviews]
	scanCtx, cancel := c.durableCtx(ctx)
	defer cancel()
	err := c.store.Scan(scanCtx, store.CollectionReviews, func(rec *store.Record) error {
		if reviews.Oldest == nil || rec.UpdatedAt.Before(reviews.Oldest.UpdatedAt) {
			reviews.Oldest = &RecordRef{Key: rec.Key, UpdatedAt: rec.UpdatedAt}
		}
		if reviews.Newest == nil || rec.UpdatedAt.After(reviews.Newest.UpdatedAt) {
			reviews.Newest = &RecordRef{Key: rec.Key, UpdatedAt: rec.UpdatedAt}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", store.CollectionReviews, err)
	}
	report.Cache[TypeReviews] = reviews

	return report, nil
}
