// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package api

import (
	"context"
	"time"

	"github.com/tomtom215/dinemap/internal/batch"
	"github.com/tomtom215/dinemap/internal/cache"
	"github.com/tomtom215/dinemap/internal/invalidation"
	"github.com/tomtom215/dinemap/internal/models"
	"github.com/tomtom215/dinemap/internal/proximity"
	"github.com/tomtom215/dinemap/internal/refresh"
	"github.com/tomtom215/dinemap/internal/tiered"
	"github.com/tomtom215/dinemap/internal/websocket"
)

// GuideService answers per-restaurant attribute lookups.
type GuideService interface {
	Rating(ctx context.Context, name string) tiered.Result[models.Rating]
	Photo(ctx context.Context, name string) tiered.Result[models.Photo]
	Reviews(ctx context.Context, name string) tiered.Result[models.Reviews]
	Batch(ctx context.Context, req batch.Request) (batch.Result, error)
	Home(ctx context.Context) (models.Home, bool, error)
}

// NearbyService ranks amenities around a point.
type NearbyService interface {
	NearbyAmenities(ctx context.Context, q proximity.Query) (*proximity.Result, error)
}

// CacheAdmin is the invalidation controller as seen by the handlers.
type CacheAdmin interface {
	Authorize(ctx context.Context, credential string) error
	InvalidateAll()
	InvalidateEntity(name string) int
	InvalidateByType(ctx context.Context, credential, typ, name string) (invalidation.Counts, error)
	Stats() map[string]cache.Stats
	Status(ctx context.Context) (*invalidation.StatusReport, error)
}

// ReviewRefresher runs one review refresh pass.
type ReviewRefresher interface {
	RunOnce(ctx context.Context) (*refresh.Report, error)
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_guide.go: batch, home aggregate and single attribute lookups
//   - handlers_nearby.go: proximity search
//   - handlers_cache.go: stats, invalidation, status and refresh
//   - handlers_events.go: websocket cache event feed
//   - handlers_health.go: liveness
type Handler struct {
	guide     GuideService
	nearby    NearbyService
	admin     CacheAdmin
	refresher ReviewRefresher
	startTime time.Time

	events         *websocket.Hub
	allowedOrigins []string
}

// NewHandler creates a handler. refresher may be nil, in which case the
// refresh route answers 503.
func NewHandler(guide GuideService, nearby NearbyService, admin CacheAdmin, refresher ReviewRefresher) *Handler {
	return &Handler{
		guide:     guide,
		nearby:    nearby,
		admin:     admin,
		refresher: refresher,
		startTime: time.Now(),
	}
}

// SetEventHub enables the cache event feed. Browser connections must come
// from one of allowedOrigins; "*" allows any origin.
func (h *Handler) SetEventHub(hub *websocket.Hub, allowedOrigins []string) {
	h.events = hub
	h.allowedOrigins = allowedOrigins
}
