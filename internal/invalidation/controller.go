// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package invalidation removes cached data on administrative request.
//
// Memory-only operations (InvalidateAll, InvalidateEntity) act on the
// cache registry. InvalidateByType also deletes durable records and is
// guarded: the caller's credential is checked before anything is touched,
// and an unknown type is rejected before anything is touched.
package invalidation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/dinemap/internal/apperrors"
	"github.com/tomtom215/dinemap/internal/cache"
	"github.com/tomtom215/dinemap/internal/logging"
	"github.com/tomtom215/dinemap/internal/metrics"
	"github.com/tomtom215/dinemap/internal/store"
)

// Type selects which durable collections InvalidateByType clears.
type Type string

const (
	TypeAll     Type = "all"
	TypeReviews Type = "reviews"
	TypeImages  Type = "images"
	TypePrices  Type = "prices"
)

// target binds a type to its durable collection and memory namespaces.
type target struct {
	typ        Type
	collection string
	namespaces []string
}

// targets is ordered; TypeAll walks it front to back.
// Ratings are derived from review records, so they go with reviews.
var targets = []target{
	{typ: TypeReviews, collection: store.CollectionReviews, namespaces: []string{cache.NamespaceReview, cache.NamespaceRating}},
	{typ: TypeImages, collection: store.CollectionImages, namespaces: []string{cache.NamespaceImage}},
	{typ: TypePrices, collection: store.CollectionPrices},
}

// ParseType validates s. An empty string means TypeAll.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return TypeAll, nil
	}
	switch t := Type(s); t {
	case TypeAll, TypeReviews, TypeImages, TypePrices:
		return t, nil
	}
	return "", apperrors.NewValidation("type", "must be one of all, reviews, images, prices (got %q)", s)
}

// Counts maps each cleared type to the number of durable records removed.
type Counts map[Type]int

// Authorizer decides whether a credential may perform administrative actions.
type Authorizer interface {
	IsAdmin(ctx context.Context, credential string) (bool, error)
}

// Notifier receives an Event after every completed invalidation.
//
// Satisfied by *websocket.Hub.
type Notifier interface {
	Publish(messageType string, data any)
}

// EventType is the message type used for invalidation events.
const EventType = "invalidation"

// Event scopes.
const (
	ScopeAll    = "all"
	ScopeEntity = "entity"
	ScopeType   = "type"
)

// Event describes one completed invalidation.
type Event struct {
	Scope   string `json:"scope"`
	Type    Type   `json:"type,omitempty"`
	Name    string `json:"name,omitempty"`
	Removed int    `json:"removed,omitempty"`
	Deleted Counts `json:"deleted,omitempty"`
}

// Controller performs cache invalidation.
type Controller struct {
	caches   *cache.Registry
	store    store.DurableStore
	authz    Authorizer
	notifier Notifier
	now      func() time.Time

	durableTimeout time.Duration
}

// NewController creates a controller over the process caches and durable store.
func NewController(caches *cache.Registry, st store.DurableStore, authz Authorizer) *Controller {
	return &Controller{
		caches: caches,
		store:  st,
		authz:  authz,
		now:    time.Now,
	}
}

// SetNotifier registers n to receive invalidation events. Call before
// serving requests.
func (c *Controller) SetNotifier(n Notifier) {
	c.notifier = n
}

// SetDurableTimeout bounds each durable call. Zero disables the bound.
func (c *Controller) SetDurableTimeout(d time.Duration) {
	c.durableTimeout = d
}

// durableCtx derives the context of one durable call.
func (c *Controller) durableCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.durableTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.durableTimeout)
}

func (c *Controller) notify(e Event) {
	if c.notifier != nil {
		c.notifier.Publish(EventType, e)
	}
}

// Authorize returns an AuthorizationError unless credential is an admin credential.
func (c *Controller) Authorize(ctx context.Context, credential string) error {
	if c.authz == nil {
		return &apperrors.AuthorizationError{Reason: "administration disabled"}
	}
	ok, err := c.authz.IsAdmin(ctx, credential)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Admin check failed")
		return &apperrors.AuthorizationError{Reason: "credential could not be verified"}
	}
	if !ok {
		return &apperrors.AuthorizationError{Reason: "invalid credential"}
	}
	return nil
}

// InvalidateAll empties every memory namespace.
func (c *Controller) InvalidateAll() {
	c.caches.ClearAll()
	metrics.Invalidations.WithLabelValues("all").Inc()
	logging.Info().Msg("All memory caches invalidated")
	c.notify(Event{Scope: ScopeAll})
}

// InvalidateEntity removes every memory key mentioning name and returns
// how many were removed. Keys that merely contain name are removed too.
func (c *Controller) InvalidateEntity(name string) int {
	if name == "" {
		return 0
	}
	removed := c.caches.InvalidateEntity(name)
	metrics.Invalidations.WithLabelValues("entity").Inc()
	logging.Info().Str("name", name).Int("removed", removed).Msg("Entity invalidated")
	c.notify(Event{Scope: ScopeEntity, Name: name, Removed: removed})
	return removed
}

// InvalidateByType deletes durable records of the selected type, then the
// matching memory entries. With a name only that restaurant's record is
// removed; without one the whole collection is.
//
// Authorization and type validation both happen before any mutation.
func (c *Controller) InvalidateByType(ctx context.Context, credential, typ, name string) (Counts, error) {
	if err := c.Authorize(ctx, credential); err != nil {
		return nil, err
	}

	t, err := ParseType(typ)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	counts := make(Counts)
	for _, tg := range targets {
		if t != TypeAll && t != tg.typ {
			continue
		}

		var n int
		callCtx, cancel := c.durableCtx(ctx)
		if name != "" {
			n, err = c.store.DeleteOne(callCtx, tg.collection, name)
		} else {
			n, err = c.store.DeleteMany(callCtx, tg.collection, store.Filter{})
		}
		cancel()
		if err != nil {
			return counts, &apperrors.DependencyError{
				Tier: "durable",
				Err:  fmt.Errorf("delete from %s: %w", tg.collection, err),
			}
		}
		counts[tg.typ] = n
		metrics.DurableDeletes.WithLabelValues(tg.collection).Add(float64(n))

		c.clearNamespaces(tg.namespaces, name)
	}

	metrics.Invalidations.WithLabelValues("type_" + string(t)).Inc()
	logging.Ctx(ctx).Info().
		Str("type", string(t)).
		Str("name", name).
		Interface("deleted", counts).
		Msg("Cache invalidated")
	c.notify(Event{Scope: ScopeType, Type: t, Name: name, Deleted: counts})

	return counts, nil
}

func (c *Controller) clearNamespaces(names []string, entity string) {
	for _, n := range names {
		ns, ok := c.caches.Namespace(n)
		if !ok {
			continue
		}
		if entity == "" {
			ns.Clear()
		} else {
			ns.InvalidateByPattern(entity)
		}
	}
}

// Stats reports every memory namespace and refreshes the entry gauges.
func (c *Controller) Stats() map[string]cache.Stats {
	stats := c.caches.Stats()
	sizes := make(map[string]int, len(stats))
	for name, s := range stats {
		sizes[name] = s.Size
	}
	metrics.UpdateCacheEntries(sizes)
	return stats
}
