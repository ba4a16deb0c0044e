// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package cache

import (
	"sort"
	"time"

	"github.com/tomtom215/dinemap/internal/models"
)

// Namespace names as reported by Registry.Stats.
const (
	NamespaceRating     = "rating"
	NamespaceReview     = "review"
	NamespaceImage      = "image"
	NamespaceRestaurant = "restaurant"
)

// Namespace is the type-independent view of a cache used for
// administration and reporting.
type Namespace interface {
	Clear()
	InvalidateByPattern(substr string) int
	Len() int
	Stats() Stats
}

// NamespaceConfig sizes one namespace.
type NamespaceConfig struct {
	MaxSize int
	TTL     time.Duration
}

// RegistryConfig sizes every namespace of a Registry.
type RegistryConfig struct {
	Rating     NamespaceConfig
	Review     NamespaceConfig
	Image      NamespaceConfig
	Restaurant NamespaceConfig
}

// DefaultRegistryConfig returns the production namespace sizes.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Rating:     NamespaceConfig{MaxSize: 1000, TTL: 5 * time.Minute},
		Review:     NamespaceConfig{MaxSize: 500, TTL: time.Hour},
		Image:      NamespaceConfig{MaxSize: 500, TTL: 24 * time.Hour},
		Restaurant: NamespaceConfig{MaxSize: 200, TTL: 10 * time.Minute},
	}
}

// Registry owns the in-memory caches of one process. It is built once at
// startup and handed to every component that reads or invalidates them.
type Registry struct {
	ratings     *LRU[models.Rating]
	reviews     *LRU[models.Reviews]
	images      *LRU[models.Photo]
	restaurants *LRU[[]models.Amenity]

	byName map[string]Namespace
}

// NewRegistry builds all namespaces from cfg.
func NewRegistry(cfg RegistryConfig, opts ...Option) *Registry {
	r := &Registry{
		ratings:     NewLRU[models.Rating](cfg.Rating.MaxSize, cfg.Rating.TTL, opts...),
		reviews:     NewLRU[models.Reviews](cfg.Review.MaxSize, cfg.Review.TTL, opts...),
		images:      NewLRU[models.Photo](cfg.Image.MaxSize, cfg.Image.TTL, opts...),
		restaurants: NewLRU[[]models.Amenity](cfg.Restaurant.MaxSize, cfg.Restaurant.TTL, opts...),
	}
	r.byName = map[string]Namespace{
		NamespaceRating:     r.ratings,
		NamespaceReview:     r.reviews,
		NamespaceImage:      r.images,
		NamespaceRestaurant: r.restaurants,
	}
	return r
}

// Ratings returns the rating namespace.
func (r *Registry) Ratings() *LRU[models.Rating] { return r.ratings }

// Reviews returns the review namespace.
func (r *Registry) Reviews() *LRU[models.Reviews] { return r.reviews }

// Images returns the photo namespace.
func (r *Registry) Images() *LRU[models.Photo] { return r.images }

// Restaurants returns the namespace holding live nearby candidate sets.
func (r *Registry) Restaurants() *LRU[[]models.Amenity] { return r.restaurants }

// Namespace looks up a namespace by name.
func (r *Registry) Namespace(name string) (Namespace, bool) {
	ns, ok := r.byName[name]
	return ns, ok
}

// Names returns the namespace names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClearAll empties every namespace.
func (r *Registry) ClearAll() {
	for _, ns := range r.byName {
		ns.Clear()
	}
}

// InvalidateEntity removes every key mentioning name from every namespace
// and returns the total removed.
func (r *Registry) InvalidateEntity(name string) int {
	removed := 0
	for _, ns := range r.byName {
		removed += ns.InvalidateByPattern(name)
	}
	return removed
}

// Stats reports every namespace keyed by name.
func (r *Registry) Stats() map[string]Stats {
	out := make(map[string]Stats, len(r.byName))
	for name, ns := range r.byName {
		out[name] = ns.Stats()
	}
	return out
}
