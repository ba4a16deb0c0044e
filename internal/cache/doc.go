// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

/*
Package cache provides the in-memory tier of the restaurant guide.

# Overview

LRU is a generic, size-bounded cache with a per-entry time-to-live:
  - Get refreshes recency and removes expired entries lazily
  - Set evicts the least recently used entry when the cache is full
  - InvalidateByPattern removes every key containing a substring
  - Stats reports hits, misses, evictions and the current size

All methods are safe for concurrent use (sync.Mutex).

# Namespaces

Registry owns one LRU per attribute family:

	rating      models.Rating       5 minutes
	review      models.Reviews      1 hour
	image       models.Photo        24 hours
	restaurant  []models.Amenity    10 minutes

Keys are restaurant names for the first three namespaces and rounded
coordinate keys for the restaurant namespace. Registry.InvalidateEntity
drops one restaurant from every namespace at once.

# Usage Example

	reg := cache.NewRegistry(cache.DefaultRegistryConfig())
	reg.Ratings().Set("Din Tai Fung", models.Rating{Rating: 4.5})

	if r, ok := reg.Ratings().Get("Din Tai Fung"); ok {
	    fmt.Println(r.Rating)
	}

# Testing

WithClock injects a fake clock so expiry can be tested without sleeping.
*/
package cache
