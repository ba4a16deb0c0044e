// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

/*
Package models defines the data structures shared by the cache tiers, the
durable store and the HTTP API.

Key Components:

  - Rating, Photo, Reviews: the per-restaurant attributes that are cached
  - Restaurant, Amenity: guide entries and nearby stores with coordinates
  - Price: recorded price information
  - AttributeKind: the attribute selector used by batch lookups

JSON tags follow the wire format of the public API. Review fields keep the
snake_case names of the upstream Places payload.
*/
package models
