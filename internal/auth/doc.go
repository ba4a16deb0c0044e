// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package auth authenticates administrative callers.
//
// Two credentials are accepted:
//   - the shared admin key (ADMIN_KEY), compared in constant time
//   - an HS256 JWT signed with JWT_SECRET whose role the Casbin policy
//     allows to invalidate the cache
//
// AdminAuthorizer combines both behind IsAdmin, which the invalidation
// controller calls before touching any cache.
package auth
