// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package main is the entry point for the Dinemap server.
//
// Dinemap serves restaurant ratings, photos and reviews through a memory
// cache, a durable store and the Google Places API, and ranks nearby
// amenities around a point.
//
// # Startup
//
//  1. Configuration: defaults, optional config.yaml, environment (Koanf v2)
//  2. Logging: zerolog, with an slog bridge for the supervisor
//  3. Store: BadgerDB (default) or DynamoDB
//  4. Places client, when PLACES_API_KEY is set
//  5. Caches, guide service, proximity engine, invalidation controller
//  6. Supervisor tree: HTTP server, cache event hub, and the review
//     refresher when enabled
//
// # Configuration
//
// Common environment variables:
//
//	HTTP_PORT=8080
//	STORE_BACKEND=badger            # or dynamodb
//	BADGER_PATH=/data/badger
//	PLACES_API_KEY=...
//	ADMIN_KEY=...                   # cache administration
//	JWT_SECRET=...                  # optional bearer tokens
//	AUTHZ_POLICY_PATH=policy.csv    # role policy for bearer tokens
//	REFRESH_ENABLED=true
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. In-flight requests get ten
// seconds to finish, then the store is closed.
package main
