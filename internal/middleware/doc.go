// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package middleware provides HTTP middleware shared by the API router.
//
// Every middleware has the http.HandlerFunc-wrapping shape so it can be
// used with a plain mux or adapted for chi:
//
//	handler := middleware.RequestID(middleware.PrometheusMetrics(mux.ServeHTTP))
//
// # Middleware
//
//   - RequestID: accepts or generates X-Request-ID and seeds the logging context
//   - PrometheusMetrics: request count, latency and in-flight gauge per route pattern
//   - Compression: gzip for clients that accept it, started on first body write
package middleware
