// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package websocket streams cache events to connected administrators.
//
// The Hub receives events through Publish and delivers them to every
// registered Client as JSON frames:
//
//	{"type":"invalidation","data":{...},"timestamp":"2026-03-01T12:00:00Z"}
//
// Event types:
//   - invalidation: a memory or durable invalidation completed
//   - refresh_completed: a review refresh run finished
//
// Clients may send {"type":"ping"} and receive {"type":"pong"}.
//
// Publish never blocks. When the queue is full events are dropped, and a
// client that cannot keep up is disconnected. The hub is run under the
// supervisor tree through RunWithContext.
package websocket
