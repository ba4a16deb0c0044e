// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package supervisor runs the long-lived parts of the server under a
// suture supervision tree.
//
// Tree layout:
//
//	dinemap (root)
//	├── cache-layer   review refresher, websocket event hub
//	└── api-layer     HTTP server
//
// A crashing refresher is restarted with backoff without disturbing the
// API layer. Supervisor events are logged through sutureslog into the
// zerolog bridge from internal/logging.
//
// Service wrappers live in the services subpackage.
package supervisor
