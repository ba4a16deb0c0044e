// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package api

import (
	"net/http"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/tomtom215/dinemap/internal/logging"
	"github.com/tomtom215/dinemap/internal/websocket"
)

func (h *Handler) upgrader() gorilla.Upgrader {
	return gorilla.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkOrigin accepts browser connections from the configured origins.
// A missing Origin header is rejected.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Ctx(r.Context()).Warn().Msg("Event feed rejected: missing Origin header")
		return false
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Ctx(r.Context()).Warn().Str("origin", sanitizeLogValue(origin)).Msg("Event feed rejected: origin not allowed")
	return false
}

// CacheEvents handles GET /api/v1/cache/events.
//
// The connection is upgraded to a websocket after the admin credential is
// checked. Browsers cannot set headers on websocket requests, so the key
// query parameter is the usual credential here.
func (h *Handler) CacheEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.events == nil {
		rw.ServiceUnavailable("event feed is not enabled")
		return
	}
	if !h.authorize(rw, r) {
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Event feed upgrade failed")
		return
	}

	client := websocket.NewClient(h.events, conn)
	h.events.Register(client)
	client.Start()
}
