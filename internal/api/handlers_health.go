// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package api

import (
	"net/http"
	"time"
)

// Health handles GET /health. It reports liveness only; dependency
// outages degrade individual lookups rather than the process.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status": "healthy",
		"uptime": time.Since(h.startTime).Seconds(),
	})
}
