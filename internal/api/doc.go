// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

/*
Package api provides the HTTP surface of Dinemap.

Routes are served by a chi router (see SetupChi). Every JSON response uses
the APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "VALIDATION_ERROR", "message": "..."}}

Public endpoints:

  - POST /api/v1/batch and GET /api/v1/batch?names=a,b&include=rating,photo
  - GET /api/v1/home
  - GET /api/v1/ratings/{name}, /api/v1/photos/{name}, /api/v1/reviews/{name}
  - GET /api/v1/nearby?lat=&lng=&radius=&maxDistance=&limit=&brand=

Administrative endpoints accept a credential from the X-Admin-Key header,
an Authorization bearer token, or the key query parameter:

  - GET /api/v1/cache/stats, POST /api/v1/cache/stats
  - DELETE /api/v1/cache/invalidate, GET /api/v1/cache/invalidate
  - POST /api/v1/cache/refresh
  - GET /api/v1/cache/events (websocket)

Operational endpoints are /health and /metrics.

A lookup that finds nothing is a successful response with found=false.
Only malformed input (400) and rejected credentials (401/403) are
reported as errors to callers.
*/
package api
