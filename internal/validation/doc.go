// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package validation checks HTTP request payloads with go-playground/validator v10.
//
// The validator is a process-wide singleton so struct metadata is parsed
// once. Field names in error messages come from the json tag, so a client
// sees the same name it sent:
//
//	var req validation.BatchRequest
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    // respond 400 with apiErr.Code and apiErr.Message
//	}
//
// # Custom Tags
//
//   - notblank: string must contain a non-space character
//   - attrkind: string must name an attribute kind (rating, photo, reviews)
//
// Request types for every route that takes input live in requests.go.
package validation
