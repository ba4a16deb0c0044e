// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package authz decides what a role may do, using Casbin RBAC.
//
// # RBAC Model
//
//	[request_definition]
//	r = sub, obj, act
//
//	[policy_definition]
//	p = sub, obj, act
//
//	[role_definition]
//	g = _, _
//
//	[matchers]
//	m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
//
// # Default Policy
//
//	viewer: stats/read
//	admin:  cache/invalidate, cache/refresh, status/read (+ viewer)
//
// The model and policy are embedded; EnforcerConfig can point at files
// instead, in which case the policy can be reloaded at runtime.
package authz
