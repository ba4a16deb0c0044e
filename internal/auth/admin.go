// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/tomtom215/dinemap/internal/authz"
	"github.com/tomtom215/dinemap/internal/logging"
)

// bearerPrefix marks a JWT credential.
const bearerPrefix = "Bearer "

// AdminAuthorizer decides whether a credential grants administrative access.
type AdminAuthorizer struct {
	adminKey []byte
	jwt      *JWTManager
	enforcer *authz.Enforcer
}

// NewAdminAuthorizer creates an authorizer. adminKey may be empty to
// disable key access; jwt and enforcer may both be nil to disable token
// access. With neither configured every credential is refused.
func NewAdminAuthorizer(adminKey string, jwt *JWTManager, enforcer *authz.Enforcer) *AdminAuthorizer {
	a := &AdminAuthorizer{jwt: jwt, enforcer: enforcer}
	if adminKey != "" {
		a.adminKey = []byte(adminKey)
	}
	return a
}

// IsAdmin reports whether credential is the admin key or a valid bearer
// token whose role may invalidate the cache. A bad credential is (false, nil);
// an error means the decision itself could not be made.
func (a *AdminAuthorizer) IsAdmin(ctx context.Context, credential string) (bool, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return false, nil
	}

	token, isBearer := strings.CutPrefix(credential, bearerPrefix)
	if !isBearer && a.adminKey != nil &&
		subtle.ConstantTimeCompare([]byte(credential), a.adminKey) == 1 {
		return true, nil
	}

	if a.jwt == nil || a.enforcer == nil {
		return false, nil
	}

	claims, err := a.jwt.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Rejected admin token")
		return false, nil
	}

	allowed, err := a.enforcer.Enforce(claims.Role, authz.ObjectCache, authz.ActionInvalidate)
	if err != nil {
		return false, err
	}
	if allowed {
		logging.Ctx(ctx).Info().Str("username", claims.Username).Str("role", claims.Role).Msg("Admin access granted")
	}
	return allowed, nil
}
