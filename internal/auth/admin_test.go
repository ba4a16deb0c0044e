// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package auth

import (
	"context"
	"testing"

	"github.com/tomtom215/dinemap/internal/authz"
)

const testAdminKey = "k3y-for-admin-tests-0123456789abcdef"

func newTestEnforcer(t *testing.T) *authz.Enforcer {
	t.Helper()
	enforcer, err := authz.NewEnforcer(authz.DefaultEnforcerConfig())
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(enforcer.Close)
	return enforcer
}

func TestAdminAuthorizer_IsAdmin(t *testing.T) {
	t.Parallel()

	manager := newTestJWTManager(t)
	adminToken, err := manager.GenerateToken("ops", authz.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	viewerToken, err := manager.GenerateToken("dash", authz.RoleViewer)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	authorizer := NewAdminAuthorizer(testAdminKey, manager, newTestEnforcer(t))

	tests := []struct {
		name       string
		credential string
		want       bool
	}{
		{name: "admin key", credential: testAdminKey, want: true},
		{name: "admin key with whitespace", credential: "  " + testAdminKey + "\n", want: true},
		{name: "wrong key", credential: "not-the-key", want: false},
		{name: "key prefix", credential: testAdminKey[:10], want: false},
		{name: "empty", credential: "", want: false},
		{name: "admin bearer token", credential: "Bearer " + adminToken, want: true},
		{name: "viewer bearer token", credential: "Bearer " + viewerToken, want: false},
		{name: "garbage bearer token", credential: "Bearer abc.def.ghi", want: false},
		{name: "bare token without prefix", credential: adminToken, want: true},
		{name: "admin key as bearer", credential: "Bearer " + testAdminKey, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authorizer.IsAdmin(context.Background(), tt.credential)
			if err != nil {
				t.Fatalf("IsAdmin() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected IsAdmin=%v, got %v", tt.want, got)
			}
		})
	}
}

func TestAdminAuthorizer_KeyOnly(t *testing.T) {
	t.Parallel()

	authorizer := NewAdminAuthorizer(testAdminKey, nil, nil)

	if ok, _ := authorizer.IsAdmin(context.Background(), testAdminKey); !ok {
		t.Error("Expected admin key to be accepted")
	}
	if ok, _ := authorizer.IsAdmin(context.Background(), "Bearer whatever"); ok {
		t.Error("Expected bearer token to be refused without a JWT manager")
	}
}

func TestAdminAuthorizer_NothingConfigured(t *testing.T) {
	t.Parallel()

	authorizer := NewAdminAuthorizer("", nil, nil)

	for _, credential := range []string{"", "anything", "Bearer x"} {
		ok, err := authorizer.IsAdmin(context.Background(), credential)
		if err != nil {
			t.Errorf("Unexpected error for %q: %v", credential, err)
		}
		if ok {
			t.Errorf("Expected %q to be refused", credential)
		}
	}
}

func TestAdminAuthorizer_RoleGrantedAtRuntime(t *testing.T) {
	t.Parallel()

	manager := newTestJWTManager(t)
	enforcer := newTestEnforcer(t)
	authorizer := NewAdminAuthorizer("", manager, enforcer)

	token, err := manager.GenerateToken("oncall", "oncall")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if ok, _ := authorizer.IsAdmin(context.Background(), "Bearer "+token); ok {
		t.Fatal("Expected unknown role to be refused")
	}

	if _, err := enforcer.AddRoleForUser("oncall", authz.RoleAdmin); err != nil {
		t.Fatalf("AddRoleForUser() error = %v", err)
	}

	if ok, _ := authorizer.IsAdmin(context.Background(), "Bearer "+token); !ok {
		t.Error("Expected role inheriting admin to be accepted")
	}
}
