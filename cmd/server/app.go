// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/dinemap/internal/api"
	"github.com/tomtom215/dinemap/internal/auth"
	"github.com/tomtom215/dinemap/internal/authz"
	"github.com/tomtom215/dinemap/internal/config"
	"github.com/tomtom215/dinemap/internal/guide"
	"github.com/tomtom215/dinemap/internal/invalidation"
	"github.com/tomtom215/dinemap/internal/logging"
	"github.com/tomtom215/dinemap/internal/places"
	"github.com/tomtom215/dinemap/internal/proximity"
	"github.com/tomtom215/dinemap/internal/refresh"
	"github.com/tomtom215/dinemap/internal/store"
	"github.com/tomtom215/dinemap/internal/websocket"
)

// app is the component graph of one server process.
type app struct {
	store     store.DurableStore
	enforcer  *authz.Enforcer
	refresher *refresh.Refresher
	events    *websocket.Hub
	handler   http.Handler
}

// newApp builds every component from cfg. The caller owns the result and
// must call close.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := store.Open(ctx, store.ConfigFrom(&cfg.Store))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &app{store: st}

	// Interface values stay nil without an API key, so the guide and the
	// proximity engine fall back to their durable tiers.
	var (
		external guide.External
		live     proximity.NearbySource
	)
	if cfg.Places.APIKey != "" {
		client := places.New(&cfg.Places, nil)
		external, live = client, client
	} else {
		logging.Warn().Msg("PLACES_API_KEY not set, upstream lookups disabled")
	}

	caches := guide.NewRegistry(cfg.Cache)
	guideSvc := guide.NewService(st, external, caches, cfg.Cache)
	nearbySvc := proximity.NewService(st, live, caches.Restaurants(), cfg.Proximity,
		proximity.WithDurableTimeout(cfg.Cache.DurableTimeout))

	admin, err := a.newAuthorizer(&cfg.Security)
	if err != nil {
		a.close()
		return nil, err
	}
	controller := invalidation.NewController(caches, st, admin)
	controller.SetDurableTimeout(cfg.Cache.DurableTimeout)
	a.refresher = refresh.New(guideSvc, cfg.Refresh)

	a.events = websocket.NewHub()
	controller.SetNotifier(a.events)
	a.refresher.SetNotifier(a.events)

	handler := api.NewHandler(guideSvc, nearbySvc, controller, a.refresher)
	handler.SetEventHub(a.events, cfg.Security.CORSOrigins)
	mw := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security))
	a.handler = api.NewRouter(handler, mw).SetupChi()

	return a, nil
}

// newAuthorizer accepts the admin key and, when a JWT secret is set,
// bearer tokens whose role the policy allows.
func (a *app) newAuthorizer(sec *config.SecurityConfig) (*auth.AdminAuthorizer, error) {
	if sec.JWTSecret == "" {
		return auth.NewAdminAuthorizer(sec.AdminKey, nil, nil), nil
	}

	jwtManager, err := auth.NewJWTManager(sec)
	if err != nil {
		return nil, fmt.Errorf("create JWT manager: %w", err)
	}
	enforcerCfg := authz.DefaultEnforcerConfig()
	if sec.AuthzPolicyPath != "" {
		enforcerCfg.PolicyPath = sec.AuthzPolicyPath
		enforcerCfg.AutoReload = true
	}
	enforcer, err := authz.NewEnforcer(enforcerCfg)
	if err != nil {
		return nil, fmt.Errorf("create authorization enforcer: %w", err)
	}
	a.enforcer = enforcer
	return auth.NewAdminAuthorizer(sec.AdminKey, jwtManager, enforcer), nil
}

// httpServer wraps the router with the configured timeouts.
func (a *app) httpServer(cfg *config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.handler,
		ReadTimeout:       cfg.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Timeout,
		IdleTimeout:       60 * time.Second,
	}
}

func (a *app) close() error {
	if a.enforcer != nil {
		a.enforcer.Close()
	}
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
