// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomtom215/dinemap/internal/apperrors"
	"github.com/tomtom215/dinemap/internal/auth"
	"github.com/tomtom215/dinemap/internal/config"
	"github.com/tomtom215/dinemap/internal/guide"
	"github.com/tomtom215/dinemap/internal/invalidation"
	"github.com/tomtom215/dinemap/internal/places"
	"github.com/tomtom215/dinemap/internal/proximity"
	"github.com/tomtom215/dinemap/internal/refresh"
	"github.com/tomtom215/dinemap/internal/store"
)

// errNoPlacesKey is returned by commands that must reach the Places API.
var errNoPlacesKey = errors.New("PLACES_API_KEY is not configured")

// localOperator grants administration to whoever can open the store.
type localOperator struct{}

func (localOperator) IsAdmin(context.Context, string) (bool, error) { return true, nil }

const operatorCredential = "local-operator"

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show durable collection counts and review freshness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd, func(ctx context.Context, cfg *config.Config, st store.DurableStore) error {
				controller := invalidation.NewController(guide.NewRegistry(cfg.Cache), st, localOperator{})
				controller.SetDurableTimeout(cfg.Cache.DurableTimeout)
				report, err := controller.Status(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func (c *cli) invalidateCmd() *cobra.Command {
	var typ, name string

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Delete durable records by type, optionally for one restaurant",
		Example: `  dinemapctl invalidate --type all
  dinemapctl invalidate --type reviews --name "Din Tai Fung"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd, func(ctx context.Context, cfg *config.Config, st store.DurableStore) error {
				controller := invalidation.NewController(guide.NewRegistry(cfg.Cache), st, localOperator{})
				controller.SetDurableTimeout(cfg.Cache.DurableTimeout)
				counts, err := controller.InvalidateByType(ctx, operatorCredential, typ, name)
				if apperrors.IsValidation(err) {
					return fmt.Errorf("invalid --type: %w", err)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"deleted": counts})
			})
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", string(invalidation.TypeAll), "all, reviews, images or prices")
	cmd.Flags().StringVarP(&name, "name", "n", "", "restaurant name (default: every record of the type)")
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	var user, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the cache administration routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.setup(cmd)
			if err != nil {
				return err
			}
			if strings.TrimSpace(user) == "" {
				return errors.New("--user is required")
			}
			manager, err := auth.NewJWTManager(&cfg.Security)
			if err != nil {
				return err
			}
			token, err := manager.GenerateToken(user, role)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "subject of the token")
	cmd.Flags().StringVarP(&role, "role", "r", "admin", "role checked by the authorization policy")
	return cmd
}

func (c *cli) syncAmenitiesCmd() *cobra.Command {
	var brand string

	cmd := &cobra.Command{
		Use:   "sync-amenities",
		Short: "Search a brand around the seed districts and store the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd, func(ctx context.Context, cfg *config.Config, st store.DurableStore) error {
				if cfg.Places.APIKey == "" {
					return errNoPlacesKey
				}
				caches := guide.NewRegistry(cfg.Cache)
				svc := proximity.NewService(st, places.New(&cfg.Places, nil), caches.Restaurants(), cfg.Proximity,
					proximity.WithDurableTimeout(cfg.Cache.DurableTimeout))

				written, err := svc.SyncBrand(ctx, brand, nil)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"brand": brand, "written": written})
			})
		},
	}
	cmd.Flags().StringVarP(&brand, "brand", "b", "", "brand name from the proximity configuration")
	_ = cmd.MarkFlagRequired("brand")
	return cmd
}

func (c *cli) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh every restaurant's reviews from the Places API once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd, func(ctx context.Context, cfg *config.Config, st store.DurableStore) error {
				if cfg.Places.APIKey == "" {
					return errNoPlacesKey
				}
				caches := guide.NewRegistry(cfg.Cache)
				svc := guide.NewService(st, places.New(&cfg.Places, nil), caches, cfg.Cache)

				report, err := refresh.New(svc, cfg.Refresh).RunOnce(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}
