// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/dinemap/internal/config"
	"github.com/tomtom215/dinemap/internal/logging"
	"github.com/tomtom215/dinemap/internal/store"
)

// loader produces the configuration a command runs with.
type loader func() (*config.Config, error)

// cli holds state shared by every subcommand.
type cli struct {
	load       loader
	configFile string
	verbose    bool
}

// newRootCmd builds the command tree. A nil load reads configuration the
// way the server does.
func newRootCmd(load loader) *cobra.Command {
	c := &cli{load: load}
	if c.load == nil {
		c.load = c.loadFromEnv
	}

	root := &cobra.Command{
		Use:           "dinemapctl",
		Short:         "Administer the Dinemap durable cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default: CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		c.statusCmd(),
		c.invalidateCmd(),
		c.tokenCmd(),
		c.syncAmenitiesCmd(),
		c.refreshCmd(),
	)
	return root
}

func (c *cli) loadFromEnv() (*config.Config, error) {
	if c.configFile != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, c.configFile); err != nil {
			return nil, fmt.Errorf("set config path: %w", err)
		}
	}
	return config.Load()
}

// setup loads configuration and points logging at stderr so stdout only
// carries command output.
func (c *cli) setup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := c.load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	level := "warn"
	if c.verbose {
		level = "debug"
	}
	logging.Init(logging.Config{
		Level:  level,
		Format: "console",
		Output: cmd.ErrOrStderr(),
	})
	return cfg, nil
}

// withStore opens the configured store for the duration of fn.
func (c *cli) withStore(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, st store.DurableStore) error) error {
	cfg, err := c.setup(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(ctx, store.ConfigFrom(&cfg.Store))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Error closing store")
		}
	}()

	return fn(ctx, cfg, st)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
