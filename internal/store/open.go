// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package store

import (
	"context"
	"fmt"

	"github.com/tomtom215/dinemap/internal/config"
)

// Backend names accepted by Open.
const (
	BackendBadger   = "badger"
	BackendDynamoDB = "dynamodb"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Badger  BadgerConfig
	Dynamo  DynamoConfig
}

// Open builds the configured DurableStore.
func Open(ctx context.Context, cfg Config) (DurableStore, error) {
	switch cfg.Backend {
	case BackendBadger, "":
		return OpenBadger(cfg.Badger)
	case BackendDynamoDB:
		return OpenDynamo(ctx, cfg.Dynamo)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// ConfigFrom maps application settings onto a store Config.
func ConfigFrom(cfg *config.StoreConfig) Config {
	return Config{
		Backend: cfg.Backend,
		Badger: BadgerConfig{
			Path:       cfg.BadgerPath,
			InMemory:   cfg.BadgerInMemory,
			SyncWrites: cfg.BadgerSyncWrites,
		},
		Dynamo: DynamoConfig{
			Table:    cfg.DynamoTable,
			Region:   cfg.DynamoRegion,
			Endpoint: cfg.DynamoEndpoint,
		},
	}
}
