// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

/*
Package config loads and validates the service configuration.

# Configuration Sources

Sources are layered with Koanf v2, later layers winning:
  - Built-in defaults (defaultConfig)
  - Optional YAML file: CONFIG_PATH, ./config.yaml or /etc/dinemap/config.yaml
  - Environment variables, through an explicit name mapping

Unmapped environment variables are ignored.

# Sections

  - server: listen address, timeouts, environment
  - logging: level, format, caller
  - cache: namespace sizes and TTLs, staleness windows, tier timeouts
  - store: durable backend (badger or dynamodb)
  - places: Google Places API client
  - security: admin key, JWT, CORS, request rate limit
  - refresh: periodic review refresher
  - proximity: nearby search defaults and brands

# Example

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(cfg.Server.Port, cfg.Store.Backend)
*/
package config
