// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/dinemap/config.yaml",
	"/etc/dinemap/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Cache: CacheConfig{
			Rating:          NamespaceConfig{MaxSize: 1000, TTL: 5 * time.Minute},
			Review:          NamespaceConfig{MaxSize: 500, TTL: time.Hour},
			Image:           NamespaceConfig{MaxSize: 500, TTL: 24 * time.Hour},
			Restaurant:      NamespaceConfig{MaxSize: 200, TTL: 10 * time.Minute},
			ReviewStaleness: 24 * time.Hour,
			RatingStaleness: 24 * time.Hour,
			ImageStaleness:  0, // photo links do not go stale
			DurableTimeout:  3 * time.Second,
			ExternalTimeout: 10 * time.Second,
			SingleFlight:    false,
			Home: HomeConfig{
				Popular: []string{"鼎泰豐 (본점)", "阜杭豆漿", "永康牛肉麵", "金峰滷肉飯", "RAW"},
				Markets: []string{"士林夜市", "饒河街夜市", "寧夏夜市", "通化夜市", "公館夜市"},
				TTL:     5 * time.Minute,
			},
		},
		Store: StoreConfig{
			Backend:    StoreBackendBadger,
			BadgerPath: "/data/dinemap",
		},
		Places: PlacesConfig{
			BaseURL:          "https://maps.googleapis.com/maps/api/place",
			Timeout:          10 * time.Second,
			RateLimit:        10,
			RateBurst:        20,
			QuerySuffix:      " Taiwan",
			Language:         "ko",
			PhotoMaxWidth:    400,
			PlaceIDCacheSize: 1000,
		},
		Security: SecurityConfig{
			SessionTimeout:  24 * time.Hour,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Refresh: RefreshConfig{
			Enabled:    false,
			Interval:   24 * time.Hour,
			BatchSize:  10,
			BatchDelay: 2 * time.Second,
		},
		Proximity: ProximityConfig{
			DefaultRadius: 3000,
			DefaultLimit:  5,
			Brands: []BrandConfig{
				{Name: "familymart", Source: BrandSourceLive, PlaceType: "convenience_store", Keyword: "FamilyMart"},
				{Name: "seven-eleven", Source: BrandSourceDurable},
			},
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Cache
	"cache_rating_max_size":     "cache.rating.max_size",
	"cache_rating_ttl":          "cache.rating.ttl",
	"cache_review_max_size":     "cache.review.max_size",
	"cache_review_ttl":          "cache.review.ttl",
	"cache_image_max_size":      "cache.image.max_size",
	"cache_image_ttl":           "cache.image.ttl",
	"cache_restaurant_max_size": "cache.restaurant.max_size",
	"cache_restaurant_ttl":      "cache.restaurant.ttl",
	"cache_review_staleness":    "cache.review_staleness",
	"cache_rating_staleness":    "cache.rating_staleness",
	"cache_image_staleness":     "cache.image_staleness",
	"cache_durable_timeout":     "cache.durable_timeout",
	"cache_external_timeout":    "cache.external_timeout",
	"cache_single_flight":       "cache.single_flight",

	// Store
	"store_backend":      "store.backend",
	"badger_path":        "store.badger_path",
	"badger_in_memory":   "store.badger_in_memory",
	"badger_sync_writes": "store.badger_sync_writes",
	"dynamodb_table":     "store.dynamodb_table",
	"dynamodb_region":    "store.dynamodb_region",
	"dynamodb_endpoint":  "store.dynamodb_endpoint",

	// Places
	"google_places_api_key":      "places.api_key",
	"places_base_url":            "places.base_url",
	"places_timeout":             "places.timeout",
	"places_rate_limit":          "places.rate_limit",
	"places_rate_burst":          "places.rate_burst",
	"places_query_suffix":        "places.query_suffix",
	"places_language":            "places.language",
	"places_photo_max_width":     "places.photo_max_width",
	"places_place_id_cache_size": "places.place_id_cache_size",

	// Security
	"admin_key":           "security.admin_key",
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"authz_policy_path":   "security.authz_policy_path",

	// Refresh
	"refresh_enabled":     "refresh.enabled",
	"refresh_interval":    "refresh.interval",
	"refresh_batch_size":  "refresh.batch_size",
	"refresh_batch_delay": "refresh.batch_delay",

	// Proximity
	"proximity_default_radius": "proximity.default_radius",
	"proximity_default_limit":  "proximity.default_limit",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - GOOGLE_PLACES_API_KEY -> places.api_key
//   - STORE_BACKEND -> store.backend
//
// Unmapped keys return "" and are skipped, so unrelated environment
// variables never leak into the configuration.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
