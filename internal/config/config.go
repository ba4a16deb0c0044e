// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Cache     CacheConfig     `koanf:"cache"`
	Store     StoreConfig     `koanf:"store"`
	Places    PlacesConfig    `koanf:"places"`
	Security  SecurityConfig  `koanf:"security"`
	Refresh   RefreshConfig   `koanf:"refresh"`
	Proximity ProximityConfig `koanf:"proximity"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// NamespaceConfig sizes one in-memory cache namespace.
type NamespaceConfig struct {
	MaxSize int           `koanf:"max_size"`
	TTL     time.Duration `koanf:"ttl"`
}

// CacheConfig configures the in-memory tier and the tiered lookups.
type CacheConfig struct {
	Rating     NamespaceConfig `koanf:"rating"`
	Review     NamespaceConfig `koanf:"review"`
	Image      NamespaceConfig `koanf:"image"`
	Restaurant NamespaceConfig `koanf:"restaurant"`

	// Maximum age of a durable record before the external API is asked
	// again. Zero means durable records never go stale.
	ReviewStaleness time.Duration `koanf:"review_staleness"`
	RatingStaleness time.Duration `koanf:"rating_staleness"`
	ImageStaleness  time.Duration `koanf:"image_staleness"`

	DurableTimeout  time.Duration `koanf:"durable_timeout"`
	ExternalTimeout time.Duration `koanf:"external_timeout"`

	// SingleFlight collapses concurrent misses of one key.
	SingleFlight bool `koanf:"single_flight"`

	Home HomeConfig `koanf:"home"`
}

// HomeConfig lists the restaurants featured on the home screen. The
// assembled home aggregate is memoised for TTL.
type HomeConfig struct {
	Popular []string      `koanf:"popular"`
	Markets []string      `koanf:"markets"`
	TTL     time.Duration `koanf:"ttl"`
}

// Store backends.
const (
	StoreBackendBadger   = "badger"
	StoreBackendDynamoDB = "dynamodb"
)

// StoreConfig selects and configures the durable store.
//
// Environment Variables:
//   - STORE_BACKEND: badger or dynamodb (default: badger)
//   - BADGER_PATH: data directory (default: /data/dinemap)
//   - BADGER_IN_MEMORY: keep data in memory only (default: false)
//   - DYNAMODB_TABLE, DYNAMODB_REGION, DYNAMODB_ENDPOINT
type StoreConfig struct {
	Backend          string `koanf:"backend"`
	BadgerPath       string `koanf:"badger_path"`
	BadgerInMemory   bool   `koanf:"badger_in_memory"`
	BadgerSyncWrites bool   `koanf:"badger_sync_writes"`
	DynamoTable      string `koanf:"dynamodb_table"`
	DynamoRegion     string `koanf:"dynamodb_region"`
	DynamoEndpoint   string `koanf:"dynamodb_endpoint"` // e.g. http://localhost:8000 for DynamoDB Local
}

// PlacesConfig configures the Google Places client.
//
// Environment Variables:
//   - GOOGLE_PLACES_API_KEY: API key (required for external lookups)
//   - PLACES_BASE_URL: API root (default: https://maps.googleapis.com/maps/api/place)
//   - PLACES_TIMEOUT: per-call timeout (default: 10s)
//   - PLACES_RATE_LIMIT: requests per second, 0 = unlimited (default: 10)
//   - PLACES_QUERY_SUFFIX: appended to text searches (default: " Taiwan")
//   - PLACES_LANGUAGE: result language (default: ko)
type PlacesConfig struct {
	APIKey           string        `koanf:"api_key"`
	BaseURL          string        `koanf:"base_url"`
	Timeout          time.Duration `koanf:"timeout"`
	RateLimit        float64       `koanf:"rate_limit"`
	RateBurst        int           `koanf:"rate_burst"`
	QuerySuffix      string        `koanf:"query_suffix"`
	Language         string        `koanf:"language"`
	PhotoMaxWidth    int           `koanf:"photo_max_width"`
	PlaceIDCacheSize int           `koanf:"place_id_cache_size"`
}

// SecurityConfig holds authentication, CORS and rate limiting settings.
//
// Administrative endpoints accept either AdminKey or a JWT signed with
// JWTSecret carrying a role allowed to invalidate the cache.
type SecurityConfig struct {
	AdminKey          string        `koanf:"admin_key"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// AuthzPolicyPath replaces the embedded role policy and is reloaded
	// every 30 seconds.
	AuthzPolicyPath string `koanf:"authz_policy_path"`
}

// RefreshConfig configures the periodic review refresher.
type RefreshConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Interval   time.Duration `koanf:"interval"`
	BatchSize  int           `koanf:"batch_size"`
	BatchDelay time.Duration `koanf:"batch_delay"`
}

// Brand sources.
const (
	BrandSourceDurable = "durable"
	BrandSourceLive    = "live"
)

// BrandConfig describes one kind of nearby amenity.
type BrandConfig struct {
	Name      string `koanf:"name"`   // e.g. "familymart"
	Source    string `koanf:"source"` // durable or live
	PlaceType string `koanf:"place_type"`
	Keyword   string `koanf:"keyword"`
}

// ProximityConfig configures nearby searches.
type ProximityConfig struct {
	DefaultRadius float64       `koanf:"default_radius"` // meters
	DefaultLimit  int           `koanf:"default_limit"`
	Brands        []BrandConfig `koanf:"brands"`
}

// Brand returns the brand named name.
func (p ProximityConfig) Brand(name string) (BrandConfig, bool) {
	for _, b := range p.Brands {
		if b.Name == name {
			return b, true
		}
	}
	return BrandConfig{}, false
}

// Load loads configuration with Koanf (defaults, optional file, environment).
func Load() (*Config, error) {
	return LoadWithKoanf()
}
