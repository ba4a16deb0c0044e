// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateCache,
		c.validateStore,
		c.validatePlaces,
		c.validateSecurity,
		c.validateRefresh,
		c.validateProximity,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

func (c *Config) validateCache() error {
	namespaces := map[string]NamespaceConfig{
		"rating":     c.Cache.Rating,
		"review":     c.Cache.Review,
		"image":      c.Cache.Image,
		"restaurant": c.Cache.Restaurant,
	}
	for name, ns := range namespaces {
		if ns.MaxSize < 1 {
			return fmt.Errorf("cache.%s.max_size must be at least 1", name)
		}
		if ns.TTL <= 0 {
			return fmt.Errorf("cache.%s.ttl must be positive", name)
		}
	}

	if c.Cache.ReviewStaleness < 0 || c.Cache.RatingStaleness < 0 || c.Cache.ImageStaleness < 0 {
		return fmt.Errorf("cache staleness windows must not be negative")
	}
	if c.Cache.DurableTimeout < 0 || c.Cache.ExternalTimeout < 0 {
		return fmt.Errorf("cache tier timeouts must not be negative")
	}
	if c.Cache.Home.TTL <= 0 {
		return fmt.Errorf("cache.home.ttl must be positive")
	}
	if n := len(c.Cache.Home.Popular) + len(c.Cache.Home.Markets); n > 50 {
		return fmt.Errorf("cache.home lists %d restaurants, at most 50 are allowed", n)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case StoreBackendBadger:
		if !c.Store.BadgerInMemory && c.Store.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH is required unless BADGER_IN_MEMORY=true")
		}
	case StoreBackendDynamoDB:
		if c.Store.DynamoTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required when STORE_BACKEND=dynamodb")
		}
		if c.Store.DynamoEndpoint != "" {
			if err := validateURL("DYNAMODB_ENDPOINT", c.Store.DynamoEndpoint); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of: %s, %s", StoreBackendBadger, StoreBackendDynamoDB)
	}
	return nil
}

func (c *Config) validatePlaces() error {
	if err := validateURL("PLACES_BASE_URL", c.Places.BaseURL); err != nil {
		return err
	}
	if c.Places.RateLimit < 0 {
		return fmt.Errorf("PLACES_RATE_LIMIT must not be negative")
	}
	if c.Places.Timeout < 0 {
		return fmt.Errorf("PLACES_TIMEOUT must not be negative")
	}
	if c.Places.APIKey != "" && containsPlaceholder(c.Places.APIKey) {
		return fmt.Errorf("GOOGLE_PLACES_API_KEY contains a placeholder value")
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// minSecretLength is the minimum length of the admin key and JWT secret.
const minSecretLength = 32

func (c *Config) validateSecurity() error {
	if err := c.validateSecret("ADMIN_KEY", c.Security.AdminKey); err != nil {
		return err
	}
	if err := c.validateSecret("JWT_SECRET", c.Security.JWTSecret); err != nil {
		return err
	}

	if c.IsProduction() && c.Security.AdminKey == "" && c.Security.JWTSecret == "" {
		return fmt.Errorf("ADMIN_KEY or JWT_SECRET is required when ENVIRONMENT=production")
	}

	// Wildcard CORS only matters with bearer credentials.
	if c.IsProduction() && c.Security.JWTSecret != "" && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with JWT authentication; " +
			"set specific origins or use ENVIRONMENT=development")
	}

	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateSecret(name, value string) error {
	if value == "" {
		return nil
	}
	if len(value) < minSecretLength {
		return fmt.Errorf("%s must be at least %d characters for security", name, minSecretLength)
	}
	if containsPlaceholder(value) {
		return fmt.Errorf("%s contains a placeholder value - generate a secure secret with: openssl rand -base64 32", name)
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.JWTSecret != "" && c.hasWildcardCORS()
}

func (c *Config) validateRefresh() error {
	if !c.Refresh.Enabled {
		return nil
	}
	if c.Refresh.Interval < time.Minute {
		return fmt.Errorf("REFRESH_INTERVAL must be at least 1m")
	}
	if c.Refresh.BatchSize < 1 {
		return fmt.Errorf("REFRESH_BATCH_SIZE must be at least 1")
	}
	if c.Refresh.BatchDelay < 0 {
		return fmt.Errorf("REFRESH_BATCH_DELAY must not be negative")
	}
	return nil
}

func (c *Config) validateProximity() error {
	if c.Proximity.DefaultRadius <= 0 {
		return fmt.Errorf("PROXIMITY_DEFAULT_RADIUS must be positive")
	}
	if c.Proximity.DefaultLimit < 1 {
		return fmt.Errorf("PROXIMITY_DEFAULT_LIMIT must be at least 1")
	}

	seen := make(map[string]bool, len(c.Proximity.Brands))
	for _, b := range c.Proximity.Brands {
		if b.Name == "" {
			return fmt.Errorf("proximity brand name must not be empty")
		}
		if seen[b.Name] {
			return fmt.Errorf("proximity brand %q configured twice", b.Name)
		}
		seen[b.Name] = true

		switch b.Source {
		case BrandSourceDurable:
		case BrandSourceLive:
			if b.PlaceType == "" && b.Keyword == "" {
				return fmt.Errorf("proximity brand %q: live brands need a place_type or keyword", b.Name)
			}
		default:
			return fmt.Errorf("proximity brand %q: source must be %s or %s", b.Name, BrandSourceDurable, BrandSourceLive)
		}
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", name)
	}
	return nil
}

// placeholderPatterns are values that indicate a secret was never set.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"YOUR_API_KEY",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, p := range placeholderPatterns {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}
