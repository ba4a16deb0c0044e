// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Cache.Rating.MaxSize != 1000 || cfg.Cache.Rating.TTL != 5*time.Minute {
		t.Errorf("Cache.Rating = %+v, want 1000/5m", cfg.Cache.Rating)
	}
	if cfg.Cache.Review.MaxSize != 500 || cfg.Cache.Review.TTL != time.Hour {
		t.Errorf("Cache.Review = %+v, want 500/1h", cfg.Cache.Review)
	}
	if cfg.Cache.Image.TTL != 24*time.Hour {
		t.Errorf("Cache.Image.TTL = %v, want 24h", cfg.Cache.Image.TTL)
	}
	if cfg.Cache.Restaurant.MaxSize != 200 {
		t.Errorf("Cache.Restaurant.MaxSize = %d, want 200", cfg.Cache.Restaurant.MaxSize)
	}
	if cfg.Cache.ReviewStaleness != 24*time.Hour {
		t.Errorf("Cache.ReviewStaleness = %v, want 24h", cfg.Cache.ReviewStaleness)
	}
	if cfg.Cache.SingleFlight {
		t.Error("Cache.SingleFlight should be off by default")
	}
	if len(cfg.Cache.Home.Popular) != 5 || len(cfg.Cache.Home.Markets) != 5 || cfg.Cache.Home.TTL != 5*time.Minute {
		t.Errorf("Cache.Home = %+v, want 5 popular, 5 markets, 5m", cfg.Cache.Home)
	}
	if cfg.Store.Backend != StoreBackendBadger {
		t.Errorf("Store.Backend = %q, want badger", cfg.Store.Backend)
	}
	if cfg.Places.PhotoMaxWidth != 400 {
		t.Errorf("Places.PhotoMaxWidth = %d, want 400", cfg.Places.PhotoMaxWidth)
	}
	if cfg.Refresh.BatchSize != 10 || cfg.Refresh.BatchDelay != 2*time.Second {
		t.Errorf("Refresh = %+v, want batch 10 delay 2s", cfg.Refresh)
	}
	if b, ok := cfg.Proximity.Brand("familymart"); !ok || b.Source != BrandSourceLive {
		t.Errorf("Expected live familymart brand, got %+v (%v)", b, ok)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORE_BACKEND", "dynamodb")
	t.Setenv("DYNAMODB_TABLE", "dinemap")
	t.Setenv("CACHE_REVIEW_STALENESS", "12h")
	t.Setenv("CACHE_SINGLE_FLIGHT", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example.org, https://b.example.org")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Store.Backend != StoreBackendDynamoDB || cfg.Store.DynamoTable != "dinemap" {
		t.Errorf("Store = %+v, want dynamodb/dinemap", cfg.Store)
	}
	if cfg.Cache.ReviewStaleness != 12*time.Hour {
		t.Errorf("Cache.ReviewStaleness = %v, want 12h", cfg.Cache.ReviewStaleness)
	}
	if !cfg.Cache.SingleFlight {
		t.Error("Expected single flight enabled")
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example.org" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
}

func TestLoadWithKoanf_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 7070
cache:
  image:
    max_size: 50
    ttl: 1h
proximity:
  default_radius: 1000
  default_limit: 3
  brands:
    - name: hi-life
      source: durable
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Cache.Image.MaxSize != 50 || cfg.Cache.Image.TTL != time.Hour {
		t.Errorf("Cache.Image = %+v, want 50/1h", cfg.Cache.Image)
	}
	// Untouched sections keep their defaults.
	if cfg.Cache.Rating.MaxSize != 1000 {
		t.Errorf("Cache.Rating.MaxSize = %d, want default 1000", cfg.Cache.Rating.MaxSize)
	}
	if cfg.Proximity.DefaultLimit != 3 {
		t.Errorf("Proximity.DefaultLimit = %d, want 3", cfg.Proximity.DefaultLimit)
	}
	if _, ok := cfg.Proximity.Brand("hi-life"); !ok {
		t.Errorf("Expected hi-life brand, got %+v", cfg.Proximity.Brands)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"HTTP_PORT":             "server.port",
		"GOOGLE_PLACES_API_KEY": "places.api_key",
		"admin_key":             "security.admin_key",
		"PATH":                  "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
