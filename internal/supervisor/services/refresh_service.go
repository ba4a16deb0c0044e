// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/dinemap/internal/logging"
	"github.com/tomtom215/dinemap/internal/refresh"
)

// RefreshRunner performs one review refresh pass.
//
// Satisfied by *refresh.Refresher.
type RefreshRunner interface {
	RunOnce(ctx context.Context) (*refresh.Report, error)
}

// RefreshService runs a RefreshRunner every interval. The first pass
// happens one interval after start, so supervisor restarts do not
// trigger a burst of upstream calls. A failed pass is logged and the
// schedule continues.
type RefreshService struct {
	runner   RefreshRunner
	interval time.Duration
	name     string
}

// NewRefreshService creates the service. A non-positive interval means 24h.
func NewRefreshService(runner RefreshRunner, interval time.Duration) *RefreshService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RefreshService{
		runner:   runner,
		interval: interval,
		name:     "review-refresher",
	}
}

// Serve implements suture.Service.
func (s *RefreshService) Serve(ctx context.Context) error {
	log := logging.WithComponent(s.name)
	log.Info().Dur("interval", s.interval).Msg("Review refresher scheduled")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			report, err := s.runner.RunOnce(ctx)
			switch {
			case err == nil:
				log.Debug().Int("success", report.SuccessCount).Int("failed", report.FailedCount).Msg("Scheduled refresh finished")
			case errors.Is(err, refresh.ErrRunInProgress):
				log.Info().Msg("Skipping scheduled refresh, a manual run is active")
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				log.Warn().Err(err).Msg("Scheduled refresh failed")
			}
		}
	}
}

// String names the service in supervisor logs.
func (s *RefreshService) String() string {
	return s.name
}
