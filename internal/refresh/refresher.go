// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package refresh re-fetches review documents for every restaurant of
// the guide so the durable tier stays within its staleness window without
// waiting for a reader to hit a stale record.
//
// Restaurants are processed in fixed-size batches; the members of one
// batch run concurrently and batches are separated by a pause to stay
// under the places API quota.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/dinemap/internal/config"
	"github.com/tomtom215/dinemap/internal/logging"
	"github.com/tomtom215/dinemap/internal/metrics"
	"github.com/tomtom215/dinemap/internal/models"
	"github.com/tomtom215/dinemap/internal/tiered"
)

const (
	defaultBatchSize  = 10
	defaultBatchDelay = 2 * time.Second

	// maxReportedFailures bounds Report.Failed.
	maxReportedFailures = 10
)

// ErrRunInProgress is returned by RunOnce while another run is active.
var ErrRunInProgress = errors.New("review refresh already running")

// Source lists restaurants and refreshes one of them.
type Source interface {
	RestaurantNames(ctx context.Context) ([]string, error)
	RefreshReviews(ctx context.Context, name string) tiered.Result[models.Reviews]
}

// Notifier receives the Report of every completed run.
//
// Satisfied by *websocket.Hub.
type Notifier interface {
	Publish(messageType string, data any)
}

// EventType is the message type used for completed runs.
const EventType = "refresh_completed"

// Report summarizes one run.
type Report struct {
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
	Total        int       `json:"total"`
	SuccessCount int       `json:"successCount"`
	FailedCount  int       `json:"failedCount"`
	Failed       []string  `json:"failed,omitempty"`
}

// Refresher walks every restaurant and refreshes its reviews.
type Refresher struct {
	src        Source
	batchSize  int
	batchDelay time.Duration

	running  atomic.Bool
	notifier Notifier

	mu   sync.RWMutex
	last *Report
}

// New creates a refresher from cfg. A non-positive batch size means 10
// and a negative delay means 2s.
func New(src Source, cfg config.RefreshConfig) *Refresher {
	r := &Refresher{
		src:        src,
		batchSize:  cfg.BatchSize,
		batchDelay: cfg.BatchDelay,
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	if r.batchDelay < 0 {
		r.batchDelay = defaultBatchDelay
	}
	return r
}

// SetNotifier registers n to receive completed reports. Call before the
// first run.
func (r *Refresher) SetNotifier(n Notifier) {
	r.notifier = n
}

// RunOnce refreshes every restaurant once. Per-restaurant failures are
// counted in the report; an error means the run itself could not proceed.
func (r *Refresher) RunOnce(ctx context.Context) (*Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	log := logging.Ctx(ctx).With().Str("component", "refresh").Logger()

	names, err := r.src.RestaurantNames(ctx)
	if err != nil {
		metrics.RefreshRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("list restaurants: %w", err)
	}

	report := &Report{StartedAt: time.Now(), Total: len(names)}
	log.Info().Int("restaurants", len(names)).Int("batch_size", r.batchSize).Msg("Review refresh started")

	var mu sync.Mutex
	for start := 0; start < len(names); start += r.batchSize {
		end := min(start+r.batchSize, len(names))

		var g errgroup.Group
		for _, name := range names[start:end] {
			g.Go(func() error {
				res := r.src.RefreshReviews(ctx, name)

				mu.Lock()
				defer mu.Unlock()
				if res.Found {
					report.SuccessCount++
					metrics.RefreshedEntities.WithLabelValues("success").Inc()
					return nil
				}
				report.FailedCount++
				if len(report.Failed) < maxReportedFailures {
					report.Failed = append(report.Failed, name)
				}
				metrics.RefreshedEntities.WithLabelValues("failed").Inc()
				return nil
			})
		}
		_ = g.Wait()

		if end < len(names) {
			if err := sleep(ctx, r.batchDelay); err != nil {
				metrics.RefreshRuns.WithLabelValues("canceled").Inc()
				return report, err
			}
		}
	}

	report.FinishedAt = time.Now()
	r.mu.Lock()
	r.last = report
	r.mu.Unlock()

	metrics.RefreshRuns.WithLabelValues("completed").Inc()
	log.Info().
		Int("success", report.SuccessCount).
		Int("failed", report.FailedCount).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Review refresh completed")

	if r.notifier != nil {
		r.notifier.Publish(EventType, *report)
	}
	return report, nil
}

// LastReport returns the report of the last completed run, or nil.
func (r *Refresher) LastReport() *Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
