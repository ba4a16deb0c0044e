// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/dinemap/internal/refresh"
)

type countingRunner struct {
	runs atomic.Int32
	err  error
}

func (r *countingRunner) RunOnce(context.Context) (*refresh.Report, error) {
	r.runs.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &refresh.Report{Total: 1, SuccessCount: 1}, nil
}

func TestRefreshService_Interface(t *testing.T) {
	var _ suture.Service = (*RefreshService)(nil)
}

func TestNewRefreshService_DefaultInterval(t *testing.T) {
	svc := NewRefreshService(&countingRunner{}, 0)
	if svc.interval != 24*time.Hour {
		t.Errorf("expected default interval 24h, got %v", svc.interval)
	}
	if svc.String() != "review-refresher" {
		t.Errorf("expected 'review-refresher', got %q", svc.String())
	}
}

func TestRefreshService_RunsOnSchedule(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "successful runs", err: nil},
		{name: "failures do not stop the schedule", err: errors.New("store closed")},
		{name: "overlapping manual run", err: refresh.ErrRunInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &countingRunner{err: tt.err}
			svc := NewRefreshService(runner, 10*time.Millisecond)

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			err := svc.Serve(ctx)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("expected context.DeadlineExceeded, got %v", err)
			}
			if runner.runs.Load() < 3 {
				t.Errorf("expected at least 3 runs, got %d", runner.runs.Load())
			}
		})
	}
}

func TestRefreshService_NoRunBeforeFirstInterval(t *testing.T) {
	runner := &countingRunner{}
	svc := NewRefreshService(runner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	if runner.runs.Load() != 0 {
		t.Errorf("expected no run before the first interval, got %d", runner.runs.Load())
	}
}
