// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/dinemap/internal/config"
	"github.com/tomtom215/dinemap/internal/models"
	"github.com/tomtom215/dinemap/internal/tiered"
)

type fakeSource struct {
	names    []string
	namesErr error
	fail     func(name string) bool
	block    chan struct{}

	mu        sync.Mutex
	inFlight  int
	peak      int
	refreshed []string
}

func (f *fakeSource) RestaurantNames(context.Context) ([]string, error) {
	return f.names, f.namesErr
}

func (f *fakeSource) RefreshReviews(_ context.Context, name string) tiered.Result[models.Reviews] {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	time.Sleep(time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.refreshed = append(f.refreshed, name)
	f.mu.Unlock()

	if f.fail != nil && f.fail(name) {
		return tiered.Result[models.Reviews]{Source: tiered.SourceExternal}
	}
	return tiered.Result[models.Reviews]{Value: models.Reviews{Name: name}, Found: true, Source: tiered.SourceExternal}
}

func restaurantNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("restaurant-%02d", i)
	}
	return names
}

func TestRunOnce_BatchesAndReport(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		names: restaurantNames(25),
		fail:  func(name string) bool { return name < "restaurant-12" },
	}
	r := New(src, config.RefreshConfig{BatchSize: 10, BatchDelay: 0})

	report, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if report.Total != 25 {
		t.Errorf("Expected total 25, got %d", report.Total)
	}
	if report.SuccessCount != 13 || report.FailedCount != 12 {
		t.Errorf("Expected 13 success / 12 failed, got %d / %d", report.SuccessCount, report.FailedCount)
	}
	if len(report.Failed) != maxReportedFailures {
		t.Errorf("Expected %d reported failures, got %d", maxReportedFailures, len(report.Failed))
	}
	if len(src.refreshed) != 25 {
		t.Errorf("Expected every restaurant refreshed once, got %d", len(src.refreshed))
	}
	if src.peak > 10 {
		t.Errorf("Expected at most 10 concurrent refreshes, got %d", src.peak)
	}
	if r.LastReport() != report {
		t.Error("Expected LastReport to return the completed run")
	}
}

func TestRunOnce_Defaults(t *testing.T) {
	t.Parallel()

	r := New(&fakeSource{}, config.RefreshConfig{BatchDelay: -1})
	if r.batchSize != defaultBatchSize {
		t.Errorf("Expected batch size %d, got %d", defaultBatchSize, r.batchSize)
	}
	if r.batchDelay != defaultBatchDelay {
		t.Errorf("Expected batch delay %v, got %v", defaultBatchDelay, r.batchDelay)
	}
}

func TestRunOnce_NamesError(t *testing.T) {
	t.Parallel()

	r := New(&fakeSource{namesErr: errors.New("store closed")}, config.RefreshConfig{})
	_, err := r.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "store closed") {
		t.Errorf("Expected wrapped store error, got %v", err)
	}
	if r.LastReport() != nil {
		t.Error("Expected no report after a failed run")
	}
}

func TestRunOnce_RejectsOverlap(t *testing.T) {
	t.Parallel()

	src := &fakeSource{names: restaurantNames(1), block: make(chan struct{})}
	r := New(src, config.RefreshConfig{})

	done := make(chan error, 1)
	go func() {
		_, err := r.RunOnce(context.Background())
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for !r.running.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if _, err := r.RunOnce(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Expected ErrRunInProgress, got %v", err)
	}

	close(src.block)
	if err := <-done; err != nil {
		t.Errorf("First run error = %v", err)
	}
}

func TestRunOnce_CanceledBetweenBatches(t *testing.T) {
	t.Parallel()

	src := &fakeSource{names: restaurantNames(15)}
	r := New(src, config.RefreshConfig{BatchSize: 5, BatchDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	report, err := r.RunOnce(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Expected cancellation to interrupt the batch pause")
	}
	if report == nil || report.SuccessCount != 5 {
		t.Errorf("Expected partial report with first batch, got %+v", report)
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	types   []string
	reports []Report
}

func (n *recordingNotifier) Publish(messageType string, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.types = append(n.types, messageType)
	n.reports = append(n.reports, data.(Report))
}

func TestRunOnce_NotifiesOnCompletion(t *testing.T) {
	t.Parallel()

	src := &fakeSource{names: restaurantNames(3)}
	r := New(src, config.RefreshConfig{BatchSize: 10})
	n := &recordingNotifier{}
	r.SetNotifier(n)

	if _, err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(n.reports) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(n.reports))
	}
	if n.types[0] != EventType {
		t.Errorf("Expected message type %q, got %q", EventType, n.types[0])
	}
	if n.reports[0].SuccessCount != 3 {
		t.Errorf("Expected 3 successes in notification, got %d", n.reports[0].SuccessCount)
	}

	src.namesErr = errors.New("store down")
	if _, err := r.RunOnce(context.Background()); err == nil {
		t.Fatal("Expected error when names cannot be listed")
	}
	if len(n.reports) != 1 {
		t.Errorf("Expected failed run not to notify, got %d notifications", len(n.reports))
	}
}
