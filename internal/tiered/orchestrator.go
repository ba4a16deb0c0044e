// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Package tiered resolves a key through memory, the durable store and the
// external API, back-filling the faster tiers on the way out.
//
// Lookup never fails. A durable or external error, timeout or panic is
// logged at warn level and reported as a miss of that tier; callers
// render "no data" instead of an error.
package tiered

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/dinemap/internal/logging"
	"github.com/tomtom215/dinemap/internal/metrics"
)

// Source names the tier that answered a lookup.
type Source string

// Tiers, fastest first.
const (
	SourceMemory   Source = "memory"
	SourceDurable  Source = "durable"
	SourceExternal Source = "external"
)

// Result is the outcome of a lookup. Found is false when no tier had a value;
// Source is then SourceExternal, the last tier tried.
type Result[V any] struct {
	Value  V      `json:"value"`
	Found  bool   `json:"found"`
	Source Source `json:"source"`
}

// Cache is the memory tier.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
}

// DurableFetch reads key from the durable store. found=false with a nil
// error is a clean miss.
type DurableFetch[V any] func(ctx context.Context, key string) (value V, updatedAt time.Time, found bool, err error)

// ExternalFetch reads key from the external source.
type ExternalFetch[V any] func(ctx context.Context, key string) (value V, found bool, err error)

// DurableWrite persists an externally fetched value.
type DurableWrite[V any] func(ctx context.Context, key string, value V) error

// Fetchers are the per-call tier accessors. Any of them may be nil, which
// skips that tier.
type Fetchers[V any] struct {
	Durable  DurableFetch[V]
	External ExternalFetch[V]
	Persist  DurableWrite[V]
}

// Options configure an Orchestrator.
type Options struct {
	// Name labels logs and metrics, e.g. "review".
	Name string

	// StalenessWindow is the maximum age of a durable record. Zero means
	// durable records never go stale.
	StalenessWindow time.Duration

	// DurableTimeout and ExternalTimeout bound each tier call. Zero
	// disables the bound.
	DurableTimeout  time.Duration
	ExternalTimeout time.Duration

	// SingleFlight collapses concurrent misses of the same key into one
	// durable+external pass.
	SingleFlight bool

	// Now overrides time.Now.
	Now func() time.Time
}

// Orchestrator runs tiered lookups for one value type.
type Orchestrator[V any] struct {
	cache Cache[V]
	opts  Options
	group singleflight.Group
}

// New creates an Orchestrator over cache.
func New[V any](cache Cache[V], opts Options) *Orchestrator[V] {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Name == "" {
		opts.Name = "default"
	}
	return &Orchestrator[V]{cache: cache, opts: opts}
}

// Name returns the label given in Options.
func (o *Orchestrator[V]) Name() string {
	return o.opts.Name
}

// Lookup resolves key, trying memory, then the durable store, then the
// external source.
func (o *Orchestrator[V]) Lookup(ctx context.Context, key string, f Fetchers[V]) Result[V] {
	if v, ok := o.cache.Get(key); ok {
		metrics.RecordLookup(o.opts.Name, string(SourceMemory), true)
		return Result[V]{Value: v, Found: true, Source: SourceMemory}
	}

	if !o.opts.SingleFlight {
		return o.fill(ctx, key, f)
	}

	// The shared fill outlives any one caller; the tier timeouts bound it.
	fillCtx := context.WithoutCancel(ctx)
	ch := o.group.DoChan(key, func() (any, error) {
		return o.fill(fillCtx, key, f), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Result[V])
	case <-ctx.Done():
		return Result[V]{}
	}
}

// Refresh skips memory and the durable store and fetches key from the
// external source, writing through on success. Used by the refresher.
func (o *Orchestrator[V]) Refresh(ctx context.Context, key string, f Fetchers[V]) Result[V] {
	return o.fromExternal(ctx, key, f)
}

func (o *Orchestrator[V]) fill(ctx context.Context, key string, f Fetchers[V]) Result[V] {
	if f.Durable != nil {
		if v, ok := o.fromDurable(ctx, key, f.Durable); ok {
			o.cache.Set(key, v)
			metrics.RecordLookup(o.opts.Name, string(SourceDurable), true)
			return Result[V]{Value: v, Found: true, Source: SourceDurable}
		}
	}
	return o.fromExternal(ctx, key, f)
}

func (o *Orchestrator[V]) fromDurable(ctx context.Context, key string, fetch DurableFetch[V]) (V, bool) {
	var zero V

	callCtx, cancel := withTimeout(ctx, o.opts.DurableTimeout)
	defer cancel()

	var (
		v         V
		updatedAt time.Time
		found     bool
	)
	err := guard(func() error {
		var err error
		v, updatedAt, found, err = fetch(callCtx, key)
		return err
	})
	if err != nil {
		o.absorb(ctx, SourceDurable, key, err)
		return zero, false
	}
	if !found {
		return zero, false
	}

	if o.opts.StalenessWindow > 0 && o.opts.Now().Sub(updatedAt) > o.opts.StalenessWindow {
		logging.Ctx(ctx).Debug().
			Str("cache", o.opts.Name).
			Str("key", key).
			Time("updated_at", updatedAt).
			Msg("Durable record stale, refetching")
		return zero, false
	}
	return v, true
}

func (o *Orchestrator[V]) fromExternal(ctx context.Context, key string, f Fetchers[V]) Result[V] {
	miss := Result[V]{Source: SourceExternal}
	if f.External == nil {
		metrics.RecordLookup(o.opts.Name, string(SourceExternal), false)
		return miss
	}

	callCtx, cancel := withTimeout(ctx, o.opts.ExternalTimeout)
	defer cancel()

	var (
		v     V
		found bool
	)
	err := guard(func() error {
		var err error
		v, found, err = f.External(callCtx, key)
		return err
	})
	if err != nil {
		o.absorb(ctx, SourceExternal, key, err)
		metrics.RecordLookup(o.opts.Name, string(SourceExternal), false)
		return miss
	}
	if !found {
		metrics.RecordLookup(o.opts.Name, string(SourceExternal), false)
		return miss
	}

	if f.Persist != nil {
		persistCtx, cancel := withTimeout(ctx, o.opts.DurableTimeout)
		perr := guard(func() error { return f.Persist(persistCtx, key, v) })
		cancel()
		if perr != nil {
			o.absorb(ctx, SourceDurable, key, fmt.Errorf("write-through: %w", perr))
		}
	}

	o.cache.Set(key, v)
	metrics.RecordLookup(o.opts.Name, string(SourceExternal), true)
	return Result[V]{Value: v, Found: true, Source: SourceExternal}
}

// absorb logs and counts a tier failure.
func (o *Orchestrator[V]) absorb(ctx context.Context, tier Source, key string, err error) {
	reason := "error"
	var p *panicError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	case errors.As(err, &p):
		reason = "panic"
	}
	metrics.RecordTierFailure(o.opts.Name, string(tier), reason)

	logging.Ctx(ctx).Warn().
		Err(err).
		Str("cache", o.opts.Name).
		Str("tier", string(tier)).
		Str("key", key).
		Str("reason", reason).
		Msg("Tier unavailable, treating as miss")
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// guard runs fn, converting a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return fn()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
