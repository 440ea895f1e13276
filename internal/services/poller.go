/**
 * @description
 * Polling cache for a single query.
 * Keeps the latest result of a fetch function, serves it while it is fresh and
 * refreshes it on a fixed interval in the background.
 *
 * States: idle -> loading -> success | error -> refetching -> success | error
 *
 * @dependencies
 * - golang.org/x/sync/singleflight: collapses concurrent refresh triggers
 *
 * @notes
 * - Every fetch gets a sequence number. A completed fetch is applied only when it
 *   started after the one currently applied, so a slow superseded response is ignored.
 * - In-flight fetches are never cancelled; a failed refresh keeps the last good data.
 */

package services

import (
	"context"
	"sync"
	"time"

	"github.com/sol-erda/tracker/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Status is the state of a polled query
type Status string

const (
	StatusIdle       Status = "idle"
	StatusLoading    Status = "loading"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusRefetching Status = "refetching"
)

// FetchFunc loads a fresh value
type FetchFunc[T any] func(ctx context.Context) (T, error)

// QueryState is an immutable view of a poller
type QueryState[T any] struct {
	Status    Status
	Data      T
	HasData   bool
	Err       error
	UpdatedAt time.Time
	FailedAt  time.Time
}

// IsLoading is true while the very first fetch is in flight
func (s QueryState[T]) IsLoading() bool { return s.Status == StatusLoading }

// IsRefetching is true while a later fetch is in flight
func (s QueryState[T]) IsRefetching() bool { return s.Status == StatusRefetching }

// PollerOptions configures refresh cadence
type PollerOptions struct {
	Interval  time.Duration
	StaleTime time.Duration
	// Now overrides the clock (tests)
	Now func() time.Time
}

// Poller caches one query and refreshes it periodically
type Poller[T any] struct {
	name    string
	fetch   FetchFunc[T]
	refetch FetchFunc[T]
	opts    PollerOptions
	group singleflight.Group

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu         sync.Mutex
	state      QueryState[T]
	inFlight   int
	completed  bool
	lastFailed bool
	nextSeq    uint64
	appliedSeq uint64
	started    bool
	stopped    bool
	listeners  []func(T)
}

// NewPoller creates a poller; call Start to enable background refresh
func NewPoller[T any](name string, fetch FetchFunc[T], opts PollerOptions) *Poller[T] {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller[T]{
		name:    name,
		fetch:   fetch,
		opts:    opts,
		baseCtx: ctx,
		cancel:  cancel,
		state:   QueryState[T]{Status: StatusIdle},
	}
}

// SetRefetch installs the fetch used by Refetch. Without it Refetch uses the regular fetch.
func (p *Poller[T]) SetRefetch(fn FetchFunc[T]) {
	p.mu.Lock()
	p.refetch = fn
	p.mu.Unlock()
}

// Name identifies the query in logs
func (p *Poller[T]) Name() string {
	return p.name
}

// Subscribe registers fn to run after every applied successful fetch
func (p *Poller[T]) Subscribe(fn func(T)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// State returns the current view without triggering a fetch
func (p *Poller[T]) State() QueryState[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Get returns the cached view. The first call blocks until a result exists;
// later calls trigger a background refresh when the data is stale.
func (p *Poller[T]) Get(ctx context.Context) QueryState[T] {
	p.mu.Lock()
	completed := p.completed
	stale := p.isStaleLocked()
	p.mu.Unlock()

	if !completed {
		done := make(chan struct{})
		if !p.spawn(func() {
			defer close(done)
			_, _, _ = p.group.Do(p.name, p.sharedFetch)
		}) {
			return p.State()
		}
		select {
		case <-done:
		case <-ctx.Done():
		}
		return p.State()
	}

	if stale {
		p.refreshAsync()
	}
	return p.State()
}

// Refetch runs a new fetch now, even if one is already in flight, and waits for it
func (p *Poller[T]) Refetch(ctx context.Context) QueryState[T] {
	p.mu.Lock()
	fetch := p.refetch
	p.mu.Unlock()
	if fetch == nil {
		fetch = p.fetch
	}

	done := make(chan struct{})
	if !p.spawn(func() {
		defer close(done)
		_, _ = p.run(p.baseCtx, fetch)
	}) {
		return p.State()
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
	return p.State()
}

// Start begins the background refresh loop; it stops when ctx ends or Stop is called
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.opts.Interval)
		defer ticker.Stop()

		_, _, _ = p.group.Do(p.name, p.sharedFetch)

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.baseCtx.Done():
				return
			case <-ticker.C:
				_, _, _ = p.group.Do(p.name, p.sharedFetch)
			}
		}
	}()
}

// Stop cancels in-flight work and waits for every goroutine to exit
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

func (p *Poller[T]) refreshAsync() {
	p.spawn(func() {
		_, _, _ = p.group.Do(p.name, p.sharedFetch)
	})
}

// spawn runs fn on a tracked goroutine unless the poller was stopped
func (p *Poller[T]) spawn(fn func()) bool {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return false
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		fn()
	}()
	return true
}

func (p *Poller[T]) sharedFetch() (interface{}, error) {
	return p.run(p.baseCtx, p.fetch)
}

func (p *Poller[T]) run(ctx context.Context, fetch FetchFunc[T]) (T, error) {
	seq := p.begin()
	started := p.opts.Now()
	data, err := fetch(ctx)
	p.finish(seq, data, err, p.opts.Now().Sub(started))
	return data, err
}

func (p *Poller[T]) begin() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextSeq++
	p.inFlight++
	p.state.Status = p.statusLocked()
	return p.nextSeq
}

func (p *Poller[T]) finish(seq uint64, data T, err error, took time.Duration) {
	p.mu.Lock()
	p.inFlight--

	if seq < p.appliedSeq {
		p.state.Status = p.statusLocked()
		p.mu.Unlock()
		logger.Info("Poller[%s]: ignoring superseded fetch #%d", p.name, seq)
		return
	}

	p.appliedSeq = seq
	p.completed = true
	now := p.opts.Now()

	var listeners []func(T)
	if err != nil {
		p.lastFailed = true
		p.state.Err = err
		p.state.FailedAt = now
	} else {
		p.lastFailed = false
		p.state.Err = nil
		p.state.Data = data
		p.state.HasData = true
		p.state.UpdatedAt = now
		listeners = append(listeners, p.listeners...)
	}
	p.state.Status = p.statusLocked()
	p.mu.Unlock()

	if err != nil {
		logger.Error("Poller[%s]: fetch #%d failed after %s: %v", p.name, seq, took, err)
		return
	}
	for _, fn := range listeners {
		fn(data)
	}
}

func (p *Poller[T]) statusLocked() Status {
	if p.inFlight > 0 {
		if !p.completed {
			return StatusLoading
		}
		return StatusRefetching
	}
	if !p.completed {
		return StatusIdle
	}
	if p.lastFailed {
		return StatusError
	}
	return StatusSuccess
}

func (p *Poller[T]) isStaleLocked() bool {
	if !p.completed {
		return true
	}
	last := p.state.UpdatedAt
	if p.lastFailed {
		last = p.state.FailedAt
	}
	return p.opts.Now().Sub(last) >= p.opts.StaleTime
}
