package poller

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/motwatch/internal/dvsa"
	"github.com/autopeer-io/motwatch/internal/mot"
	"github.com/autopeer-io/motwatch/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/motwatch/internal/pkg/util/fsm"
	"github.com/autopeer-io/motwatch/pkg/log"
)

// MaxConcurrentLookups bounds the lookups in flight within one cycle.
const MaxConcurrentLookups = 2

// cycleTimedOut is the marker message for vehicles left without a result
// when the cycle deadline is reached.
const cycleTimedOut = "poll cycle timed out before the lookup finished"

const (
	defaultInterval     = 6 * time.Hour
	defaultCycleTimeout = 5 * time.Minute
)

// Lookuper fetches the history document of one registration.
type Lookuper interface {
	Lookup(ctx context.Context, registration string) (mot.Document, error)
}

// Config configures a Coordinator.
type Config struct {
	// Interval between scheduled cycles.
	Interval time.Duration

	// CycleTimeout bounds one cycle. Lookups still pending when it fires are
	// abandoned and recorded as api_error; the cycle still settles.
	CycleTimeout time.Duration

	Clock     clock.WithTicker
	Listeners []Listener
}

// Status describes the most recent cycles.
type Status struct {
	State        string        `json:"state"`
	LastAttempt  time.Time     `json:"lastAttempt"`
	LastSuccess  time.Time     `json:"lastSuccess"`
	LastDuration time.Duration `json:"lastDuration"`
	LastError    string        `json:"lastError,omitempty"`
}

// Coordinator polls every tracked vehicle on a fixed schedule and owns the
// latest settled Snapshot. Cycles never overlap.
type Coordinator struct {
	client    Lookuper
	source    RegistrationSource
	listeners []Listener
	clock     clock.WithTicker
	logger    log.Logger

	interval     time.Duration
	cycleTimeout time.Duration

	// cycleMu serializes cycles and guards fsm transitions.
	cycleMu sync.Mutex
	fsm     *fsm.FSM

	snapshot atomic.Pointer[Snapshot]

	statusMu sync.RWMutex
	status   Status

	pendingMu sync.Mutex
	pending   *pendingCycle
	baseCtx   context.Context
}

// pendingCycle is a cycle that has been requested but not started yet.
// Every request made in the meantime waits on the same one.
type pendingCycle struct {
	done chan struct{}
	err  error
}

// New returns an idle Coordinator. Call Start to begin polling.
func New(client Lookuper, source RegistrationSource, cfg Config) *Coordinator {
	c := &Coordinator{
		client:       client,
		source:       source,
		listeners:    cfg.Listeners,
		clock:        cfg.Clock,
		logger:       log.WithName("poller"),
		interval:     cfg.Interval,
		cycleTimeout: cfg.CycleTimeout,
		baseCtx:      context.Background(),
	}
	if c.clock == nil {
		c.clock = clock.RealClock{}
	}
	if c.interval <= 0 {
		c.interval = defaultInterval
	}
	if c.cycleTimeout <= 0 {
		c.cycleTimeout = defaultCycleTimeout
	}

	c.fsm = newCycleFSM(c)
	c.snapshot.Store(emptySnapshot)
	return c
}

// AddListener registers l. It must be called before Start.
func (c *Coordinator) AddListener(l Listener) {
	c.listeners = append(c.listeners, l)
}

// Start runs a cycle immediately and then one per interval until ctx is done.
// A failed cycle is logged and retried on the next tick.
func (c *Coordinator) Start(ctx context.Context) error {
	c.pendingMu.Lock()
	c.baseCtx = ctx
	c.pendingMu.Unlock()

	c.logger.Info("Starting poll coordinator", "interval", c.interval, "cycleTimeout", c.cycleTimeout)

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	c.request()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Poll coordinator stopped")
			return nil
		case <-ticker.C():
			c.request()
		}
	}
}

// Refresh requests a cycle and waits for it. If a cycle is already queued
// the call joins it instead of queueing another. The returned error wraps
// dvsa.ErrAuth when the cycle was aborted by rejected credentials.
func (c *Coordinator) Refresh(ctx context.Context) error {
	p := c.request()
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the last settled snapshot, or an empty one before the
// first cycle settles.
func (c *Coordinator) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// State returns the current cycle state.
func (c *Coordinator) State() string {
	return c.fsm.Current()
}

// Status returns the bookkeeping of the most recent cycles.
func (c *Coordinator) Status() Status {
	c.statusMu.RLock()
	s := c.status
	c.statusMu.RUnlock()

	s.State = c.State()
	return s
}

// Ready reports whether at least one cycle has settled.
func (c *Coordinator) Ready() bool {
	return !c.Snapshot().UpdatedAt().IsZero()
}

func (c *Coordinator) request() *pendingCycle {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	if c.pending != nil {
		return c.pending
	}

	p := &pendingCycle{done: make(chan struct{})}
	c.pending = p
	go c.runPending(c.baseCtx, p)
	return p
}

func (c *Coordinator) runPending(ctx context.Context, p *pendingCycle) {
	defer close(p.done)

	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	// From here on a new request queues a fresh cycle behind this one.
	c.pendingMu.Lock()
	if c.pending == p {
		c.pending = nil
	}
	c.pendingMu.Unlock()

	p.err = c.runCycle(ctx)
}

// runCycle must be called with cycleMu held.
func (c *Coordinator) runCycle(ctx context.Context) error {
	started := c.clock.Now()
	if err := fsmutil.Fire(ctx, c.fsm, EventStart, started); err != nil {
		return fmt.Errorf("starting poll cycle: %w", err)
	}

	regs := dvsa.ParseRegistrations(c.source.Registrations()...)
	metrics.TrackedVehicles.Set(float64(len(regs)))
	c.logger.Debug("Poll cycle started", "vehicles", len(regs))

	cycleCtx, cancel := context.WithTimeout(ctx, c.cycleTimeout)
	vehicles, err := c.fetchAll(cycleCtx, regs)
	cancel()
	if err == nil && ctx.Err() != nil {
		// Shutdown, not the cycle deadline.
		err = ctx.Err()
	}
	took := c.clock.Since(started)
	if err != nil {
		if errors.Is(err, dvsa.ErrAuth) {
			if inv, ok := c.client.(interface{ InvalidateToken() }); ok {
				inv.InvalidateToken()
			}
		}
		err = fmt.Errorf("poll cycle aborted: %w", err)
		if ferr := fsmutil.Fire(ctx, c.fsm, EventAbort, err, took); ferr != nil {
			c.logger.Error(ferr, "Failed to record aborted cycle")
		}
		return err
	}

	snap := newSnapshot(regs, vehicles, c.clock.Now())
	if err := fsmutil.Fire(ctx, c.fsm, EventSettle, snap, took); err != nil {
		return fmt.Errorf("settling poll cycle: %w", err)
	}
	return nil
}

// fetchAll looks up every registration with at most MaxConcurrentLookups in
// flight. The first authentication failure cancels everything still pending
// and is returned. When ctx ends first, lookups still in flight are abandoned
// and every vehicle without a result gets an api_error marker.
func (c *Coordinator) fetchAll(ctx context.Context, regs []string) (map[string]mot.Document, error) {
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(MaxConcurrentLookups)

	var (
		mu       sync.Mutex
		vehicles = make(map[string]mot.Document, len(regs))
		closed   bool
	)

	for _, reg := range regs {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			doc, err := c.lookup(gctx, reg)
			if err != nil {
				return err
			}
			mu.Lock()
			if !closed {
				vehicles[reg] = doc
			}
			mu.Unlock()
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
	}

	mu.Lock()
	closed = true
	result := maps.Clone(vehicles)
	mu.Unlock()

	if missing := len(regs) - len(result); missing > 0 {
		c.logger.Warn("Poll cycle deadline reached", "unfinished", missing, "error", ctx.Err())
		for _, reg := range regs {
			if _, ok := result[reg]; !ok {
				result[reg] = mot.APIErrorMarker(cycleTimedOut)
			}
		}
	}
	return result, nil
}

// lookup maps one lookup onto a snapshot entry. Only authentication
// failures are returned as errors.
func (c *Coordinator) lookup(ctx context.Context, reg string) (doc mot.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(nil, "Lookup panicked", "registration", reg, "panic", r)
			doc, err = mot.APIErrorMarker(fmt.Sprintf("unexpected error: %v", r)), nil
		}
	}()

	doc, err = c.client.Lookup(ctx, reg)
	switch {
	case err == nil && doc == nil:
		return mot.APIErrorMarker("empty response"), nil
	case err == nil:
		return doc, nil
	case errors.Is(err, dvsa.ErrAuth):
		return nil, err
	case errors.Is(err, dvsa.ErrNotFound):
		c.logger.Debug("Vehicle not found", "registration", reg)
		return mot.NotFoundMarker(), nil
	}

	c.logger.Warn("Lookup failed", "registration", reg, "error", err)
	return mot.APIErrorMarker(err.Error()), nil
}
