package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/motwatch/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/motwatch/internal/pkg/util/fsm"
)

// Cycle states.
const (
	StateIdle     = "idle"
	StateFetching = "fetching"
	StateSettled  = "settled"
	StateAborted  = "aborted"
)

// Cycle events.
const (
	// EventStart begins a cycle from any resting state.
	EventStart = "start"
	// EventSettle publishes the assembled snapshot.
	EventSettle = "settle"
	// EventAbort abandons the cycle and keeps the previous snapshot.
	EventAbort = "abort"
)

func newCycleFSM(c *Coordinator) *fsm.FSM {
	events := fsm.Events{
		{Name: EventStart, Src: []string{StateIdle, StateSettled, StateAborted}, Dst: StateFetching},
		{Name: EventSettle, Src: []string{StateFetching}, Dst: StateSettled},
		{Name: EventAbort, Src: []string{StateFetching}, Dst: StateAborted},
	}

	callbacks := fsm.Callbacks{
		fsmutil.EnterState(StateFetching): fsmutil.WrapEvent(c.enterFetching),
		fsmutil.EnterState(StateSettled):  fsmutil.WrapEvent(c.enterSettled),
		fsmutil.EnterState(StateAborted):  fsmutil.WrapEvent(c.enterAborted),
	}

	return fsm.NewFSM(StateIdle, events, callbacks)
}

// enterFetching expects the cycle start time as its argument.
func (c *Coordinator) enterFetching(_ context.Context, e *fsm.Event) error {
	started, ok := fsmutil.Arg[time.Time](e, 0)
	if !ok {
		return fmt.Errorf("%s: missing start time", e.Event)
	}

	c.statusMu.Lock()
	c.status.LastAttempt = started
	c.statusMu.Unlock()
	return nil
}

// enterSettled expects the new snapshot and the cycle duration.
func (c *Coordinator) enterSettled(ctx context.Context, e *fsm.Event) error {
	snap, ok := fsmutil.Arg[*Snapshot](e, 0)
	if !ok || snap == nil {
		return fmt.Errorf("%s: missing snapshot", e.Event)
	}
	took, _ := fsmutil.Arg[time.Duration](e, 1)

	c.snapshot.Store(snap)

	c.statusMu.Lock()
	c.status.LastSuccess = snap.UpdatedAt()
	c.status.LastDuration = took
	c.status.LastError = ""
	c.statusMu.Unlock()

	metrics.PollCyclesTotal.WithLabelValues(metrics.ResultSettled).Inc()
	metrics.PollCycleDuration.Observe(took.Seconds())
	metrics.LastSuccessTimestamp.Set(float64(snap.UpdatedAt().Unix()))

	c.logger.Info("Poll cycle settled", "vehicles", snap.Len(), "took", took)
	for _, l := range c.listeners {
		l.OnSettled(ctx, snap)
	}
	return nil
}

// enterAborted expects the abort cause and the cycle duration.
func (c *Coordinator) enterAborted(ctx context.Context, e *fsm.Event) error {
	cause, ok := fsmutil.Arg[error](e, 0)
	if !ok || cause == nil {
		return fmt.Errorf("%s: missing cause", e.Event)
	}
	took, _ := fsmutil.Arg[time.Duration](e, 1)

	c.statusMu.Lock()
	c.status.LastDuration = took
	c.status.LastError = cause.Error()
	c.statusMu.Unlock()

	metrics.PollCyclesTotal.WithLabelValues(metrics.ResultAborted).Inc()
	metrics.PollCycleDuration.Observe(took.Seconds())

	c.logger.Error(cause, "Poll cycle aborted, keeping previous snapshot", "took", took)
	for _, l := range c.listeners {
		l.OnAborted(ctx, cause)
	}
	return nil
}
