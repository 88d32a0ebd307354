package poller

import (
	"context"
)

// Listener is told about the outcome of every poll cycle. Calls are made
// from the cycle goroutine, one at a time, after the outcome is visible to
// readers. A listener must not wait on Coordinator.Refresh.
type Listener interface {
	OnSettled(ctx context.Context, snap *Snapshot)
	OnAborted(ctx context.Context, err error)
}

// RegistrationSource supplies the tracked registrations. It is consulted at
// the start of every cycle.
type RegistrationSource interface {
	Registrations() []string
}

// StaticRegistrations is a fixed RegistrationSource.
type StaticRegistrations []string

func (s StaticRegistrations) Registrations() []string {
	return s
}
