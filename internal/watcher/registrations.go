package watcher

import (
	"slices"
	"sync/atomic"

	"github.com/autopeer-io/motwatch/internal/dvsa"
)

// RegistrationStore is the tracked vehicle list. It can be replaced while
// the poller runs; the change is picked up by the next cycle.
type RegistrationStore struct {
	current atomic.Pointer[[]string]
}

func NewRegistrationStore(entries ...string) *RegistrationStore {
	s := &RegistrationStore{}
	s.Set(entries...)
	return s
}

// Set parses entries and replaces the list. It reports whether the list changed.
func (s *RegistrationStore) Set(entries ...string) bool {
	next := dvsa.ParseRegistrations(entries...)
	prev := s.current.Swap(&next)
	return prev == nil || !slices.Equal(*prev, next)
}

// Registrations returns the normalized list in first-seen order.
func (s *RegistrationStore) Registrations() []string {
	return slices.Clone(*s.current.Load())
}
