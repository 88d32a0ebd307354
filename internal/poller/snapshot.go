package poller

import (
	"maps"
	"slices"
	"time"

	"github.com/autopeer-io/motwatch/internal/mot"
)

// Snapshot is the result of one settled poll cycle. It is never modified
// after publication, so readers can share it freely.
type Snapshot struct {
	registrations []string
	vehicles      map[string]mot.Document
	updatedAt     time.Time
}

var emptySnapshot = &Snapshot{vehicles: map[string]mot.Document{}}

func newSnapshot(registrations []string, vehicles map[string]mot.Document, updatedAt time.Time) *Snapshot {
	return &Snapshot{
		registrations: slices.Clone(registrations),
		vehicles:      vehicles,
		updatedAt:     updatedAt,
	}
}

// Registrations returns the tracked registrations of the cycle, in tracked order.
func (s *Snapshot) Registrations() []string {
	return slices.Clone(s.registrations)
}

// Vehicle returns the raw document or error marker of one registration.
func (s *Snapshot) Vehicle(registration string) (mot.Document, bool) {
	doc, ok := s.vehicles[registration]
	return doc, ok
}

// Vehicles returns a shallow copy of every entry.
func (s *Snapshot) Vehicles() map[string]mot.Document {
	return maps.Clone(s.vehicles)
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	return len(s.vehicles)
}

// UpdatedAt is when the cycle settled. Zero before the first settled cycle.
func (s *Snapshot) UpdatedAt() time.Time {
	return s.updatedAt
}

// Reports derives a report for every entry, in tracked order.
func (s *Snapshot) Reports(today time.Time, warnDays int) []mot.Report {
	reports := make([]mot.Report, 0, len(s.registrations))
	for _, reg := range s.registrations {
		reports = append(reports, mot.BuildReport(reg, s.vehicles[reg], today, warnDays))
	}
	return reports
}
