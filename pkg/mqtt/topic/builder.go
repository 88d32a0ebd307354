package topic

import (
	"strings"
)

// Topic segments published by motwatch.
// Consumers subscribe to these, so changing them breaks existing dashboards.
const (
	// SegmentVehicle groups per-vehicle topics.
	// Structure: {root}/vehicle/{registration}/state
	SegmentVehicle = "vehicle"

	// SuffixState carries the retained vehicle report.
	SuffixState = "state"

	// SuffixPollerStatus carries the outcome of the latest poll cycle.
	// Structure: {root}/poller/status
	SuffixPollerStatus = "poller/status"
)

// TopicBuilder encapsulates the logic for constructing MQTT topic strings.
type TopicBuilder struct {
	// root is the base namespace for all topics (e.g., "motwatch", "home/mot").
	root string
}

// NewTopicBuilder creates a TopicBuilder under root. Surrounding slashes are dropped.
func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: strings.Trim(root, "/")}
}

// VehicleState returns the retained state topic for one registration.
func (b *TopicBuilder) VehicleState(registration string) string {
	return b.join(SegmentVehicle, sanitize(registration), SuffixState)
}

// PollerStatus returns the topic that reports cycle outcomes.
func (b *TopicBuilder) PollerStatus() string {
	return b.join(SuffixPollerStatus)
}

func (b *TopicBuilder) join(parts ...string) string {
	if b.root == "" {
		return strings.Join(parts, "/")
	}
	return b.root + "/" + strings.Join(parts, "/")
}

// sanitize keeps a registration from introducing topic levels or wildcards.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', ' ':
			return '_'
		}
		return r
	}, s)
}
