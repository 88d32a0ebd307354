package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/motwatch/internal/poller"
	"github.com/autopeer-io/motwatch/pkg/log"
	pkgmqtt "github.com/autopeer-io/motwatch/pkg/mqtt"
	"github.com/autopeer-io/motwatch/pkg/mqtt/topic"
	"github.com/autopeer-io/motwatch/pkg/options"
)

const (
	publishTimeout = 10 * time.Second

	// queueSize bounds the updates waiting for the broker. Further updates
	// are dropped until the queue drains.
	queueSize = 8
)

// Poller status values published on the status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type statusMessage struct {
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	Vehicles  int       `json:"vehicles,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type message struct {
	topic   string
	payload []byte
}

// MQTTNotifier publishes vehicle reports and cycle outcomes to a broker.
// Listener callbacks only queue messages; Start owns the connection and
// does the publishing.
type MQTTNotifier struct {
	client   pkgmqtt.Client
	topics   *topic.TopicBuilder
	warnDays int
	clock    clock.PassiveClock
	logger   log.Logger

	queue chan []message
}

var _ poller.Listener = (*MQTTNotifier)(nil)

// NewMQTTNotifier creates the broker client. The broker marks the poller
// offline on the status topic if the connection drops.
func NewMQTTNotifier(opts *options.MqttOptions, warnDays int) (*MQTTNotifier, error) {
	topics := topic.NewTopicBuilder(opts.TopicRoot)

	cfg := opts.ToClientConfig()
	if cfg.ClientID == "" {
		hostname, _ := os.Hostname()
		cfg.ClientID = fmt.Sprintf("motwatch-%s", hostname)
	}
	cfg.WillTopic = topics.PollerStatus()
	cfg.WillPayload, _ = json.Marshal(statusMessage{State: StatusOffline})
	cfg.WillQoS = 1
	cfg.WillRetain = true

	client, err := pkgmqtt.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return newMQTTNotifier(client, topics, warnDays, clock.RealClock{}), nil
}

func newMQTTNotifier(client pkgmqtt.Client, topics *topic.TopicBuilder, warnDays int, clk clock.PassiveClock) *MQTTNotifier {
	return &MQTTNotifier{
		client:   client,
		topics:   topics,
		warnDays: warnDays,
		clock:    clk,
		logger:   log.WithName("mqtt-notifier"),
		queue:    make(chan []message, queueSize),
	}
}

// Start connects, announces the poller online and publishes queued updates
// until ctx is done.
func (n *MQTTNotifier) Start(ctx context.Context) error {
	if err := n.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start mqtt client: %w", err)
	}
	if err := n.client.AwaitConnection(ctx); err != nil {
		return nil
	}
	n.send(ctx, []message{n.statusMessage(statusMessage{State: StatusOnline})})

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			n.send(shutdownCtx, []message{n.statusMessage(statusMessage{State: StatusOffline})})
			n.client.Disconnect(shutdownCtx)
			return nil
		case batch := <-n.queue:
			n.send(ctx, batch)
		}
	}
}

// OnSettled queues one retained report per vehicle and the cycle status.
func (n *MQTTNotifier) OnSettled(_ context.Context, snap *poller.Snapshot) {
	reports := snap.Reports(n.clock.Now(), n.warnDays)
	batch := make([]message, 0, len(reports)+1)
	for _, report := range reports {
		payload, err := json.Marshal(report)
		if err != nil {
			n.logger.Error(err, "Failed to encode report", "registration", report.Registration)
			continue
		}
		batch = append(batch, message{topic: n.topics.VehicleState(report.Registration), payload: payload})
	}
	batch = append(batch, n.statusMessage(statusMessage{State: poller.StateSettled, Timestamp: snap.UpdatedAt(), Vehicles: snap.Len()}))
	n.enqueue(batch)
}

// OnAborted queues the abort for the status topic. Vehicle topics keep their last report.
func (n *MQTTNotifier) OnAborted(_ context.Context, cause error) {
	n.enqueue([]message{n.statusMessage(statusMessage{State: poller.StateAborted, Timestamp: n.clock.Now(), Error: cause.Error()})})
}

func (n *MQTTNotifier) enqueue(batch []message) {
	select {
	case n.queue <- batch:
	default:
		n.logger.Warn("MQTT publish queue full, dropping update", "messages", len(batch))
	}
}

func (n *MQTTNotifier) statusMessage(msg statusMessage) message {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = n.clock.Now()
	}
	// statusMessage has no field that can fail to encode.
	payload, _ := json.Marshal(msg)
	return message{topic: n.topics.PollerStatus(), payload: payload}
}

func (n *MQTTNotifier) send(ctx context.Context, batch []message) {
	for _, m := range batch {
		if err := n.publish(ctx, m.topic, m.payload); err != nil {
			n.logger.Error(err, "Failed to publish", "topic", m.topic)
		}
	}
}

func (n *MQTTNotifier) publish(ctx context.Context, topic string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return n.client.Publish(ctx, topic, 1, true, payload)
}
