package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/motwatch/internal/mot"
	"github.com/autopeer-io/motwatch/internal/poller"
	"github.com/autopeer-io/motwatch/pkg/mqtt/topic"
)

type published struct {
	topic   string
	qos     int
	retain  bool
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []published
	failTopic    string
	disconnected bool

	// offline makes AwaitConnection block until ctx is done.
	offline bool
}

func (f *fakeClient) Start(context.Context) error { return nil }

func (f *fakeClient) AwaitConnection(ctx context.Context) error {
	if f.offline {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}
func (f *fakeClient) Disconnect(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeClient) Publish(_ context.Context, topic string, qos int, retain bool, payload []byte) error {
	if topic == f.failTopic {
		return errors.New("broker unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, published{topic, qos, retain, payload})
	return nil
}

func (f *fakeClient) all() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.messages...)
}

var now = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

type lookups map[string]mot.Document

func (l lookups) Lookup(_ context.Context, reg string) (mot.Document, error) {
	return l[reg], nil
}

func settledSnapshot(t *testing.T) *poller.Snapshot {
	t.Helper()
	c := poller.New(lookups{
		"AB12CDE": {"registration": "AB12CDE", "motTestDueDate": "2026-01-01"},
		"XY99ZZZ": mot.NotFoundMarker(),
	}, poller.StaticRegistrations{"AB12CDE", "XY99ZZZ"}, poller.Config{Clock: clocktesting.NewFakeClock(now)})
	require.NoError(t, c.Refresh(t.Context()))
	return c.Snapshot()
}

// startNotifier runs n until the test ends and waits for the online status.
func startNotifier(t *testing.T, n *MQTTNotifier, client *fakeClient) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- n.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool { return len(client.all()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestOnSettledPublishesRetainedReports(t *testing.T) {
	client := &fakeClient{}
	n := newMQTTNotifier(client, topic.NewTopicBuilder("motwatch"), 30, clocktesting.NewFakeClock(now))
	startNotifier(t, n, client)

	n.OnSettled(t.Context(), settledSnapshot(t))

	require.Eventually(t, func() bool { return len(client.all()) == 4 }, time.Second, 5*time.Millisecond)
	msgs := client.all()[1:]
	assert.Equal(t, "motwatch/vehicle/AB12CDE/state", msgs[0].topic)
	assert.Equal(t, "motwatch/vehicle/XY99ZZZ/state", msgs[1].topic)
	assert.Equal(t, "motwatch/poller/status", msgs[2].topic)
	for _, m := range msgs {
		assert.Equal(t, 1, m.qos)
		assert.True(t, m.retain)
	}

	var report mot.Report
	require.NoError(t, json.Unmarshal(msgs[0].payload, &report))
	assert.Equal(t, mot.StatusValid, report.Status)

	var status statusMessage
	require.NoError(t, json.Unmarshal(msgs[2].payload, &status))
	assert.Equal(t, poller.StateSettled, status.State)
	assert.Equal(t, 2, status.Vehicles)
	assert.True(t, now.Equal(status.Timestamp))
}

func TestOnSettledContinuesAfterPublishFailure(t *testing.T) {
	client := &fakeClient{failTopic: "motwatch/vehicle/AB12CDE/state"}
	n := newMQTTNotifier(client, topic.NewTopicBuilder("motwatch"), 30, clocktesting.NewFakeClock(now))
	startNotifier(t, n, client)

	n.OnSettled(t.Context(), settledSnapshot(t))

	require.Eventually(t, func() bool { return len(client.all()) == 3 }, time.Second, 5*time.Millisecond)
	msgs := client.all()
	assert.Equal(t, "motwatch/vehicle/XY99ZZZ/state", msgs[1].topic)
	assert.Equal(t, "motwatch/poller/status", msgs[2].topic)
}

func TestOnAbortedPublishesStatusOnly(t *testing.T) {
	client := &fakeClient{}
	n := newMQTTNotifier(client, topic.NewTopicBuilder("motwatch"), 30, clocktesting.NewFakeClock(now))
	startNotifier(t, n, client)

	n.OnAborted(t.Context(), errors.New("poll cycle aborted: authentication failed"))

	require.Eventually(t, func() bool { return len(client.all()) == 2 }, time.Second, 5*time.Millisecond)
	var status statusMessage
	require.NoError(t, json.Unmarshal(client.all()[1].payload, &status))
	assert.Equal(t, poller.StateAborted, status.State)
	assert.Contains(t, status.Error, "authentication failed")
}

func TestListenerDoesNotWaitForBroker(t *testing.T) {
	client := &fakeClient{offline: true}
	n := newMQTTNotifier(client, topic.NewTopicBuilder("motwatch"), 30, clocktesting.NewFakeClock(now))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- n.Start(ctx) }()

	snap := settledSnapshot(t)
	start := time.Now()
	for range queueSize + 3 {
		n.OnSettled(t.Context(), snap)
	}
	n.OnAborted(t.Context(), errors.New("poll cycle aborted"))
	assert.Less(t, time.Since(start), time.Second)

	assert.Len(t, n.queue, queueSize)
	assert.Empty(t, client.all())

	cancel()
	require.NoError(t, <-done)
}

func TestStartAnnouncesOnlineAndOffline(t *testing.T) {
	client := &fakeClient{}
	n := newMQTTNotifier(client, topic.NewTopicBuilder("motwatch"), 30, clocktesting.NewFakeClock(now))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- n.Start(ctx) }()

	require.Eventually(t, func() bool { return len(client.all()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	msgs := client.all()
	require.Len(t, msgs, 2)
	assert.Contains(t, string(msgs[0].payload), StatusOnline)
	assert.Contains(t, string(msgs[1].payload), StatusOffline)
	assert.True(t, client.disconnected)
}
