package mqtt

import (
	"context"
)

// Client is the publish side of an MQTT connection.
// It hides the paho autopaho connection manager from callers.
type Client interface {
	// Start opens the connection in the background and returns immediately.
	Start(ctx context.Context) error

	// AwaitConnection blocks until the first connection is up or ctx is done.
	AwaitConnection(ctx context.Context) error

	// Publish sends payload to topic.
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Disconnect closes the connection cleanly.
	Disconnect(ctx context.Context)
}
