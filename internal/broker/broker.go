package broker

import "context"

// MessageBroker is the transport for the optional queue-writer mode, where
// enqueue requests are published to a broker and drained into the job
// store by a consumer instead of being inserted directly.
type MessageBroker interface {
	Publish(queue string, message []byte) error
	Consume(ctx context.Context, queue string) (<-chan []byte, error)
	Close() error
}
