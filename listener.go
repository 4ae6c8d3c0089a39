package fetchqueue

import (
	"context"
)

// Listener is the handler for job lifecycle events.
type Listener interface {
	// Listen returns the topic this listener is interested in.
	Listen() Topic
	// Process will be called with each event of that topic.
	Process(ctx context.Context, evt Event) error
}

// Listen creates a functional listener in one line.
func Listen(topic Topic, callback func(ctx context.Context, evt Event) error) ListenFunc {
	return ListenFunc{
		Topic:    topic,
		callback: callback,
	}
}

// ListenFunc is a listener implemented with a callback.
type ListenFunc struct {
	Topic    Topic
	callback func(ctx context.Context, evt Event) error
}

// Listen implements Listener
func (f ListenFunc) Listen() Topic {
	return f.Topic
}

// Process implements Listener
func (f ListenFunc) Process(ctx context.Context, evt Event) error {
	return f.callback(ctx, evt)
}
