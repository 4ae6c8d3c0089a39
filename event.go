package fetchqueue

import (
	"context"
	"sync"
	"time"
)

// Topic names a lifecycle event of a Job.
type Topic string

const (
	// AfterComplete triggers when a job's fetch returned without error and its
	// result has been stored.
	AfterComplete Topic = "afterComplete"
	// AfterFail triggers when a job's fetch returned an error and the error has
	// been stored as its result.
	AfterFail Topic = "afterFail"
)

// Event is the payload delivered to listeners.
type Event struct {
	Topic   Topic
	Job     Job
	Result  Result
	Elapsed time.Duration
}

// eventBus delivers events to listeners synchronously. It is safe for
// concurrent use.
type eventBus struct {
	registry map[Topic][]Listener
	rwLock   sync.RWMutex
}

// dispatch calls every listener subscribed to the event's topic. If any
// listener returns an error, the remaining ones are skipped and the error is
// returned to the caller.
func (b *eventBus) dispatch(ctx context.Context, evt Event) error {
	b.rwLock.RLock()
	listeners, ok := b.registry[evt.Topic]
	b.rwLock.RUnlock()

	if !ok {
		return nil
	}
	for _, listener := range listeners {
		if err := listener.Process(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

func (b *eventBus) subscribe(listener Listener) {
	b.rwLock.Lock()
	defer b.rwLock.Unlock()

	if b.registry == nil {
		b.registry = make(map[Topic][]Listener)
	}
	b.registry[listener.Listen()] = append(b.registry[listener.Listen()], listener)
}
