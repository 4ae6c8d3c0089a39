package fetchqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
)

// Dispatcher accepts fetch jobs, runs them in the background and keeps their
// results until they are consumed.
//
// Jobs submitted with priority go to the expedited queue, the rest to the
// normal queue. A background loop drains the expedited queue first. Expedited
// jobs run on their own goroutines, bounded by the concurrency limit. Normal
// jobs always run one at a time on the loop itself. The loop exits once both
// queues and all workers are idle, and is restarted by the next Submit.
//
// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	logger                   log.Logger
	fetcher                  Fetcher
	concurrency              int
	fetchTimeout             time.Duration
	handleMin                Handle
	handleMax                Handle
	queueLengthGauge         metrics.Gauge
	checkQueueLengthInterval time.Duration
	fetchDuration            metrics.Histogram
	events                   eventBus

	mu         sync.Mutex
	allocator  *handleAllocator
	expedited  *jobList
	normal     *jobList
	inflight   map[Handle]struct{}
	inline     map[Handle]struct{}
	results    map[Handle]Result
	running    bool
	generation uint64
	// changed is closed and replaced whenever the state changes.
	changed chan struct{}
}

// Submit queues a fetch of the endpoint and returns its handle. Priority jobs
// are queued on the expedited queue. Submit starts the background loop if it
// is not running. It never waits for the fetch.
func (d *Dispatcher) Submit(endpoint Endpoint, priority bool) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	handle, err := d.allocator.allocate(d.live, d.liveCount())
	if err != nil {
		return 0, err
	}

	job := Job{Handle: handle, Endpoint: endpoint, Priority: priority}
	if priority {
		d.expedited.push(job)
	} else {
		d.normal.push(job)
	}
	_ = level.Debug(d.logger).Log("msg", "job submitted", "handle", handle, "endpoint", endpoint, "priority", priority)

	if !d.running {
		d.running = true
		d.generation++
		go d.loop(d.generation)
	}
	d.notify()
	return handle, nil
}

// Poll reports the status of a handle without consuming its result.
func (d *Dispatcher) Poll(handle Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.status(handle)
}

// Consume returns the result of a handle and forgets it. If the result is not
// ready, Consume reports the same status as Poll. Once consumed, the handle
// reports StateNotFound and may be reused by a later Submit.
func (d *Dispatcher) Consume(handle Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	if result, ok := d.results[handle]; ok {
		delete(d.results, handle)
		return Status{State: StateDone, Result: &result}
	}
	return d.status(handle)
}

// Wait blocks until the handle's result is ready or the handle is unknown, or
// until the context is done. It does not consume the result.
func (d *Dispatcher) Wait(ctx context.Context, handle Handle) (Status, error) {
	for {
		d.mu.Lock()
		status := d.status(handle)
		changed := d.changed
		d.mu.Unlock()

		if status.State == StateDone || status.State == StateNotFound {
			return status, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return status, ctx.Err()
		}
	}
}

// ForceStop halts the background loop. Jobs being fetched still complete and
// store their results, but queued jobs stay queued until the next Submit.
func (d *Dispatcher) ForceStop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		_ = level.Info(d.logger).Log("msg", "dispatcher force stopped", "expedited", d.expedited.len(), "normal", d.normal.len())
	}
	d.running = false
	d.notify()
}

// Subscribe subscribes the listener to job lifecycle events.
func (d *Dispatcher) Subscribe(listener Listener) {
	d.events.subscribe(listener)
}

// Info returns a snapshot of the queue lengths.
func (d *Dispatcher) Info() QueueInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	return QueueInfo{
		Expedited: int64(d.expedited.len()),
		Normal:    int64(d.normal.len()),
		Working:   int64(len(d.inflight) + len(d.inline)),
		Done:      int64(len(d.results)),
	}
}

// Serve reports the queue lengths to the gauge, if one is configured, until
// the context is canceled. The dispatcher is force stopped on return.
func (d *Dispatcher) Serve(ctx context.Context) error {
	defer d.ForceStop()

	if d.queueLengthGauge == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	if d.checkQueueLengthInterval == 0 {
		d.checkQueueLengthInterval = 15 * time.Second
	}
	ticker := time.NewTicker(d.checkQueueLengthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.gauge()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// loop is one instance of the background loop. It exits when the dispatcher is
// stopped, when a newer instance has been started, or when there is no work
// left.
func (d *Dispatcher) loop(generation uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		if !d.running || d.generation != generation {
			return
		}
		if d.expedited.len() == 0 && d.normal.len() == 0 && len(d.inflight) == 0 {
			d.running = false
			d.notify()
			_ = level.Debug(d.logger).Log("msg", "all queues drained, dispatcher idle")
			return
		}

		// A superseded instance may still be fetching inline. Inline jobs
		// never overlap, so wait for it before starting another one.
		inlineBusy := len(d.inline) > 0

		if d.expedited.len() > 0 && d.gateOpen() && !(d.concurrency == 0 && inlineBusy) {
			job, _ := d.expedited.popFront()
			if d.concurrency == 0 {
				d.executeInline(job)
				continue
			}
			d.inflight[job.Handle] = struct{}{}
			go d.work(job)
			continue
		}

		if !inlineBusy {
			if job, ok := d.normal.popFront(); ok {
				d.executeInline(job)
				continue
			}
		}

		// Expedited jobs are waiting behind the gate, or an inline fetch of a
		// superseded instance is in progress. Sleep until the state changes.
		changed := d.changed
		d.mu.Unlock()
		<-changed
		d.mu.Lock()
	}
}

// gateOpen reports whether another expedited job may start now.
func (d *Dispatcher) gateOpen() bool {
	return d.concurrency <= 0 || len(d.inflight) < d.concurrency
}

// executeInline runs the job on the loop goroutine. d.mu must be held by the
// caller; it is released while the fetch runs.
func (d *Dispatcher) executeInline(job Job) {
	d.inline[job.Handle] = struct{}{}
	d.mu.Unlock()
	defer d.mu.Lock()

	result, elapsed := d.fetch(job)
	d.complete(job, result, d.inline)
	d.emit(job, result, elapsed)
}

// complete stores the result and removes the handle from the set it was
// executing in, as one step.
func (d *Dispatcher) complete(job Job, result Result, executing map[Handle]struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.results[job.Handle] = result
	delete(executing, job.Handle)
	d.notify()
}

func (d *Dispatcher) status(handle Handle) Status {
	if _, ok := d.results[handle]; ok {
		return Status{State: StateDone}
	}
	if d.working(handle) {
		return Status{State: StateWorking}
	}
	if pos := d.expedited.position(handle); pos >= 0 {
		return Status{State: StateQueued, Class: ClassPriority, Position: pos}
	}
	if pos := d.normal.position(handle); pos >= 0 {
		return Status{State: StateQueued, Class: ClassNormal, Position: pos}
	}
	return Status{State: StateNotFound}
}

func (d *Dispatcher) working(handle Handle) bool {
	if _, ok := d.inflight[handle]; ok {
		return true
	}
	_, ok := d.inline[handle]
	return ok
}

// live reports whether the handle is held by any container.
func (d *Dispatcher) live(handle Handle) bool {
	if _, ok := d.results[handle]; ok {
		return true
	}
	return d.working(handle) || d.expedited.contains(handle) || d.normal.contains(handle)
}

func (d *Dispatcher) liveCount() int {
	return d.expedited.len() + d.normal.len() + len(d.inflight) + len(d.inline) + len(d.results)
}

// notify wakes everyone waiting for a state change. d.mu must be held.
func (d *Dispatcher) notify() {
	close(d.changed)
	d.changed = make(chan struct{})
}

func (d *Dispatcher) gauge() {
	info := d.Info()
	d.queueLengthGauge.With("channel", "expedited").Set(float64(info.Expedited))
	d.queueLengthGauge.With("channel", "normal").Set(float64(info.Normal))
	d.queueLengthGauge.With("channel", "working").Set(float64(info.Working))
	d.queueLengthGauge.With("channel", "done").Set(float64(info.Done))
}

// UseLogger is an option for NewDispatcher that feeds the dispatcher with a Logger of choice.
func UseLogger(logger log.Logger) func(*Dispatcher) {
	return func(dispatcher *Dispatcher) {
		dispatcher.logger = logger
	}
}

// UseConcurrency is an option for NewDispatcher that bounds how many expedited
// jobs may be fetched at the same time. A negative limit means unbounded. Zero
// disables concurrency altogether: every job is fetched on the loop itself,
// expedited jobs still ahead of normal ones.
func UseConcurrency(limit int) func(*Dispatcher) {
	return func(dispatcher *Dispatcher) {
		dispatcher.concurrency = limit
	}
}

// UseHandleRange is an option for NewDispatcher that sets the inclusive range
// handles are drawn from.
func UseHandleRange(min, max Handle) func(*Dispatcher) {
	return func(dispatcher *Dispatcher) {
		dispatcher.handleMin = min
		dispatcher.handleMax = max
	}
}

// UseFetchTimeout is an option for NewDispatcher that sets the upper time limit
// of each fetch. Zero means no limit.
func UseFetchTimeout(timeout time.Duration) func(*Dispatcher) {
	return func(dispatcher *Dispatcher) {
		dispatcher.fetchTimeout = timeout
	}
}

// UseGauge is an option for NewDispatcher that collects the queue lengths.
// The gauge is refreshed by Serve every interval.
func UseGauge(gauge metrics.Gauge, interval time.Duration) func(*Dispatcher) {
	return func(dispatcher *Dispatcher) {
		dispatcher.queueLengthGauge = gauge
		dispatcher.checkQueueLengthInterval = interval
	}
}

// UseHistogram is an option for NewDispatcher that observes the duration of
// every fetch in seconds, labelled by class and status.
func UseHistogram(histogram metrics.Histogram) func(*Dispatcher) {
	return func(dispatcher *Dispatcher) {
		dispatcher.fetchDuration = histogram
	}
}

// NewDispatcher creates a Dispatcher that fetches through the given Fetcher.
// By default, the concurrency is unbounded and handles are four decimal digits.
func NewDispatcher(fetcher Fetcher, opts ...func(*Dispatcher)) *Dispatcher {
	d := Dispatcher{
		logger:       log.NewNopLogger(),
		fetcher:      fetcher,
		concurrency:  -1,
		fetchTimeout: time.Minute,
		handleMin:    defaultHandleMin,
		handleMax:    defaultHandleMax,
		expedited:    newJobList(),
		normal:       newJobList(),
		inflight:     make(map[Handle]struct{}),
		inline:       make(map[Handle]struct{}),
		results:      make(map[Handle]Result),
		changed:      make(chan struct{}),
	}
	for _, f := range opts {
		f(&d)
	}
	if d.handleMax < d.handleMin {
		panic(fmt.Sprintf("fetchqueue: invalid handle range [%d, %d]", d.handleMin, d.handleMax))
	}
	d.allocator = newHandleAllocator(d.handleMin, d.handleMax)
	return &d
}
