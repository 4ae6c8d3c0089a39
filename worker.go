package fetchqueue

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// ErrFetchPanicked is stored as the result of a job whose fetcher panicked.
var ErrFetchPanicked = errors.New("fetcher panicked")

// work runs one expedited job on its own goroutine and reports back to the
// dispatcher. It never retries.
func (d *Dispatcher) work(job Job) {
	result, elapsed := d.fetch(job)
	d.complete(job, result, d.inflight)
	d.emit(job, result, elapsed)
}

// fetch calls the fetcher once. It must be called without holding d.mu.
func (d *Dispatcher) fetch(job Job) (result Result, elapsed time.Duration) {
	ctx := context.Background()
	if d.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			_ = level.Error(d.logger).Log("msg", "fetcher panicked", "handle", job.Handle, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			result = Result{Err: errors.Wrapf(ErrFetchPanicked, "%s: %v", job.Endpoint, r)}
		}
		elapsed = time.Since(start)
		d.observe(job, result, elapsed)
	}()

	payload, err := d.fetcher.Fetch(ctx, job.Endpoint)
	if err != nil {
		_ = level.Warn(d.logger).Log("err", errors.Wrapf(err, "fetch %s for handle %d failed", job.Endpoint, job.Handle))
	}
	return Result{Payload: payload, Err: err}, 0
}

func (d *Dispatcher) observe(job Job, result Result, elapsed time.Duration) {
	if d.fetchDuration == nil {
		return
	}
	class := "normal"
	if job.Priority {
		class = "priority"
	}
	status := "ok"
	if result.Err != nil {
		status = "error"
	}
	d.fetchDuration.With("class", class, "status", status).Observe(elapsed.Seconds())
}

// emit delivers the job's lifecycle event. It must be called without holding
// d.mu, after the result has been stored.
func (d *Dispatcher) emit(job Job, result Result, elapsed time.Duration) {
	evt := Event{Topic: AfterComplete, Job: job, Result: result, Elapsed: elapsed}
	if result.Err != nil {
		evt.Topic = AfterFail
	}
	if err := d.events.dispatch(context.Background(), evt); err != nil {
		_ = level.Warn(d.logger).Log("err", errors.Wrapf(err, "listener for %s of handle %d failed", evt.Topic, job.Handle))
	}
}
