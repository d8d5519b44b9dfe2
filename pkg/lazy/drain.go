package lazy

import (
	"sync"
	"time"

	"github.com/marmos91/lazyhost/internal/logger"
)

// End runs every registered cleanup in registration order.
//
// Func and AsyncFunc entries always run. Method lookups only run against a
// resolved member; entries whose member was never read, or whose value has
// no matching method, are skipped. A synchronous cleanup that fails stops
// the walk: End returns its error and done is never called. Asynchronous cleanups are dispatched
// and End returns without waiting; done, which may be nil, is called once all
// of them completed, with the first error any of them reported. That error
// is wrapped in a *CleanupError naming the entry; match the original with
// errors.Is or errors.As. With nothing
// left in flight done is called before End returns.
//
// End does not guard against concurrent drains.
func (b *Binder) End(done func(error)) error {
	entries := b.registry.snapshot()
	logger.Debug("Draining cleanups", logger.KeyHost, b.name, logger.KeyCount, len(entries))

	d := &drain{done: done, metrics: b.metrics, outstanding: 1}

	for _, e := range entries {
		target, resolved := b.host.Peek(e.name)
		act, found, err := resolveAction(e.cleanup, target, resolved)
		if err != nil {
			return &CleanupError{Name: e.name, Method: e.cleanup.Method.String(), Async: e.cleanup.Async, Err: err}
		}
		if !found {
			logger.Debug("Cleanup skipped",
				logger.KeyHost, b.name,
				logger.KeyCleanup, e.name,
				logger.KeyMethod, e.cleanup.Method.String(),
				logger.KeyResolved, resolved)
			if b.metrics != nil {
				b.metrics.RecordCleanupSkipped(e.name)
			}
			continue
		}

		if !e.cleanup.Async {
			start := time.Now()
			err := act.run()
			if b.metrics != nil {
				b.metrics.ObserveCleanup(e.name, false, time.Since(start), err)
			}
			if err != nil {
				return &CleanupError{Name: e.name, Method: act.label, Err: err}
			}
			logger.Debug("Cleanup completed",
				logger.KeyHost, b.name,
				logger.KeyCleanup, e.name,
				logger.KeyMethod, act.label)
			continue
		}

		d.dispatch(e.name, act)
	}

	d.complete(nil)
	return nil
}

// Drain is the blocking form of End. It returns the synchronous error that
// stopped the walk, or else the first asynchronous error.
func (b *Binder) Drain() error {
	result := make(chan error, 1)
	if err := b.End(func(err error) { result <- err }); err != nil {
		return err
	}
	return <-result
}

// drain tracks asynchronous completions of one End call. outstanding starts
// at one for the walk itself so done cannot fire before every entry was
// dispatched.
type drain struct {
	mu          sync.Mutex
	outstanding int
	err         error
	done        func(error)
	metrics     Metrics
}

func (d *drain) dispatch(name string, act action) {
	d.mu.Lock()
	d.outstanding++
	inFlight := d.outstanding - 1
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.RecordOutstanding(inFlight)
	}

	start := time.Now()
	var once sync.Once
	act.dispatch(func(err error) {
		once.Do(func() {
			if d.metrics != nil {
				d.metrics.ObserveCleanup(name, true, time.Since(start), err)
			}
			if err != nil {
				err = &CleanupError{Name: name, Method: act.label, Async: true, Err: err}
			}
			logger.Debug("Async cleanup completed", logger.KeyCleanup, name, logger.KeyMethod, act.label, logger.KeyError, err)
			d.complete(err)
		})
	})
}

// complete marks one unit as finished and fires done when none remain.
func (d *drain) complete(err error) {
	d.mu.Lock()
	if err != nil && d.err == nil {
		d.err = err
	}
	d.outstanding--
	remaining := d.outstanding
	firstErr := d.err
	d.mu.Unlock()

	if d.metrics != nil && remaining >= 0 {
		d.metrics.RecordOutstanding(remaining)
	}
	if remaining == 0 && d.done != nil {
		d.done(firstErr)
	}
}
