package engine

import (
	"context"
	"sync"

	"github.com/magicbutton/state/internal/atom"
)

// effectKind distinguishes side-effect jobs for the background worker.
type effectKind int

const (
	effectPersist effectKind = iota + 1
	effectSend
)

// effect is one pending persistence write or transport send.
type effect struct {
	kind  effectKind
	event atom.ChangeEvent
}

// effectQueue is a thread-safe unbounded FIFO for side-effect jobs.
//
// The queue is unbounded so the mutation path never blocks on a slow
// adapter: applying a change enqueues its effects and returns. A single
// worker goroutine drains the queue, which preserves per-store send order
// even though delivery is fire-and-forget.
type effectQueue struct {
	mu     sync.Mutex
	jobs   []effect
	closed bool
	signal chan struct{} // coalesced availability signal (buffered, size 1)
}

func newEffectQueue() *effectQueue {
	return &effectQueue{
		jobs:   make([]effect, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// enqueue appends a job. Returns false if the queue is closed.
func (q *effectQueue) enqueue(e effect) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.jobs = append(q.jobs, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// tryDequeue pops the front job without blocking.
func (q *effectQueue) tryDequeue() (effect, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return effect{}, false
	}
	e := q.jobs[0]

	// Zero the slot so the backing array does not retain event values.
	q.jobs[0] = effect{}
	if len(q.jobs) == 1 {
		q.jobs = q.jobs[:0]
	} else {
		q.jobs = q.jobs[1:]
	}
	return e, true
}

// close marks the queue terminal and wakes the worker.
// Jobs already enqueued are still drained.
func (q *effectQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

func (q *effectQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// runEffects is the background worker loop. It drains the queue until the
// queue is closed and empty, then signals done.
func (s *Store) runEffects() {
	defer close(s.effectsDone)

	for {
		job, ok := s.effects.tryDequeue()
		if ok {
			s.runEffect(job)
			continue
		}
		if s.effects.isClosed() {
			return
		}
		<-s.effects.signal
	}
}

// runEffect executes one persistence write or transport send.
// Failures are logged as adapter failures and never retried; the
// in-memory snapshot is authoritative regardless.
func (s *Store) runEffect(job effect) {
	ctx := context.Background()

	switch job.kind {
	case effectPersist:
		if s.storage == nil {
			return
		}
		data, err := atom.MarshalCanonical(job.event.NewValue)
		if err != nil {
			s.logger.Error("persist encode failed",
				"field", job.event.AtomID,
				"change_id", job.event.ChangeID,
				"error", err,
			)
			return
		}
		if err := s.storage.Set(ctx, storageKey(job.event.AtomID), data); err != nil {
			s.metrics.incAdapterFailure("storage")
			s.logger.Error("persist failed",
				"field", job.event.AtomID,
				"change_id", job.event.ChangeID,
				"error", err,
			)
		}

	case effectSend:
		if s.transport == nil {
			return
		}
		if err := s.transport.SendChange(ctx, job.event); err != nil {
			s.metrics.incAdapterFailure("transport")
			s.logger.Error("transport send failed",
				"field", job.event.AtomID,
				"change_id", job.event.ChangeID,
				"error", err,
			)
		}

	default:
		s.logger.Error("unknown effect kind", "kind", int(job.kind))
	}
}
