package transport

import (
	"sync"

	"github.com/magicbutton/state/internal/atom"
)

// eventQueue is an unbounded FIFO of change events with a wakeup signal
// for the dispatch goroutine.
type eventQueue struct {
	mu     sync.Mutex
	events []atom.ChangeEvent
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

func (q *eventQueue) enqueue(ev atom.ChangeEvent) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.events = append(q.events, ev)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue) tryDequeue() (atom.ChangeEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return atom.ChangeEvent{}, false
	}
	ev := q.events[0]
	q.events[0] = atom.ChangeEvent{}
	q.events = q.events[1:]
	return ev, true
}

func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
