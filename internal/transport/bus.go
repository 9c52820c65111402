package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/magicbutton/state/internal/atom"
	"github.com/magicbutton/state/internal/engine"
)

var _ engine.Transport = (*Endpoint)(nil)

// ErrEndpointClosed is returned by SendChange after Close.
var ErrEndpointClosed = errors.New("transport: endpoint closed")

// Bus connects endpoints in one process. Endpoints created from the same
// bus see each other's changes.
type Bus struct {
	mu        sync.Mutex
	endpoints map[int]*Endpoint
	nextID    int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{endpoints: make(map[int]*Endpoint)}
}

// Endpoint creates and attaches a new endpoint. Its dispatch goroutine
// runs until Close.
func (b *Bus) Endpoint() *Endpoint {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	ep := &Endpoint{
		bus:      b,
		id:       b.nextID,
		handlers: make(map[int]func(atom.ChangeEvent)),
		queue:    newEventQueue(),
		done:     make(chan struct{}),
	}
	b.endpoints[ep.id] = ep
	go ep.dispatch()
	return ep
}

// broadcast enqueues ev on every attached endpoint, sender included.
func (b *Bus) broadcast(ev atom.ChangeEvent) {
	b.mu.Lock()
	eps := make([]*Endpoint, 0, len(b.endpoints))
	for _, ep := range b.endpoints {
		eps = append(eps, ep)
	}
	b.mu.Unlock()

	for _, ep := range eps {
		ep.queue.enqueue(ev)
	}
}

func (b *Bus) detach(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.endpoints, id)
}

// Endpoint is one party on a bus. It implements the engine's Transport
// interface: changes sent here reach every endpoint, and subscribed
// handlers receive the bus's traffic in FIFO order on a dedicated
// goroutine.
type Endpoint struct {
	bus *Bus
	id  int

	mu        sync.Mutex
	handlers  map[int]func(atom.ChangeEvent)
	nextSubID int
	closed    bool

	queue *eventQueue
	done  chan struct{}
}

// Initialize is a no-op for the in-process bus.
func (e *Endpoint) Initialize(context.Context) error { return nil }

// SendChange broadcasts ev to every endpoint on the bus.
func (e *Endpoint) SendChange(_ context.Context, ev atom.ChangeEvent) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrEndpointClosed
	}
	e.bus.broadcast(ev)
	return nil
}

// SubscribeToChanges registers a delivery handler and returns its cancel
// function. Handlers run on the endpoint's dispatch goroutine.
func (e *Endpoint) SubscribeToChanges(fn func(atom.ChangeEvent)) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEndpointClosed
	}

	e.nextSubID++
	id := e.nextSubID
	e.handlers[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers, id)
	}, nil
}

// Close detaches the endpoint from the bus, delivers what was already
// queued, and stops the dispatch goroutine.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.bus.detach(e.id)
	e.queue.close()
	<-e.done
	return nil
}

// dispatch drains the queue until it is closed and empty.
func (e *Endpoint) dispatch() {
	defer close(e.done)
	for {
		ev, ok := e.queue.tryDequeue()
		if !ok {
			if e.queue.isClosed() {
				return
			}
			<-e.queue.signal
			continue
		}

		e.mu.Lock()
		fns := make([]func(atom.ChangeEvent), 0, len(e.handlers))
		for _, fn := range e.handlers {
			fns = append(fns, fn)
		}
		e.mu.Unlock()

		for _, fn := range fns {
			fn(ev)
		}
	}
}
