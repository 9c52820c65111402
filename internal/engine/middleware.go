package engine

import "github.com/magicbutton/state/internal/atom"

// Middleware intercepts a change before it is applied. It must call next
// exactly once to let the (possibly transformed) event proceed, or not at
// all to cancel it. Calling next more than once has no extra effect.
//
// Middleware runs under the store mutex and must not reenter the store.
type Middleware func(ev atom.ChangeEvent, next func(atom.ChangeEvent))

type registeredMiddleware struct {
	id int
	fn Middleware
}

// Use appends a middleware to the pipeline and returns its remove
// function. Middleware runs in registration order. Removal during a
// dispatch takes effect from the next dispatch; the in-flight chain was
// captured when the dispatch began.
func (s *Store) Use(mw Middleware) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMWID++
	id := s.nextMWID
	s.middlewares = append(s.middlewares, registeredMiddleware{id: id, fn: mw})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, reg := range s.middlewares {
			if reg.id == id {
				s.middlewares = append(s.middlewares[:i], s.middlewares[i+1:]...)
				return
			}
		}
	}
}

// runMiddlewareLocked threads ev through the middleware chain captured at
// dispatch start. Returns the final event and whether it survived the
// chain. Caller holds s.mu.
func (s *Store) runMiddlewareLocked(ev atom.ChangeEvent) (atom.ChangeEvent, bool) {
	if len(s.middlewares) == 0 {
		return ev, true
	}

	chain := make([]Middleware, len(s.middlewares))
	for i, reg := range s.middlewares {
		chain[i] = reg.fn
	}

	var (
		out       atom.ChangeEvent
		completed bool
	)

	var step func(i int) func(atom.ChangeEvent)
	step = func(i int) func(atom.ChangeEvent) {
		called := false
		return func(cur atom.ChangeEvent) {
			if called {
				return
			}
			called = true
			if i == len(chain) {
				out = cur
				completed = true
				return
			}
			chain[i](cur, step(i+1))
		}
	}
	step(0)(ev)

	return out, completed
}
