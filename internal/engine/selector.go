package engine

import (
	"sort"

	"github.com/magicbutton/state/internal/atom"
)

// Reader is the read surface handed to selector functions. Snapshot
// implements it.
type Reader interface {
	Get(id string) (atom.Value, bool)
}

// SelectorFn derives a value from the snapshot. It must be pure: same
// snapshot in, same value out, no side effects.
type SelectorFn func(r Reader) atom.Value

type selectorState struct {
	id    string
	fn    SelectorFn
	deps  map[string]bool
	value atom.Value
	dirty bool
	subs  map[int]func(atom.Value)
}

// trackedReader records which fields a selector function reads, so the
// engine can skip recomputing it for unrelated changes.
type trackedReader struct {
	snap Snapshot
	seen map[string]bool
}

func (t *trackedReader) Get(id string) (atom.Value, bool) {
	t.seen[id] = true
	v, ok := t.snap[id]
	return v, ok
}

// RegisterSelector registers a memoized selector whose dependencies are
// inferred by tracking the fields it reads during one trial evaluation
// against the current snapshot. The recorded set is frozen for the
// selector's lifetime: a selector whose read pattern depends on data must
// be disposed and re-registered when its dependencies change. The trial
// evaluation also seeds the cache.
func (s *Store) RegisterSelector(id string, fn SelectorFn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.selectors[id]; exists {
		return &StoreError{Code: ErrCodeDuplicateSelector, Field: id, Message: "selector already registered"}
	}

	sel := &selectorState{
		id:   id,
		fn:   fn,
		subs: make(map[int]func(atom.Value)),
	}
	sel.value, sel.deps = s.evaluateTracked(fn)

	s.selectors[id] = sel
	s.selectorOrder = append(s.selectorOrder, id)
	return nil
}

// RegisterSelectorDeps registers a selector with a fixed dependency set.
// The engine recomputes it only when one of the named fields changes,
// whatever the function actually reads.
func (s *Store) RegisterSelectorDeps(id string, deps []string, fn SelectorFn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.selectors[id]; exists {
		return &StoreError{Code: ErrCodeDuplicateSelector, Field: id, Message: "selector already registered"}
	}
	for _, dep := range deps {
		if !s.schema.Has(dep) {
			return newUnknownField(dep)
		}
	}

	depSet := make(map[string]bool, len(deps))
	for _, dep := range deps {
		depSet[dep] = true
	}
	sel := &selectorState{
		id:    id,
		fn:    fn,
		deps:  depSet,
		value: fn(s.snap),
		subs:  make(map[int]func(atom.Value)),
	}

	s.selectors[id] = sel
	s.selectorOrder = append(s.selectorOrder, id)
	return nil
}

// evaluateTracked runs fn against the current snapshot through a tracking
// reader and returns the value plus the inferred dependency set.
func (s *Store) evaluateTracked(fn SelectorFn) (atom.Value, map[string]bool) {
	tr := &trackedReader{snap: s.snap, seen: make(map[string]bool)}
	return fn(tr), tr.seen
}

// SelectorValue returns a selector's cached value, recomputing first if a
// dependency changed while nothing was subscribed.
func (s *Store) SelectorValue(id string) (atom.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.selectors[id]
	if !ok {
		return nil, &StoreError{Code: ErrCodeUnknownSelector, Field: id, Message: "unknown selector"}
	}
	if sel.dirty {
		s.recomputeLocked(sel)
		sel.dirty = false
	}
	return sel.value, nil
}

// SubscribeSelector registers a callback for a selector's value changes.
// The callback fires only when the recomputed value differs from the
// cached one. The returned cancel function is idempotent.
func (s *Store) SubscribeSelector(id string, fn func(atom.Value)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.selectors[id]
	if !ok {
		return nil, &StoreError{Code: ErrCodeUnknownSelector, Field: id, Message: "unknown selector"}
	}

	// Catch up a selector that went dirty while unobserved, so the first
	// notification compares against a current value.
	if sel.dirty {
		s.recomputeLocked(sel)
		sel.dirty = false
	}

	s.nextSubID++
	subID := s.nextSubID
	sel.subs[subID] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur, ok := s.selectors[id]; ok {
			delete(cur.subs, subID)
		}
	}, nil
}

// DisposeSelector removes a selector and drops its subscribers.
func (s *Store) DisposeSelector(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.selectors[id]; !ok {
		return &StoreError{Code: ErrCodeUnknownSelector, Field: id, Message: "unknown selector"}
	}
	delete(s.selectors, id)
	for i, cur := range s.selectorOrder {
		if cur == id {
			s.selectorOrder = append(s.selectorOrder[:i], s.selectorOrder[i+1:]...)
			break
		}
	}
	return nil
}

// recomputeSelectorsLocked reacts to one applied change: selectors that
// depend on the field recompute (with subscribers) or go dirty (without).
// Runs in registration order so notification order is stable. Caller
// holds s.mu.
func (s *Store) recomputeSelectorsLocked(field string) {
	for _, id := range s.selectorOrder {
		sel := s.selectors[id]
		if !sel.deps[field] {
			continue
		}
		if len(sel.subs) == 0 {
			sel.dirty = true
			continue
		}

		prev := sel.value
		s.recomputeLocked(sel)
		sel.dirty = false
		if atom.Equal(prev, sel.value) {
			continue
		}

		ids := make([]int, 0, len(sel.subs))
		for subID := range sel.subs {
			ids = append(ids, subID)
		}
		sort.Ints(ids)
		for _, subID := range ids {
			if fn, ok := sel.subs[subID]; ok {
				fn(sel.value)
			}
		}
	}
}

// recomputeLocked reevaluates one selector against the current snapshot.
// The dependency set stays as registered. Caller holds s.mu.
func (s *Store) recomputeLocked(sel *selectorState) {
	s.metrics.incSelectorRecompute()
	sel.value = sel.fn(s.snap)
}

// markSelectorsDirtyLocked flags every selector for lazy recompute
// without notifying anyone. Used by time travel, where the snapshot jump
// is not an ordinary change. Caller holds s.mu.
func (s *Store) markSelectorsDirtyLocked() {
	for _, id := range s.selectorOrder {
		s.selectors[id].dirty = true
	}
}
