package engine

import (
	"sort"

	"github.com/magicbutton/state/internal/atom"
)

// origin distinguishes changes created by this store from changes
// delivered by the transport. It controls which side effects run.
type origin string

const (
	originLocal  origin = "local"
	originRemote origin = "remote"
)

// applyLocked is the single mutation path. Every change, whatever its
// source, goes through here exactly once. Caller holds s.mu.
//
// Pipeline order is fixed: middleware, snapshot replacement, side-effect
// enqueue, selector recompute, field subscribers, timeline append.
// Subscribers therefore always observe a snapshot that already reflects
// the event they are handed.
func (s *Store) applyLocked(ev atom.ChangeEvent, from origin) {
	if s.paused {
		s.metrics.incDropped("paused")
		s.logger.Debug("change dropped while paused",
			"field", ev.AtomID,
			"change_id", ev.ChangeID,
		)
		return
	}

	out, ok := s.runMiddlewareLocked(ev)
	if !ok {
		s.metrics.incDropped("middleware")
		s.logger.Debug("change cancelled by middleware",
			"field", ev.AtomID,
			"change_id", ev.ChangeID,
		)
		return
	}
	ev = out

	// A middleware may have rewritten the target field. Re-check it so a
	// bad rewrite cannot grow the snapshot beyond the schema.
	if _, declared := s.snap[ev.AtomID]; !declared {
		s.metrics.incDropped("unknown_field")
		s.logger.Warn("change targets unknown field after middleware",
			"field", ev.AtomID,
			"change_id", ev.ChangeID,
		)
		return
	}

	next := s.snap.clone()
	next[ev.AtomID] = ev.NewValue
	s.snap = next

	if !ev.Optimistic && s.storage != nil {
		s.effects.enqueue(effect{kind: effectPersist, event: ev})
	}
	if from == originLocal && !ev.Optimistic && s.transport != nil {
		s.effects.enqueue(effect{kind: effectSend, event: ev})
	}

	s.recomputeSelectorsLocked(ev.AtomID)
	s.notifyFieldLocked(ev)
	s.appendTimelineLocked(ev)

	s.metrics.incApplied(string(from))
	s.logger.Debug("change applied",
		"field", ev.AtomID,
		"change_id", ev.ChangeID,
		"origin", string(from),
		"optimistic", ev.Optimistic,
	)
}

func (s *Store) notifyFieldLocked(ev atom.ChangeEvent) {
	subs := s.fieldSubs[ev.AtomID]
	if len(subs) == 0 {
		return
	}
	// Snapshot the ids so a callback unsubscribing itself is safe.
	ids := make([]int, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := subs[id]; ok {
			fn(ev)
		}
	}
}
