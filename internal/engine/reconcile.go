package engine

import "github.com/magicbutton/state/internal/atom"

// handleRemote is the transport delivery callback: it reconciles a peer's
// change into the local snapshot.
//
// Changes carrying our own source are loopback echoes of something we
// already applied and are dropped, which makes redelivery idempotent.
// Everything else is validated against the schema exactly like a local
// write; a peer running a different schema revision cannot corrupt the
// snapshot. Remote changes never persist or broadcast again, so a change
// crosses the transport at most once.
func (s *Store) handleRemote(ev atom.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if ev.Source == s.source {
		s.metrics.incDropped("loopback")
		s.logger.Debug("loopback change suppressed",
			"field", ev.AtomID,
			"change_id", ev.ChangeID,
		)
		return
	}
	if !s.schema.Has(ev.AtomID) {
		s.metrics.incDropped("unknown_field")
		s.logger.Warn("remote change targets unknown field",
			"field", ev.AtomID,
			"change_id", ev.ChangeID,
			"source", ev.Source,
		)
		return
	}

	val, err := s.schema.Validate(ev.AtomID, ev.NewValue)
	if err != nil {
		s.metrics.incDropped("invalid_remote")
		s.logger.Warn("remote change rejected by schema",
			"field", ev.AtomID,
			"change_id", ev.ChangeID,
			"source", ev.Source,
			"error", err,
		)
		return
	}

	// Rebase the event on our actual previous value. The peer's
	// PrevValue describes their snapshot, not ours.
	ev.PrevValue = s.snap[ev.AtomID]
	ev.NewValue = val

	s.applyLocked(ev, originRemote)
}
