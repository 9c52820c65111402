package engine

import "github.com/magicbutton/state/internal/atom"

// TimelineEntry is one record in the time-travel log: the change that was
// applied and the full snapshot immediately after it.
type TimelineEntry struct {
	ID        string
	Timestamp int64
	Change    atom.ChangeEvent
	Snapshot  Snapshot
}

// EnableTimeline starts recording applied changes. Changes applied while
// recording was off are gone; the log begins from the next change.
func (s *Store) EnableTimeline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timelineOn = true
}

// DisableTimeline stops recording. The existing log is kept.
func (s *Store) DisableTimeline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timelineOn = false
}

// Timeline returns a copy of the recorded log, oldest first.
func (s *Store) Timeline() []TimelineEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TimelineEntry, len(s.timeline))
	copy(out, s.timeline)
	return out
}

// ClearTimeline drops the recorded log. Recording state is unchanged.
func (s *Store) ClearTimeline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline = nil
}

// TogglePause flips the paused flag and returns the new state. While
// paused every incoming change, local or remote, is dropped before
// middleware runs.
func (s *Store) TogglePause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = !s.paused
	return s.paused
}

// IsPaused reports whether the store is dropping changes.
func (s *Store) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// TravelTo restores the snapshot recorded at a timeline entry.
//
// The jump is local only: nothing is persisted or broadcast, and the log
// itself is untouched. Every field subscriber receives a synthetic event
// with PrevValue set to Null, because the pre-jump value is not part of
// the restored record. Selectors are marked dirty and recompute lazily;
// their subscribers are not notified.
func (s *Store) TravelTo(entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *TimelineEntry
	for i := range s.timeline {
		if s.timeline[i].ID == entryID {
			target = &s.timeline[i]
			break
		}
	}
	if target == nil {
		return &StoreError{Code: ErrCodeTimelineEntry, Message: "timeline entry not found: " + entryID}
	}

	s.snap = target.Snapshot.clone()
	s.markSelectorsDirtyLocked()

	now := s.clock.Now()
	for _, field := range s.schema.FieldIDs() {
		s.notifyFieldLocked(atom.ChangeEvent{
			AtomID:    field,
			PrevValue: atom.Null{},
			NewValue:  s.snap[field],
			Timestamp: now,
			ChangeID:  s.ids.NewID(),
			Source:    s.source,
		})
	}

	s.logger.Info("traveled to timeline entry", "entry_id", entryID)
	return nil
}

// appendTimelineLocked records ev plus the post-apply snapshot. Caller
// holds s.mu; s.snap already reflects ev.
func (s *Store) appendTimelineLocked(ev atom.ChangeEvent) {
	if !s.timelineOn {
		return
	}
	s.timeline = append(s.timeline, TimelineEntry{
		ID:        ev.ChangeID,
		Timestamp: ev.Timestamp,
		Change:    ev,
		Snapshot:  s.snap.clone(),
	})
}
