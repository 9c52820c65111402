package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magicbutton/state/internal/atom"
)

func TestTimelineRecordsChanges(t *testing.T) {
	s := newTestStore(t, WithTimeline())
	defer s.Close()

	require.NoError(t, s.Set("count", atom.Int(1)))
	require.NoError(t, s.Set("count", atom.Int(2)))

	log := s.Timeline()
	require.Len(t, log, 2)

	assert.Equal(t, "chg-1", log[0].ID)
	assert.Equal(t, atom.Int(1), log[0].Change.NewValue)
	assert.Equal(t, atom.Int(1), log[0].Snapshot["count"])

	assert.Equal(t, "chg-2", log[1].ID)
	assert.Equal(t, atom.Int(2), log[1].Snapshot["count"])
}

func TestTimelineEnableDisableClear(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	require.NoError(t, s.Set("count", atom.Int(1)))
	assert.Empty(t, s.Timeline())

	s.EnableTimeline()
	require.NoError(t, s.Set("count", atom.Int(2)))
	assert.Len(t, s.Timeline(), 1)

	s.DisableTimeline()
	require.NoError(t, s.Set("count", atom.Int(3)))
	assert.Len(t, s.Timeline(), 1)

	s.ClearTimeline()
	assert.Empty(t, s.Timeline())
}

func TestTravelToRestoresSnapshot(t *testing.T) {
	st := newMemStorage()
	tr := &fakeTransport{}
	s := newTestStore(t, WithTimeline(), WithStorage(st), WithTransport(tr))

	require.NoError(t, s.Set("count", atom.Int(1)))
	require.NoError(t, s.Set("name", atom.String("kate")))
	require.NoError(t, s.Set("count", atom.Int(2)))

	var events []atom.ChangeEvent
	cancel, err := s.Subscribe("count", func(ev atom.ChangeEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	defer cancel()

	// Travel back to the first entry: count=1, name still default.
	require.NoError(t, s.TravelTo("chg-1"))

	snap := s.Snapshot()
	assert.Equal(t, atom.Int(1), snap["count"])
	assert.Equal(t, atom.String("anonymous"), snap["name"])

	// Each subscribed field hears the jump as a synthetic event whose
	// previous value is unknowable from the record alone.
	require.Len(t, events, 1)
	assert.Equal(t, atom.Null{}, events[0].PrevValue)
	assert.Equal(t, atom.Int(1), events[0].NewValue)

	// The jump is local: nothing persisted, nothing broadcast.
	require.NoError(t, s.Close())
	data, _ := st.get("state:field:count")
	assert.Equal(t, "2", string(data))
	assert.Len(t, tr.sentEvents(), 3)
}

func TestTravelToMarksSelectorsDirty(t *testing.T) {
	s := newTestStore(t, WithTimeline())
	defer s.Close()

	require.NoError(t, s.RegisterSelector("doubled", doubledCount))
	require.NoError(t, s.Set("count", atom.Int(5)))
	require.NoError(t, s.Set("count", atom.Int(7)))

	notified := 0
	cancel, err := s.SubscribeSelector("doubled", func(atom.Value) { notified++ })
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, s.TravelTo("chg-1"))

	// Selector subscribers stay quiet across the jump.
	assert.Equal(t, 0, notified)

	v, err := s.SelectorValue("doubled")
	require.NoError(t, err)
	assert.Equal(t, atom.Int(10), v)
}

func TestTravelToKeepsLog(t *testing.T) {
	s := newTestStore(t, WithTimeline())
	defer s.Close()

	require.NoError(t, s.Set("count", atom.Int(1)))
	require.NoError(t, s.Set("count", atom.Int(2)))

	require.NoError(t, s.TravelTo("chg-1"))
	assert.Len(t, s.Timeline(), 2)

	// Forward travel works the same way.
	require.NoError(t, s.TravelTo("chg-2"))
	assert.Equal(t, atom.Int(2), s.Snapshot()["count"])
}

func TestTravelToUnknownEntry(t *testing.T) {
	s := newTestStore(t, WithTimeline())
	defer s.Close()

	err := s.TravelTo("chg-404")
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrCodeTimelineEntry, se.Code)
}

func TestTogglePauseDropsChanges(t *testing.T) {
	tr := &fakeTransport{}
	s := newTestStore(t, WithTransport(tr))
	defer s.Close()

	assert.False(t, s.IsPaused())
	assert.True(t, s.TogglePause())
	assert.True(t, s.IsPaused())

	// Local and remote changes both vanish while paused.
	require.NoError(t, s.Set("count", atom.Int(5)))
	tr.deliver(atom.ChangeEvent{
		AtomID:   "count",
		NewValue: atom.Int(9),
		ChangeID: "peer-1",
		Source:   "src-peer",
	})
	assert.Equal(t, atom.Int(0), s.Snapshot()["count"])

	assert.False(t, s.TogglePause())
	require.NoError(t, s.Set("count", atom.Int(6)))
	assert.Equal(t, atom.Int(6), s.Snapshot()["count"])
}
