package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magicbutton/state/internal/atom"
)

func TestTransactionCommit(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	var events []atom.ChangeEvent
	for _, field := range []string{"count", "name"} {
		cancel, err := s.Subscribe(field, func(ev atom.ChangeEvent) {
			events = append(events, ev)
		})
		require.NoError(t, err)
		defer cancel()
	}

	tx := s.Begin()
	require.NoError(t, tx.Update("count", atom.Int(3)))
	require.NoError(t, tx.Update("name", atom.String("carol")))

	// Nothing applies before Commit.
	assert.Equal(t, atom.Int(0), s.Snapshot()["count"])
	assert.Empty(t, events)

	require.NoError(t, tx.Commit())

	require.Len(t, events, 2)
	assert.Equal(t, "count", events[0].AtomID)
	assert.Equal(t, "name", events[1].AtomID)
	assert.Equal(t, atom.Int(3), s.Snapshot()["count"])
	assert.Equal(t, atom.String("carol"), s.Snapshot()["name"])
}

func TestTransactionLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	var events []atom.ChangeEvent
	cancel, err := s.Subscribe("count", func(ev atom.ChangeEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	defer cancel()

	tx := s.Begin()
	require.NoError(t, tx.Update("count", atom.Int(1)))
	require.NoError(t, tx.Update("count", atom.Int(2)))
	require.NoError(t, tx.Update("count", atom.Int(3)))
	require.NoError(t, tx.Commit())

	// One event per field, carrying only the final staged value.
	require.Len(t, events, 1)
	assert.Equal(t, atom.Int(3), events[0].NewValue)
}

func TestTransactionCommitOrderIsFirstTouch(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	var order []string
	remove := s.Use(func(ev atom.ChangeEvent, next func(atom.ChangeEvent)) {
		order = append(order, ev.AtomID)
		next(ev)
	})
	defer remove()

	tx := s.Begin()
	require.NoError(t, tx.Update("name", atom.String("dora")))
	require.NoError(t, tx.Update("count", atom.Int(1)))
	require.NoError(t, tx.Update("name", atom.String("erin")))
	require.NoError(t, tx.Commit())

	assert.Equal(t, []string{"name", "count"}, order)
}

func TestTransactionCommitStopsAtFirstInvalid(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	tx := s.Begin()
	require.NoError(t, tx.Update("name", atom.String("frank")))
	require.NoError(t, tx.Update("count", atom.Int(-1)))
	require.NoError(t, tx.Update("active", atom.Bool(true)))

	err := tx.Commit()
	require.Error(t, err)
	assert.True(t, IsInvalidValue(err))

	snap := s.Snapshot()
	// Updates before the failing one stay applied; later ones never run.
	assert.Equal(t, atom.String("frank"), snap["name"])
	assert.Equal(t, atom.Int(0), snap["count"])
	assert.Equal(t, atom.Bool(false), snap["active"])

	assert.True(t, IsTransactionDone(tx.Commit()))
}

func TestTransactionBaseReads(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	require.NoError(t, s.Set("count", atom.Int(10)))

	tx := s.Begin()
	require.NoError(t, tx.Update("count", atom.Int(20)))

	// Reads see the snapshot at Begin, not pending updates or later sets.
	require.NoError(t, s.Set("count", atom.Int(30)))
	v, err := tx.Base("count")
	require.NoError(t, err)
	assert.Equal(t, atom.Int(10), v)

	_, err = tx.Base("ghost")
	assert.True(t, IsUnknownField(err))

	require.NoError(t, tx.Rollback())
}

func TestTransactionRollback(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	tx := s.Begin()
	require.NoError(t, tx.Update("count", atom.Int(99)))
	require.NoError(t, tx.Rollback())

	assert.Equal(t, atom.Int(0), s.Snapshot()["count"])

	assert.True(t, IsTransactionDone(tx.Update("count", atom.Int(1))))
	assert.True(t, IsTransactionDone(tx.Commit()))
	assert.True(t, IsTransactionDone(tx.Rollback()))
	_, err := tx.Base("count")
	assert.True(t, IsTransactionDone(err))
}

func TestTransactionUnknownFieldFailsFast(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	tx := s.Begin()
	err := tx.Update("ghost", atom.Int(1))
	assert.True(t, IsUnknownField(err))

	// The transaction stays usable after a rejected update.
	require.NoError(t, tx.Update("count", atom.Int(2)))
	require.NoError(t, tx.Commit())
	assert.Equal(t, atom.Int(2), s.Snapshot()["count"])
}
