package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magicbutton/state/internal/atom"
)

func doubledCount(r Reader) atom.Value {
	v, _ := r.Get("count")
	n, _ := v.(atom.Int)
	return n * 2
}

func TestSelectorInferredDeps(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	require.NoError(t, s.RegisterSelector("doubled", doubledCount))

	v, err := s.SelectorValue("doubled")
	require.NoError(t, err)
	assert.Equal(t, atom.Int(0), v)

	require.NoError(t, s.Set("count", atom.Int(4)))
	v, err = s.SelectorValue("doubled")
	require.NoError(t, err)
	assert.Equal(t, atom.Int(8), v)
}

func TestSelectorSkipsUnrelatedChanges(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	recomputes := 0
	require.NoError(t, s.RegisterSelector("doubled", func(r Reader) atom.Value {
		recomputes++
		return doubledCount(r)
	}))
	require.Equal(t, 1, recomputes) // registration seeds the cache

	cancel, err := s.SubscribeSelector("doubled", func(atom.Value) {})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, s.Set("name", atom.String("gail")))
	assert.Equal(t, 1, recomputes)

	require.NoError(t, s.Set("count", atom.Int(2)))
	assert.Equal(t, 2, recomputes)
}

func TestSelectorNotifiesOnValueChange(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	require.NoError(t, s.RegisterSelector("nonzero", func(r Reader) atom.Value {
		v, _ := r.Get("count")
		n, _ := v.(atom.Int)
		return atom.Bool(n != 0)
	}))

	var got []atom.Value
	cancel, err := s.SubscribeSelector("nonzero", func(v atom.Value) {
		got = append(got, v)
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, s.Set("count", atom.Int(1)))
	require.NoError(t, s.Set("count", atom.Int(2))) // nonzero stays true, no notify
	require.NoError(t, s.Set("count", atom.Int(0)))

	assert.Equal(t, []atom.Value{atom.Bool(true), atom.Bool(false)}, got)
}

func TestSelectorLazyWithoutSubscribers(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	recomputes := 0
	require.NoError(t, s.RegisterSelector("doubled", func(r Reader) atom.Value {
		recomputes++
		return doubledCount(r)
	}))
	require.Equal(t, 1, recomputes)

	// No subscribers: changes only mark the selector dirty.
	require.NoError(t, s.Set("count", atom.Int(1)))
	require.NoError(t, s.Set("count", atom.Int(2)))
	assert.Equal(t, 1, recomputes)

	v, err := s.SelectorValue("doubled")
	require.NoError(t, err)
	assert.Equal(t, atom.Int(4), v)
	assert.Equal(t, 2, recomputes)

	// Clean selector serves the cache.
	_, err = s.SelectorValue("doubled")
	require.NoError(t, err)
	assert.Equal(t, 2, recomputes)
}

func TestSelectorDepsFrozenAtRegistration(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	// Reads name only while active is true; registered while inactive,
	// so only active lands in the frozen dependency set.
	label := func(r Reader) atom.Value {
		av, _ := r.Get("active")
		if on, _ := av.(atom.Bool); !bool(on) {
			return atom.String("off")
		}
		nv, _ := r.Get("name")
		return nv
	}
	require.NoError(t, s.RegisterSelector("label", label))

	var got []atom.Value
	cancel, err := s.SubscribeSelector("label", func(v atom.Value) {
		got = append(got, v)
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, s.Set("active", atom.Bool(true)))
	require.NoError(t, s.Set("name", atom.String("hank")))

	// The name change does not recompute: the dependency set was frozen
	// as {active} when the selector was registered.
	assert.Equal(t, []atom.Value{atom.String("anonymous")}, got)

	// Re-registration re-runs inference against the current snapshot.
	cancel()
	require.NoError(t, s.DisposeSelector("label"))
	require.NoError(t, s.RegisterSelector("label", label))
	cancel, err = s.SubscribeSelector("label", func(v atom.Value) {
		got = append(got, v)
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, s.Set("name", atom.String("iris")))
	assert.Equal(t, []atom.Value{atom.String("anonymous"), atom.String("iris")}, got)
}

func TestSelectorExplicitDeps(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	recomputes := 0
	require.NoError(t, s.RegisterSelectorDeps("watched", []string{"count"}, func(r Reader) atom.Value {
		recomputes++
		return doubledCount(r)
	}))
	require.Equal(t, 1, recomputes)

	cancel, err := s.SubscribeSelector("watched", func(atom.Value) {})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, s.Set("name", atom.String("judy")))
	assert.Equal(t, 1, recomputes)
	require.NoError(t, s.Set("count", atom.Int(1)))
	assert.Equal(t, 2, recomputes)

	err = s.RegisterSelectorDeps("bad", []string{"ghost"}, doubledCount)
	assert.True(t, IsUnknownField(err))
}

func TestSelectorRegistrationOrderNotification(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	var order []string
	for _, id := range []string{"first", "second", "third"} {
		id := id
		require.NoError(t, s.RegisterSelector(id, func(r Reader) atom.Value {
			v, _ := r.Get("count")
			return v
		}))
		cancel, err := s.SubscribeSelector(id, func(atom.Value) {
			order = append(order, id)
		})
		require.NoError(t, err)
		defer cancel()
	}

	require.NoError(t, s.Set("count", atom.Int(5)))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestSelectorDuplicateAndUnknown(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	require.NoError(t, s.RegisterSelector("dup", doubledCount))

	err := s.RegisterSelector("dup", doubledCount)
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrCodeDuplicateSelector, se.Code)

	_, err = s.SelectorValue("missing")
	assert.True(t, IsUnknownSelector(err))
	_, err = s.SubscribeSelector("missing", func(atom.Value) {})
	assert.True(t, IsUnknownSelector(err))
	assert.True(t, IsUnknownSelector(s.DisposeSelector("missing")))
}

func TestDisposeSelector(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	require.NoError(t, s.RegisterSelector("doubled", doubledCount))

	notified := 0
	_, err := s.SubscribeSelector("doubled", func(atom.Value) { notified++ })
	require.NoError(t, err)

	require.NoError(t, s.DisposeSelector("doubled"))
	require.NoError(t, s.Set("count", atom.Int(3)))

	assert.Equal(t, 0, notified)
	_, err = s.SelectorValue("doubled")
	assert.True(t, IsUnknownSelector(err))

	// The id can be reused after disposal.
	require.NoError(t, s.RegisterSelector("doubled", doubledCount))
}
