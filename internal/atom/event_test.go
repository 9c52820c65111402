package atom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEvent_RoundTrip(t *testing.T) {
	ev := ChangeEvent{
		AtomID:     "count",
		PrevValue:  Int(0),
		NewValue:   Int(5),
		Timestamp:  1700000000123,
		ChangeID:   "chg-1",
		Source:     "store-a",
		Optimistic: true,
	}

	data, err := EncodeEvent(ev)
	require.NoError(t, err)

	back, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ev.AtomID, back.AtomID)
	assert.True(t, Equal(ev.PrevValue, back.PrevValue))
	assert.True(t, Equal(ev.NewValue, back.NewValue))
	assert.Equal(t, ev.Timestamp, back.Timestamp)
	assert.Equal(t, ev.ChangeID, back.ChangeID)
	assert.Equal(t, ev.Source, back.Source)
	assert.Equal(t, ev.Optimistic, back.Optimistic)
}

func TestEncodeDecodeEvent_CompositeValues(t *testing.T) {
	ev := ChangeEvent{
		AtomID:    "profile",
		PrevValue: Null{},
		NewValue:  Object{"name": String("ada"), "tags": Array{String("x")}},
		Timestamp: 1,
		ChangeID:  "chg-2",
		Source:    "store-a",
	}

	data, err := EncodeEvent(ev)
	require.NoError(t, err)

	back, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.True(t, Equal(ev.NewValue, back.NewValue))
	assert.True(t, Equal(Null{}, back.PrevValue))
}

func TestDecodeEvent_Invalid(t *testing.T) {
	_, err := DecodeEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"change_id":"x"}`))
	assert.Error(t, err, "missing atom_id should be rejected")

	_, err = DecodeEvent([]byte(`{"atom_id":"count"}`))
	assert.Error(t, err, "missing change_id should be rejected")
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("chg")
	assert.Equal(t, "chg-1", g.NewID())
	assert.Equal(t, "chg-2", g.NewID())
	assert.Equal(t, "chg-3", g.NewID())
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	g := UUIDv7Generator{}
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := g.NewID()
		assert.False(t, seen[id], "id %s generated twice", id)
		seen[id] = true
	}
}
