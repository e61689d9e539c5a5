package store

import (
	"errors"
	"testing"

	"github.com/poiesic/facetflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetSet(t *testing.T) {
	s := New(State{IsSearchStalled: true})
	assert.True(t, s.GetState().IsSearchStalled)

	next := s.GetState()
	next.Searching = true
	next.Error = errors.New("boom")
	s.SetState(next)

	got := s.GetState()
	assert.True(t, got.Searching)
	assert.EqualError(t, got.Error, "boom")
}

func TestStore_Subscribe(t *testing.T) {
	s := New(State{})

	var order []string
	var seen State
	unsubA := s.Subscribe(func(st State) {
		order = append(order, "a")
		seen = st
	})
	s.Subscribe(func(State) { order = append(order, "b") })

	s.SetState(State{Searching: true})
	assert.Equal(t, []string{"a", "b"}, order)
	assert.True(t, seen.Searching)

	unsubA()
	unsubA()
	s.SetState(State{})
	assert.Equal(t, []string{"a", "b", "b"}, order)
}

func TestStore_ListenerSeesCommittedState(t *testing.T) {
	s := New(State{})
	var inside State
	s.Subscribe(func(State) {
		inside = s.GetState()
	})

	s.SetState(State{Results: core.FlatResults(&core.SearchResults{Index: "products"})})
	require.NotNil(t, inside.Results.Flat())
	assert.Equal(t, "products", inside.Results.Flat().Index)
}

func TestStore_Update(t *testing.T) {
	s := New(State{})
	s.Update(func(st State) State {
		st.SearchingForFacetValues = true
		return st
	})
	assert.True(t, s.GetState().SearchingForFacetValues)
}
