package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewerSet(t *testing.T) {
	s := newViewerSet()

	ctxA, doneA := s.add("a", context.Background())
	ctxB, doneB := s.add("b", context.Background())
	assert.Equal(t, 2, s.Len())

	doneA()
	require.Error(t, ctxA.Err())
	assert.Equal(t, 1, s.Len())

	s.CloseAll()
	assert.ErrorIs(t, ctxB.Err(), context.Canceled)
	doneB()
	assert.Zero(t, s.Len())

	late, doneLate := s.add("c", context.Background())
	assert.Error(t, late.Err(), "no viewers after shutdown")
	doneLate()
	assert.Zero(t, s.Len())
}

func TestViewerSet_ParentCancel(t *testing.T) {
	s := newViewerSet()
	parent, cancel := context.WithCancel(context.Background())
	ctx, done := s.add("a", parent)
	defer done()

	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestSizeTracker(t *testing.T) {
	s := newSizeTracker(80, 24)
	w, h, err := s.getSize()
	require.NoError(t, err)
	assert.Equal(t, 80, w)
	assert.Equal(t, 24, h)

	s.update(120, 40)
	w, h, _ = s.getSize()
	assert.Equal(t, 120, w)
	assert.Equal(t, 40, h)
}
