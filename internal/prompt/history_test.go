package prompt

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(text string) Snapshot {
	return newSnapshot(text, NewStructured(), "")
}

func TestHistoryCoalescesIdenticalStates(t *testing.T) {
	h := NewHistory()

	assert.True(t, h.Push(snap("a")))
	assert.False(t, h.Push(snap("a")))
	assert.Equal(t, 1, h.Depth())
}

func TestHistoryUndoRedo(t *testing.T) {
	h := NewHistory()
	h.Push(snap("a"))
	h.Push(snap("b"))
	h.Push(snap("c"))

	require.True(t, h.CanUndo())
	s, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, "b", s.PromptText)

	s, ok = h.Undo()
	require.True(t, ok)
	assert.Equal(t, "a", s.PromptText)

	_, ok = h.Undo()
	assert.False(t, ok, "head is the only remaining state")

	s, ok = h.Redo()
	require.True(t, ok)
	assert.Equal(t, "b", s.PromptText)
}

func TestHistoryPushClearsRedo(t *testing.T) {
	h := NewHistory()
	h.Push(snap("a"))
	h.Push(snap("b"))

	_, ok := h.Undo()
	require.True(t, ok)
	require.True(t, h.CanRedo())

	h.Push(snap("c"))
	assert.False(t, h.CanRedo())
}

func TestHistoryDepthCap(t *testing.T) {
	h := NewHistory()
	for i := 0; i < MaxHistoryDepth+25; i++ {
		h.Push(snap("state-" + strconv.Itoa(i)))
	}
	assert.Equal(t, MaxHistoryDepth, h.Depth())
}
