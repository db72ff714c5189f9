package undo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appendAction records an int append with its reversal, the way store
// actions capture prior state in closures.
func appendAction(log *[]int, v int) *Action {
	*log = append(*log, v)
	return New("append",
		func() error { *log = append(*log, v); return nil },
		func() error { *log = (*log)[:len(*log)-1]; return nil })
}

func TestUndoRedoLinear(t *testing.T) {
	s := NewStack()
	var got []int

	s.Push(appendAction(&got, 1))
	s.Push(appendAction(&got, 2))
	require.Equal(t, []int{1, 2}, got)
	assert.Equal(t, "append", s.UndoText())

	_, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)
	assert.True(t, s.CanRedo())

	_, err = s.Redo()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
}

func TestPushClearsRedoHistory(t *testing.T) {
	s := NewStack()
	var got []int

	s.Push(appendAction(&got, 1))
	_, err := s.Undo()
	require.NoError(t, err)
	require.True(t, s.CanRedo())

	s.Push(appendAction(&got, 2))
	assert.False(t, s.CanRedo())
}

// Grouped actions undo in LIFO order behind a single stack entry.
func TestGroupUndoReversesInOrder(t *testing.T) {
	s := NewStack()
	var got []int

	s.BeginGroup("batch")
	s.Push(appendAction(&got, 1))
	s.Push(appendAction(&got, 2))
	s.Push(appendAction(&got, 3))
	s.EndGroup()

	require.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, "batch", s.UndoText())

	_, err := s.Undo()
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.Redo()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestNestedGroups(t *testing.T) {
	s := NewStack()
	var got []int

	s.BeginGroup("outer")
	s.Push(appendAction(&got, 1))
	s.BeginGroup("inner")
	s.Push(appendAction(&got, 2))
	s.EndGroup()
	s.EndGroup()

	// One top-level entry; undoing it reverses everything.
	_, err := s.Undo()
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.False(t, s.CanUndo())
}

func TestEmptyGroupLeavesNoEntry(t *testing.T) {
	s := NewStack()
	s.BeginGroup("noop")
	s.EndGroup()
	assert.False(t, s.CanUndo())
}

func TestUndoEmptyStack(t *testing.T) {
	s := NewStack()
	_, err := s.Undo()
	assert.Error(t, err)
	_, err = s.Redo()
	assert.Error(t, err)
}
