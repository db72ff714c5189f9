// Package undo implements the linear undo/redo stack over store
// mutations. Actions pair a forward closure with its reverse; groups
// batch appended actions behind a single composite entry.
package undo

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Action is one undoable unit. Redo re-runs the forward effect from
// scratch with the original arguments; Undo reverses it.
type Action struct {
	ID          uuid.UUID
	Description string
	redo        func() error
	undo        func() error
}

// New builds an action from its description and do/undo closures. The
// forward effect is expected to have been performed already; the stack
// never runs redo on first push.
func New(description string, redo, undo func() error) *Action {
	return &Action{
		ID:          uuid.New(),
		Description: description,
		redo:        redo,
		undo:        undo,
	}
}

// Stack is the linear undo stack. Not safe for concurrent use; the
// store and its stack live on a single goroutine.
type Stack struct {
	done   []*Action
	undone []*Action
	groups []*group
}

type group struct {
	description string
	actions     []*Action
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push records an already-performed action. Inside a group the action
// lands in the group's private list; otherwise it clears the redo
// history and tops the stack.
func (s *Stack) Push(a *Action) {
	if n := len(s.groups); n > 0 {
		g := s.groups[n-1]
		g.actions = append(g.actions, a)
		return
	}
	s.done = append(s.done, a)
	s.undone = nil
}

// BeginGroup redirects subsequent pushes into a private list until
// EndGroup. Groups nest.
func (s *Stack) BeginGroup(description string) {
	s.groups = append(s.groups, &group{description: description})
}

// EndGroup closes the innermost group and appends one composite action
// whose undo walks the grouped actions in reverse.
func (s *Stack) EndGroup() {
	n := len(s.groups)
	if n == 0 {
		return
	}
	g := s.groups[n-1]
	s.groups = s.groups[:n-1]
	if len(g.actions) == 0 {
		return
	}
	actions := g.actions
	s.Push(New(g.description,
		func() error {
			for _, a := range actions {
				if err := a.redo(); err != nil {
					return err
				}
			}
			return nil
		},
		func() error {
			for i := len(actions) - 1; i >= 0; i-- {
				if err := actions[i].undo(); err != nil {
					return err
				}
			}
			return nil
		}))
}

// CanUndo reports whether an action is available to undo.
func (s *Stack) CanUndo() bool { return len(s.done) > 0 }

// CanRedo reports whether an undone action is available to redo.
func (s *Stack) CanRedo() bool { return len(s.undone) > 0 }

// UndoText is the description of the action Undo would reverse, or "".
func (s *Stack) UndoText() string {
	if !s.CanUndo() {
		return ""
	}
	return s.done[len(s.done)-1].Description
}

// RedoText is the description of the action Redo would re-run, or "".
func (s *Stack) RedoText() string {
	if !s.CanRedo() {
		return ""
	}
	return s.undone[len(s.undone)-1].Description
}

// Undo reverses the most recent action and returns its description.
func (s *Stack) Undo() (string, error) {
	if !s.CanUndo() {
		return "", fmt.Errorf("nothing to undo")
	}
	a := s.done[len(s.done)-1]
	if err := a.undo(); err != nil {
		return a.Description, fmt.Errorf("undo %q: %w", a.Description, err)
	}
	s.done = s.done[:len(s.done)-1]
	s.undone = append(s.undone, a)
	log.Debug().Str("action", a.Description).Msg("undo")
	return a.Description, nil
}

// Redo re-runs the most recently undone action and returns its
// description.
func (s *Stack) Redo() (string, error) {
	if !s.CanRedo() {
		return "", fmt.Errorf("nothing to redo")
	}
	a := s.undone[len(s.undone)-1]
	if err := a.redo(); err != nil {
		return a.Description, fmt.Errorf("redo %q: %w", a.Description, err)
	}
	s.undone = s.undone[:len(s.undone)-1]
	s.done = append(s.done, a)
	log.Debug().Str("action", a.Description).Msg("redo")
	return a.Description, nil
}

// Clear drops all history, for example after loading a new project.
func (s *Stack) Clear() {
	s.done = nil
	s.undone = nil
	s.groups = nil
}
