package prompt

import "github.com/google/uuid"

// MaxHistoryDepth bounds the undo stack; the oldest snapshot is dropped
// past this point.
const MaxHistoryDepth = 100

// Snapshot is one immutable point-in-time state of a session.
type Snapshot struct {
	ID             string
	PromptText     string
	Structured     *Structured
	ReferenceImage string
}

func newSnapshot(promptText string, structured *Structured, referenceImage string) Snapshot {
	return Snapshot{
		ID:             uuid.NewString(),
		PromptText:     promptText,
		Structured:     structured.Clone(),
		ReferenceImage: referenceImage,
	}
}

func (s Snapshot) equal(other Snapshot) bool {
	return s.PromptText == other.PromptText &&
		s.ReferenceImage == other.ReferenceImage &&
		s.Structured.Equal(other.Structured)
}

// History keeps the undo/redo stacks. The head of the undo stack is the
// state currently shown, so undo needs at least two entries.
type History struct {
	undo []Snapshot // most recent first
	redo []Snapshot
}

func NewHistory() *History {
	return &History{}
}

// Push records a new state. Identical successive states are coalesced;
// a distinct state clears the redo stack and trims the undo stack to
// MaxHistoryDepth.
func (h *History) Push(snap Snapshot) bool {
	if len(h.undo) > 0 && h.undo[0].equal(snap) {
		return false
	}

	h.undo = append([]Snapshot{snap}, h.undo...)
	if len(h.undo) > MaxHistoryDepth {
		h.undo = h.undo[:MaxHistoryDepth]
	}
	h.redo = nil
	return true
}

func (h *History) CanUndo() bool { return len(h.undo) > 1 }

func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Undo moves the current state to the redo stack and returns the state
// to display. The second return is false when there is nothing to undo.
func (h *History) Undo() (Snapshot, bool) {
	if !h.CanUndo() {
		return Snapshot{}, false
	}
	current := h.undo[0]
	h.undo = h.undo[1:]
	h.redo = append([]Snapshot{current}, h.redo...)
	return h.undo[0], true
}

// Redo restores the most recently undone state.
func (h *History) Redo() (Snapshot, bool) {
	if !h.CanRedo() {
		return Snapshot{}, false
	}
	next := h.redo[0]
	h.redo = h.redo[1:]
	h.undo = append([]Snapshot{next}, h.undo...)
	return next, true
}

func (h *History) Depth() int { return len(h.undo) }
