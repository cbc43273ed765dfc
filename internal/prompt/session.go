package prompt

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/21-UR-0241/nano-banana/internal/storage"
)

// ErrInvalidStructured is surfaced while the structured editor holds text
// that does not deserialize; the committed store keeps its previous value
// until the input parses again.
var ErrInvalidStructured = errors.New("invalid structured prompt")

type SessionOptions struct {
	// Storage persists the auto-sync preference. Optional; a nil store
	// keeps the flag in memory only.
	Storage storage.Store
	Logger  *slog.Logger
}

// Session is one editable generation request: prompt text, structured
// parameters and an optional reference image, plus the sync controller
// that keeps the two representations consistent and the undo/redo
// history.
//
// Sync invariant: a representation is never overwritten when its
// canonical serialization already matches what would be written. Without
// that guard the two editors fight over every keystroke.
type Session struct {
	mu sync.Mutex

	promptText     string
	structured     *Structured
	referenceImage string

	autoSync bool
	parseErr bool

	history *History
	store   storage.Store
	logger  *slog.Logger
}

func NewSession(opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Session{
		structured: NewStructured(),
		autoSync:   true,
		history:    NewHistory(),
		store:      opts.Storage,
		logger:     logger,
	}

	if s.store != nil {
		if raw, ok, err := s.store.Get(storage.KeyAutoSync); err == nil && ok {
			if parsed, err := strconv.ParseBool(raw); err == nil {
				s.autoSync = parsed
			}
		}
	}

	return s
}

// Seed replaces the whole session state, typically from the onboarding
// wizard or a loaded collection entry, and records it as a snapshot.
func (s *Session) Seed(promptText string, structured *Structured, referenceImage string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.promptText = promptText
	s.structured = structured.Clone()
	s.referenceImage = referenceImage
	s.parseErr = false
	s.recordLocked()
}

// OnPromptEdited stores edited prompt text and, with auto-sync on, folds
// the parsed result back into the structured store unless its
// serialization is already identical.
func (s *Session) OnPromptEdited(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.promptText = text

	if s.autoSync {
		parsed := Parse(text, s.structured)
		if parsed.Encode() != s.structured.Encode() {
			s.structured = parsed
			s.parseErr = false
		}
	}

	s.recordLocked()
}

// OnStructuredEdited attempts to commit edited structured text. On
// malformed input the parse-error state is set, the committed structured
// store and prompt text stay untouched, and ErrInvalidStructured is
// returned for the surface to display.
func (s *Session) OnStructuredEdited(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	decoded, err := Decode(raw)
	if err != nil {
		s.parseErr = true
		return ErrInvalidStructured
	}

	s.parseErr = false
	s.structured = decoded

	if s.autoSync {
		if text := Synthesize(decoded); text != s.promptText {
			s.promptText = text
		}
	}

	s.recordLocked()
	return nil
}

func (s *Session) SetReferenceImage(dataURI string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.referenceImage = dataURI
	s.recordLocked()
}

func (s *Session) ClearReferenceImage() {
	s.SetReferenceImage("")
}

// SetAutoSync flips the sync mode. Re-enabling does not reconcile the
// representations retroactively; it only affects future edits.
func (s *Session) SetAutoSync(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.autoSync = enabled
	if s.store != nil {
		if err := s.store.Set(storage.KeyAutoSync, strconv.FormatBool(enabled)); err != nil {
			s.logger.Warn("persist auto-sync failed", "err", err)
		}
	}
}

func (s *Session) AutoSync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoSync
}

func (s *Session) ParseError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parseErr
}

func (s *Session) PromptText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promptText
}

func (s *Session) Structured() *Structured {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.structured.Clone()
}

// StructuredJSON returns the indented serialization shown in editors.
func (s *Session) StructuredJSON() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.structured.EncodeIndent()
}

func (s *Session) ReferenceImage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.referenceImage
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// Undo steps back to the previous distinct state and applies it.
func (s *Session) Undo() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.history.Undo()
	if !ok {
		return Snapshot{}, false
	}
	s.applyLocked(snap)
	return snap, true
}

// Redo restores the state current before the last Undo.
func (s *Session) Redo() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.history.Redo()
	if !ok {
		return Snapshot{}, false
	}
	s.applyLocked(snap)
	return snap, true
}

func (s *Session) applyLocked(snap Snapshot) {
	s.promptText = snap.PromptText
	s.structured = snap.Structured.Clone()
	s.referenceImage = snap.ReferenceImage
	s.parseErr = false
}

func (s *Session) recordLocked() {
	s.history.Push(newSnapshot(s.promptText, s.structured, s.referenceImage))
}
