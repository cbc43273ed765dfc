package collection

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/21-UR-0241/nano-banana/internal/prompt"
	"github.com/21-UR-0241/nano-banana/internal/storage"
)

type Options struct {
	Storage storage.Store
	Logger  *slog.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Store owns the three persisted collections. Each collection loads once
// at startup and is written back in full after every mutation; a payload
// that fails to decode loads as empty rather than blocking startup.
type Store struct {
	mu     sync.Mutex
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time

	recents   []RecentEntry
	profiles  []ProfileEntry
	templates []TemplateEntry
}

func Open(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Store{
		store:  opts.Storage,
		logger: logger,
		now:    now,
	}
	s.load(storage.KeyRecents, &s.recents)
	s.load(storage.KeyProfiles, &s.profiles)
	s.load(storage.KeyTemplates, &s.templates)
	return s
}

func (s *Store) load(key string, dst any) {
	raw, ok, err := s.store.Get(key)
	if err != nil {
		s.logger.Warn("collection load failed", "key", key, "err", err)
		return
	}
	if !ok || raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("collection payload corrupt, starting empty", "key", key, "err", err)
	}
}

func (s *Store) persist(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("collection encode failed", "key", key, "err", err)
		return
	}
	if err := s.store.Set(key, string(data)); err != nil {
		s.logger.Warn("collection persist failed", "key", key, "err", err)
	}
}

// ---- Recents ----

// AddRecent prepends a generated request. An existing entry with the
// same prompt text and structured serialization is removed first, so a
// repeat generation moves to the front instead of duplicating.
func (s *Store) AddRecent(promptText string, structured *prompt.Structured, referenceImage, name string) (RecentEntry, bool) {
	if promptText == "" {
		return RecentEntry{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := RecentEntry{
		ID:             uuid.NewString(),
		Name:           name,
		Prompt:         promptText,
		Structured:     structured.Clone(),
		ReferenceImage: referenceImage,
		CreatedAt:      s.now().UnixMilli(),
	}

	encoded := structured.Encode()
	kept := make([]RecentEntry, 0, len(s.recents)+1)
	kept = append(kept, entry)
	for _, r := range s.recents {
		if r.Prompt == entry.Prompt && r.Structured.Encode() == encoded {
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) > MaxRecents {
		kept = kept[:MaxRecents]
	}

	s.recents = kept
	s.persist(storage.KeyRecents, s.recents)
	return entry, true
}

func (s *Store) Recents() []RecentEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecentEntry(nil), s.recents...)
}

func (s *Store) RenameRecent(id, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.recents {
		if s.recents[i].ID == id {
			s.recents[i].Name = name
			s.persist(storage.KeyRecents, s.recents)
			return true
		}
	}
	return false
}

func (s *Store) DeleteRecent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.recents {
		if s.recents[i].ID == id {
			s.recents = append(s.recents[:i], s.recents[i+1:]...)
			s.persist(storage.KeyRecents, s.recents)
			return true
		}
	}
	return false
}

func (s *Store) ClearRecents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recents = nil
	s.persist(storage.KeyRecents, s.recents)
}

// ---- Profiles ----

func (s *Store) SaveProfile(name string, structured *prompt.Structured) ProfileEntry {
	if name == "" {
		name = "Untitled Profile"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixMilli()
	entry := ProfileEntry{
		ID:         uuid.NewString(),
		Name:       name,
		Structured: structured.Clone(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.profiles = append([]ProfileEntry{entry}, s.profiles...)
	s.profiles = evictProfiles(s.profiles, MaxProfiles)
	s.persist(storage.KeyProfiles, s.profiles)
	return entry
}

func (s *Store) Profiles() []ProfileEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ProfileEntry(nil), s.profiles...)
}

func (s *Store) Profile(id string) (ProfileEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.profiles {
		if p.ID == id {
			return p, true
		}
	}
	return ProfileEntry{}, false
}

func (s *Store) RenameProfile(id, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.profiles {
		if s.profiles[i].ID == id {
			s.profiles[i].Name = name
			s.profiles[i].UpdatedAt = s.now().UnixMilli()
			s.persist(storage.KeyProfiles, s.profiles)
			return true
		}
	}
	return false
}

func (s *Store) DeleteProfile(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.profiles {
		if s.profiles[i].ID == id {
			s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
			s.persist(storage.KeyProfiles, s.profiles)
			return true
		}
	}
	return false
}

// ToggleFavoriteProfile flips the flag and returns its new value.
func (s *Store) ToggleFavoriteProfile(id string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.profiles {
		if s.profiles[i].ID == id {
			s.profiles[i].Favorite = !s.profiles[i].Favorite
			s.persist(storage.KeyProfiles, s.profiles)
			return s.profiles[i].Favorite, true
		}
	}
	return false, false
}

// ---- Templates ----

func (s *Store) SaveTemplate(name, promptText string) (TemplateEntry, error) {
	if promptText == "" {
		return TemplateEntry{}, fmt.Errorf("template prompt is empty")
	}
	if name == "" {
		name = "Untitled Template"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixMilli()
	entry := TemplateEntry{
		ID:        uuid.NewString(),
		Name:      name,
		Prompt:    promptText,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.templates = append([]TemplateEntry{entry}, s.templates...)
	s.templates = evictTemplates(s.templates, MaxTemplates)
	s.persist(storage.KeyTemplates, s.templates)
	return entry, nil
}

func (s *Store) Templates() []TemplateEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TemplateEntry(nil), s.templates...)
}

func (s *Store) Template(id string) (TemplateEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.templates {
		if t.ID == id {
			return t, true
		}
	}
	return TemplateEntry{}, false
}

func (s *Store) RenameTemplate(id, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.templates {
		if s.templates[i].ID == id {
			s.templates[i].Name = name
			s.templates[i].UpdatedAt = s.now().UnixMilli()
			s.persist(storage.KeyTemplates, s.templates)
			return true
		}
	}
	return false
}

func (s *Store) DeleteTemplate(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.templates {
		if s.templates[i].ID == id {
			s.templates = append(s.templates[:i], s.templates[i+1:]...)
			s.persist(storage.KeyTemplates, s.templates)
			return true
		}
	}
	return false
}

func (s *Store) ToggleFavoriteTemplate(id string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.templates {
		if s.templates[i].ID == id {
			s.templates[i].Favorite = !s.templates[i].Favorite
			s.persist(storage.KeyTemplates, s.templates)
			return s.templates[i].Favorite, true
		}
	}
	return false, false
}

// ---- Export / Import ----

// Export serializes profiles and templates as one interchange blob.
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob := ExportBlob{
		Profiles:  append([]ProfileEntry{}, s.profiles...),
		Templates: append([]TemplateEntry{}, s.templates...),
	}
	return json.MarshalIndent(blob, "", "  ")
}

// ExportFilename names the download after the current date.
func (s *Store) ExportFilename() string {
	return "imagegen-presets-" + s.now().Format("2006-01-02") + ".json"
}

// Import merges entries from an exported blob ahead of existing ones,
// subject to the caps. A sub-collection that is missing or not an array
// imports zero entries; only a blob that is not a JSON object at all
// fails.
func (s *Store) Import(blob []byte) (profiles, templates int, err error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(blob, &raw); err != nil {
		return 0, 0, fmt.Errorf("decode import blob: %w", err)
	}

	var importedProfiles []ProfileEntry
	if data, ok := raw["profiles"]; ok {
		if err := json.Unmarshal(data, &importedProfiles); err != nil {
			importedProfiles = nil
		}
	}
	var importedTemplates []TemplateEntry
	if data, ok := raw["templates"]; ok {
		if err := json.Unmarshal(data, &importedTemplates); err != nil {
			importedTemplates = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(importedProfiles) > 0 {
		s.profiles = evictProfiles(append(importedProfiles, s.profiles...), MaxProfiles)
		s.persist(storage.KeyProfiles, s.profiles)
	}
	if len(importedTemplates) > 0 {
		s.templates = evictTemplates(append(importedTemplates, s.templates...), MaxTemplates)
		s.persist(storage.KeyTemplates, s.templates)
	}

	return len(importedProfiles), len(importedTemplates), nil
}

// evictProfiles trims to the cap, dropping the oldest non-favorite
// entries first. Favorites go only when the whole list is favorited.
func evictProfiles(list []ProfileEntry, limit int) []ProfileEntry {
	for len(list) > limit {
		idx := -1
		for i := len(list) - 1; i >= 0; i-- {
			if !list[i].Favorite {
				idx = i
				break
			}
		}
		if idx < 0 {
			idx = len(list) - 1
		}
		list = append(list[:idx], list[idx+1:]...)
	}
	return list
}

func evictTemplates(list []TemplateEntry, limit int) []TemplateEntry {
	for len(list) > limit {
		idx := -1
		for i := len(list) - 1; i >= 0; i-- {
			if !list[i].Favorite {
				idx = i
				break
			}
		}
		if idx < 0 {
			idx = len(list) - 1
		}
		list = append(list[:idx], list[idx+1:]...)
	}
	return list
}
