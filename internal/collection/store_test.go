package collection

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/21-UR-0241/nano-banana/internal/prompt"
	"github.com/21-UR-0241/nano-banana/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	return Open(Options{Storage: mem}), mem
}

func structuredWith(t *testing.T, raw string) *prompt.Structured {
	t.Helper()
	s, err := prompt.Decode(raw)
	require.NoError(t, err)
	return s
}

func TestAddRecentDeduplicatesAndMovesToFront(t *testing.T) {
	s, _ := newTestStore(t)
	params := structuredWith(t, `{"subject":"cat"}`)

	_, ok := s.AddRecent("subject: cat.", params, "", "")
	require.True(t, ok)
	_, ok = s.AddRecent("subject: dog.", structuredWith(t, `{"subject":"dog"}`), "", "")
	require.True(t, ok)

	// identical generation replaces the older entry instead of duplicating
	_, ok = s.AddRecent("subject: cat.", params, "", "")
	require.True(t, ok)

	recents := s.Recents()
	require.Len(t, recents, 2)
	assert.Equal(t, "subject: cat.", recents[0].Prompt)
	assert.Equal(t, "subject: dog.", recents[1].Prompt)
}

func TestAddRecentSkipsEmptyPrompt(t *testing.T) {
	s, _ := newTestStore(t)
	_, ok := s.AddRecent("", structuredWith(t, `{"subject":"cat"}`), "", "")
	assert.False(t, ok)
	assert.Empty(t, s.Recents())
}

func TestRecentsCap(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < MaxRecents+10; i++ {
		raw := fmt.Sprintf(`{"n":"%d"}`, i)
		s.AddRecent(fmt.Sprintf("n: %d.", i), structuredWith(t, raw), "", "")
	}
	assert.Len(t, s.Recents(), MaxRecents)
	// newest first
	assert.Equal(t, fmt.Sprintf("n: %d.", MaxRecents+9), s.Recents()[0].Prompt)
}

func TestRecentsPersistAcrossReopen(t *testing.T) {
	mem := storage.NewMemory()
	s := Open(Options{Storage: mem})
	s.AddRecent("subject: cat.", structuredWith(t, `{"subject":"cat"}`), "", "")

	reopened := Open(Options{Storage: mem})
	recents := reopened.Recents()
	require.Len(t, recents, 1)
	assert.Equal(t, "subject: cat.", recents[0].Prompt)

	v, ok := recents[0].Structured.Get("subject")
	require.True(t, ok)
	assert.Equal(t, "cat", v.Scalar())
}

func TestRecentRenameDeleteClear(t *testing.T) {
	s, _ := newTestStore(t)
	entry, _ := s.AddRecent("subject: cat.", structuredWith(t, `{"subject":"cat"}`), "", "")

	require.True(t, s.RenameRecent(entry.ID, "my cat"))
	assert.Equal(t, "my cat", s.Recents()[0].Name)
	assert.False(t, s.RenameRecent("missing", "x"))

	require.True(t, s.DeleteRecent(entry.ID))
	assert.Empty(t, s.Recents())

	s.AddRecent("subject: dog.", structuredWith(t, `{"subject":"dog"}`), "", "")
	s.ClearRecents()
	assert.Empty(t, s.Recents())
}

func TestSaveProfileDefaultsName(t *testing.T) {
	s, _ := newTestStore(t)
	entry := s.SaveProfile("", structuredWith(t, `{"style":"modern"}`))
	assert.Equal(t, "Untitled Profile", entry.Name)
	assert.NotEmpty(t, entry.ID)
}

func TestSaveTemplateRejectsEmptyPrompt(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.SaveTemplate("x", "")
	assert.Error(t, err)

	entry, err := s.SaveTemplate("", "subject: cat.")
	require.NoError(t, err)
	assert.Equal(t, "Untitled Template", entry.Name)
}

func TestToggleFavorite(t *testing.T) {
	s, _ := newTestStore(t)
	entry := s.SaveProfile("p", structuredWith(t, `{"a":"1"}`))

	fav, ok := s.ToggleFavoriteProfile(entry.ID)
	require.True(t, ok)
	assert.True(t, fav)

	fav, ok = s.ToggleFavoriteProfile(entry.ID)
	require.True(t, ok)
	assert.False(t, fav)

	_, ok = s.ToggleFavoriteProfile("missing")
	assert.False(t, ok)
}

func TestEvictionSparesFavorites(t *testing.T) {
	s, _ := newTestStore(t)

	first := s.SaveProfile("keep-me", structuredWith(t, `{"n":"0"}`))
	_, ok := s.ToggleFavoriteProfile(first.ID)
	require.True(t, ok)

	for i := 1; i <= MaxProfiles; i++ {
		s.SaveProfile(fmt.Sprintf("p%d", i), structuredWith(t, `{"a":"1"}`))
	}

	profiles := s.Profiles()
	require.Len(t, profiles, MaxProfiles)

	_, found := s.Profile(first.ID)
	assert.True(t, found, "the favorited oldest entry survives eviction")
}

func TestExportFilenameUsesDate(t *testing.T) {
	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	s := Open(Options{Storage: storage.NewMemory(), Now: func() time.Time { return fixed }})

	assert.Equal(t, "imagegen-presets-2026-08-31.json", s.ExportFilename())
}

func TestExportImportRoundTrip(t *testing.T) {
	source, _ := newTestStore(t)
	source.SaveProfile("brand", structuredWith(t, `{"style":"modern"}`))
	source.SaveTemplate("launch", "subject: rocket.")

	blob, err := source.Export()
	require.NoError(t, err)

	dest, _ := newTestStore(t)
	profiles, templates, err := dest.Import(blob)
	require.NoError(t, err)
	assert.Equal(t, 1, profiles)
	assert.Equal(t, 1, templates)

	require.Len(t, dest.Profiles(), 1)
	assert.Equal(t, "brand", dest.Profiles()[0].Name)
	require.Len(t, dest.Templates(), 1)
	assert.Equal(t, "launch", dest.Templates()[0].Name)
}

func TestImportToleratesInvalidSubCollections(t *testing.T) {
	s, _ := newTestStore(t)

	templates := []TemplateEntry{{ID: "t1", Name: "ok", Prompt: "subject: cat."}}
	raw, err := json.Marshal(map[string]any{
		"profiles":  "not-an-array",
		"templates": templates,
	})
	require.NoError(t, err)

	p, tl, err := s.Import(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, p)
	assert.Equal(t, 1, tl)
	assert.Empty(t, s.Profiles())
	require.Len(t, s.Templates(), 1)
}

func TestImportRejectsNonObjectBlob(t *testing.T) {
	s, _ := newTestStore(t)
	_, _, err := s.Import([]byte(`["not","an","object"]`))
	assert.Error(t, err)
}

func TestImportMergesAheadOfExisting(t *testing.T) {
	s, _ := newTestStore(t)
	s.SaveTemplate("existing", "subject: cat.")

	blob, err := json.Marshal(ExportBlob{
		Templates: []TemplateEntry{{ID: "t1", Name: "imported", Prompt: "subject: dog."}},
	})
	require.NoError(t, err)

	_, n, err := s.Import(blob)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	templates := s.Templates()
	require.Len(t, templates, 2)
	assert.Equal(t, "imported", templates[0].Name)
	assert.Equal(t, "existing", templates[1].Name)
}
