package studio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/21-UR-0241/nano-banana/internal/collection"
	"github.com/21-UR-0241/nano-banana/internal/imagegen"
	"github.com/21-UR-0241/nano-banana/internal/prompt"
	"github.com/21-UR-0241/nano-banana/internal/storage"
)

// fakeClient blocks until released so tests can hold a generation open.
type fakeClient struct {
	mu      sync.Mutex
	calls   int
	block   chan struct{}
	err     error
	lastReq imagegen.Request
}

func (f *fakeClient) Generate(ctx context.Context, req imagegen.Request) (imagegen.Result, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	block := f.block
	err := f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return imagegen.Result{}, ctx.Err()
		}
	}
	if err != nil {
		return imagegen.Result{}, err
	}
	return imagegen.Result{Images: []string{"data:image/png;base64,Zg=="}}, nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestManager(t *testing.T, client imagegen.Client) (*Manager, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	session := prompt.NewSession(prompt.SessionOptions{Storage: mem})
	collections := collection.Open(collection.Options{Storage: mem})
	m := NewManager(ManagerOptions{
		Session:     session,
		Collections: collections,
		Client:      client,
		Storage:     mem,
	})
	return m, mem
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	m, _ := newTestManager(t, &fakeClient{})
	_, err := m.Generate(context.Background())
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestGenerateSuccessRecordsRecent(t *testing.T) {
	client := &fakeClient{}
	m, _ := newTestManager(t, client)
	m.Session().OnPromptEdited("subject: cat")

	result, err := m.Generate(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Images, 1)
	assert.NotEmpty(t, result.GenerationID)
	assert.Equal(t, DefaultFormatID, result.Format.ID)
	assert.Equal(t, "1:1", client.lastReq.AspectRatio)

	recents := m.Collections().Recents()
	require.Len(t, recents, 1)
	assert.Equal(t, "subject: cat", recents[0].Prompt)

	// the stored parameters carry the stamps
	for _, key := range []string{"aspectRatio", "format", "dimensions", "platform", "seed", "nonce", "generationId"} {
		_, ok := recents[0].Structured.Get(key)
		assert.True(t, ok, "missing stamp %s", key)
	}

	// the session's own parameters stay unstamped
	_, ok := m.Session().Structured().Get("seed")
	assert.False(t, ok)
}

func TestGenerateRejectsConcurrentCall(t *testing.T) {
	client := &fakeClient{block: make(chan struct{})}
	m, _ := newTestManager(t, client)
	m.Session().OnPromptEdited("subject: cat")

	done := make(chan error, 1)
	go func() {
		_, err := m.Generate(context.Background())
		done <- err
	}()

	require.Eventually(t, m.GenerationInProgress, time.Second, 5*time.Millisecond)

	_, err := m.Generate(context.Background())
	assert.ErrorIs(t, err, ErrGenerationInProgress)

	close(client.block)
	require.NoError(t, <-done)

	assert.Equal(t, 1, client.callCount())
	assert.Len(t, m.Collections().Recents(), 1, "the rejected call must not add a second entry")
	assert.False(t, m.GenerationInProgress())
}

func TestGenerateFailureLeavesRecentsUntouched(t *testing.T) {
	client := &fakeClient{err: &imagegen.Error{Category: imagegen.CategoryInvalidPrompt, Provider: "google"}}
	m, _ := newTestManager(t, client)
	m.Session().OnPromptEdited("subject: cat")

	_, err := m.Generate(context.Background())
	require.Error(t, err)

	genErr, ok := imagegen.AsError(err)
	require.True(t, ok)
	assert.Equal(t, imagegen.CategoryInvalidPrompt, genErr.Category)

	assert.Empty(t, m.Collections().Recents())
	assert.False(t, m.GenerationInProgress())

	// the manager accepts a new call after the failure
	client.mu.Lock()
	client.err = nil
	client.mu.Unlock()
	_, err = m.Generate(context.Background())
	assert.NoError(t, err)
}

func TestInProgressFlagAutoClears(t *testing.T) {
	client := &fakeClient{block: make(chan struct{})}
	mem := storage.NewMemory()
	m := NewManager(ManagerOptions{
		Session:     prompt.NewSession(prompt.SessionOptions{Storage: mem}),
		Collections: collection.Open(collection.Options{Storage: mem}),
		Client:      client,
		Storage:     mem,
		ClearAfter:  20 * time.Millisecond,
	})
	m.Session().OnPromptEdited("subject: cat")

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _, _ = m.Generate(ctx) }()

	require.Eventually(t, m.GenerationInProgress, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !m.GenerationInProgress() }, time.Second, 5*time.Millisecond)

	cancel()
	close(client.block)
}

func TestSelectFormatPersists(t *testing.T) {
	m, mem := newTestManager(t, &fakeClient{})

	require.NoError(t, m.SelectFormat("landscape"))
	assert.Equal(t, "16:9", m.SelectedFormat().AspectRatio)

	raw, ok, err := mem.Get(storage.KeyFormat)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "landscape", raw)

	// a new manager over the same store picks the selection up
	session := prompt.NewSession(prompt.SessionOptions{Storage: mem})
	reopened := NewManager(ManagerOptions{
		Session:     session,
		Collections: collection.Open(collection.Options{Storage: mem}),
		Client:      &fakeClient{},
		Storage:     mem,
	})
	assert.Equal(t, "landscape", reopened.SelectedFormat().ID)

	assert.Error(t, m.SelectFormat("cinema"))
}

func TestFormatCatalog(t *testing.T) {
	formats := Formats()
	require.Len(t, formats, 4)

	landscape, ok := FormatByID("landscape")
	require.True(t, ok)
	assert.Equal(t, 1920, landscape.Width)
	assert.Equal(t, 1080, landscape.Height)
	assert.Equal(t, "YouTube Thumbnail", landscape.Platform)

	_, ok = FormatByID("nope")
	assert.False(t, ok)
}
