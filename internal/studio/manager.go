// Package studio ties one prompt session, the collections and a
// generation client together behind a single editing surface.
package studio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/21-UR-0241/nano-banana/internal/collection"
	"github.com/21-UR-0241/nano-banana/internal/imagegen"
	"github.com/21-UR-0241/nano-banana/internal/prompt"
	"github.com/21-UR-0241/nano-banana/internal/storage"
)

var (
	// ErrGenerationInProgress rejects a Generate call while another one
	// is still outstanding. Requests are never queued or merged.
	ErrGenerationInProgress = errors.New("generation already in progress")
	ErrEmptyPrompt          = errors.New("prompt is empty")
)

const defaultClearAfter = 2 * time.Minute

type ManagerOptions struct {
	Session     *prompt.Session
	Collections *collection.Store
	Client      imagegen.Client
	Storage     storage.Store
	Logger      *slog.Logger
	// ClearAfter bounds how long the in-progress flag can stay set if a
	// request never returns.
	ClearAfter time.Duration
}

// Manager owns the session lifecycle of one editing surface.
type Manager struct {
	session     *prompt.Session
	collections *collection.Store
	client      imagegen.Client
	store       storage.Store
	logger      *slog.Logger
	clearAfter  time.Duration

	mu         sync.Mutex
	inProgress bool
	clearTimer *time.Timer
	formatID   string
}

func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	clearAfter := opts.ClearAfter
	if clearAfter <= 0 {
		clearAfter = defaultClearAfter
	}

	m := &Manager{
		session:     opts.Session,
		collections: opts.Collections,
		client:      opts.Client,
		store:       opts.Storage,
		logger:      logger,
		clearAfter:  clearAfter,
		formatID:    DefaultFormatID,
	}

	if m.store != nil {
		if raw, ok, err := m.store.Get(storage.KeyFormat); err == nil && ok {
			if _, known := FormatByID(raw); known {
				m.formatID = raw
			}
		}
	}

	return m
}

func (m *Manager) Session() *prompt.Session { return m.session }

func (m *Manager) Collections() *collection.Store { return m.collections }

// SelectedFormat returns the active output format.
func (m *Manager) SelectedFormat() Format {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, _ := FormatByID(m.formatID)
	return f
}

// SelectFormat switches the active output format and persists the choice.
func (m *Manager) SelectFormat(id string) error {
	if _, ok := FormatByID(id); !ok {
		return errors.New("unknown format: " + id)
	}

	m.mu.Lock()
	m.formatID = id
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Set(storage.KeyFormat, id); err != nil {
			m.logger.Warn("persist format selection failed", "error", err)
		}
	}
	return nil
}

// GenerateResult is one finished generation.
type GenerateResult struct {
	Images       []string
	GenerationID string
	Format       Format
}

// Generate runs one generation against the provider. It rejects
// immediately while another call is outstanding, stamps the structured
// prompt with format and uniqueness parameters, and on success records
// a recents entry. Session state is untouched on failure.
func (m *Manager) Generate(ctx context.Context) (GenerateResult, error) {
	promptText := m.session.PromptText()
	if promptText == "" {
		return GenerateResult{}, ErrEmptyPrompt
	}

	m.mu.Lock()
	if m.inProgress {
		m.mu.Unlock()
		return GenerateResult{}, ErrGenerationInProgress
	}
	m.inProgress = true
	m.clearTimer = time.AfterFunc(m.clearAfter, func() {
		m.mu.Lock()
		if m.inProgress {
			m.inProgress = false
			m.logger.Warn("generation flag auto-cleared", "after", m.clearAfter)
		}
		m.mu.Unlock()
	})
	format, _ := FormatByID(m.formatID)
	m.mu.Unlock()

	defer m.clearInProgress()

	generationID := uuid.NewString()
	stamped := m.stamp(format, generationID)
	referenceImage := m.session.ReferenceImage()

	m.logger.Info("generation started",
		"generation_id", generationID,
		"format", format.ID,
		"prompt_len", len(promptText),
	)

	result, err := m.client.Generate(ctx, imagegen.Request{
		Prompt:         promptText,
		AspectRatio:    format.AspectRatio,
		SampleCount:    1,
		ReferenceImage: referenceImage,
	})
	if err != nil {
		m.logger.Warn("generation failed", "generation_id", generationID, "error", err)
		return GenerateResult{}, err
	}

	m.collections.AddRecent(promptText, stamped, referenceImage, "")
	m.logger.Info("generation finished",
		"generation_id", generationID,
		"images", len(result.Images),
	)

	return GenerateResult{
		Images:       result.Images,
		GenerationID: generationID,
		Format:       format,
	}, nil
}

// GenerationInProgress reports whether a Generate call is outstanding.
func (m *Manager) GenerationInProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inProgress
}

func (m *Manager) clearInProgress() {
	m.mu.Lock()
	m.inProgress = false
	if m.clearTimer != nil {
		m.clearTimer.Stop()
		m.clearTimer = nil
	}
	m.mu.Unlock()
}

// stamp copies the session's structured prompt and adds the output
// format plus per-request uniqueness parameters.
func (m *Manager) stamp(format Format, generationID string) *prompt.Structured {
	stamped := m.session.Structured()
	stamped.Set("aspectRatio", prompt.Scalar(format.AspectRatio))
	stamped.Set("format", prompt.Scalar(format.ID))
	stamped.Set("dimensions", prompt.Scalar(strconv.Itoa(format.Width)+"x"+strconv.Itoa(format.Height)))
	stamped.Set("platform", prompt.Scalar(format.Platform))
	stamped.Set("seed", prompt.Scalar(strconv.Itoa(rand.IntN(1_000_000))))
	stamped.Set("nonce", prompt.Scalar(strconv.FormatInt(time.Now().UnixMilli(), 36)))
	stamped.Set("generationId", prompt.Scalar(generationID))
	return stamped
}
