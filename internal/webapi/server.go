// Package webapi exposes the prompt studio over HTTP: session editing,
// generation, collections and preset transfer, plus the embedded page.
package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/21-UR-0241/nano-banana/internal/imagegen"
	"github.com/21-UR-0241/nano-banana/internal/storage"
	"github.com/21-UR-0241/nano-banana/internal/studio"
)

type Options struct {
	Manager *studio.Manager
	Storage storage.Store
	Static  fs.FS
	Logger  *slog.Logger
}

type Server struct {
	manager *studio.Manager
	store   storage.Store
	static  fs.FS
	logger  *slog.Logger
}

type apiError struct {
	Error string `json:"error"`
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		manager: opts.Manager,
		store:   opts.Storage,
		static:  opts.Static,
		logger:  logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("POST /api/session/prompt", s.handlePromptEdit)
	mux.HandleFunc("POST /api/session/structured", s.handleStructuredEdit)
	mux.HandleFunc("POST /api/session/autosync", s.handleAutoSync)
	mux.HandleFunc("POST /api/session/undo", s.handleUndo)
	mux.HandleFunc("POST /api/session/redo", s.handleRedo)
	mux.HandleFunc("POST /api/session/reference", s.handleSetReference)
	mux.HandleFunc("DELETE /api/session/reference", s.handleClearReference)

	mux.HandleFunc("POST /api/generate-image", s.handleGenerate)

	mux.HandleFunc("GET /api/formats", s.handleFormats)
	mux.HandleFunc("POST /api/formats/select", s.handleSelectFormat)

	mux.HandleFunc("GET /api/recents", s.handleRecents)
	mux.HandleFunc("DELETE /api/recents", s.handleClearRecents)
	mux.HandleFunc("DELETE /api/recents/{id}", s.handleDeleteRecent)
	mux.HandleFunc("PATCH /api/recents/{id}", s.handleRenameRecent)

	mux.HandleFunc("GET /api/profiles", s.handleProfiles)
	mux.HandleFunc("POST /api/profiles", s.handleSaveProfile)
	mux.HandleFunc("PATCH /api/profiles/{id}", s.handleRenameProfile)
	mux.HandleFunc("DELETE /api/profiles/{id}", s.handleDeleteProfile)
	mux.HandleFunc("POST /api/profiles/{id}/favorite", s.handleFavoriteProfile)

	mux.HandleFunc("GET /api/templates", s.handleTemplates)
	mux.HandleFunc("POST /api/templates", s.handleSaveTemplate)
	mux.HandleFunc("PATCH /api/templates/{id}", s.handleRenameTemplate)
	mux.HandleFunc("DELETE /api/templates/{id}", s.handleDeleteTemplate)
	mux.HandleFunc("POST /api/templates/{id}/favorite", s.handleFavoriteTemplate)

	mux.HandleFunc("GET /api/presets/export", s.handleExport)
	mux.HandleFunc("POST /api/presets/import", s.handleImport)

	mux.HandleFunc("GET /api/theme", s.handleTheme)
	mux.HandleFunc("POST /api/theme", s.handleSetTheme)

	if s.static != nil {
		mux.Handle("/", http.FileServer(http.FS(s.static)))
	}

	return withLogging(mux, s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionState struct {
	PromptText     string          `json:"promptText"`
	Structured     json.RawMessage `json:"json"`
	AutoSync       bool            `json:"autoSync"`
	ParseError     bool            `json:"parseError"`
	CanUndo        bool            `json:"canUndo"`
	CanRedo        bool            `json:"canRedo"`
	ReferenceImage string          `json:"referenceImage,omitempty"`
}

func (s *Server) sessionState() sessionState {
	session := s.manager.Session()
	return sessionState{
		PromptText:     session.PromptText(),
		Structured:     json.RawMessage(session.Structured().Encode()),
		AutoSync:       session.AutoSync(),
		ParseError:     session.ParseError(),
		CanUndo:        session.CanUndo(),
		CanRedo:        session.CanRedo(),
		ReferenceImage: session.ReferenceImage(),
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionState())
}

func (s *Server) handlePromptEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.manager.Session().OnPromptEdited(req.Text)
	writeJSON(w, http.StatusOK, s.sessionState())
}

func (s *Server) handleStructuredEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JSON string `json:"json"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.manager.Session().OnStructuredEdited(req.JSON); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid structured parameters"})
		return
	}
	writeJSON(w, http.StatusOK, s.sessionState())
}

func (s *Server) handleAutoSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.manager.Session().SetAutoSync(req.Enabled)
	writeJSON(w, http.StatusOK, s.sessionState())
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.manager.Session().Undo(); !ok {
		writeJSON(w, http.StatusConflict, apiError{Error: "nothing to undo"})
		return
	}
	writeJSON(w, http.StatusOK, s.sessionState())
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.manager.Session().Redo(); !ok {
		writeJSON(w, http.StatusConflict, apiError{Error: "nothing to redo"})
		return
	}
	writeJSON(w, http.StatusOK, s.sessionState())
}

func (s *Server) handleSetReference(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Image == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "image is required"})
		return
	}
	s.manager.Session().SetReferenceImage(req.Image)
	writeJSON(w, http.StatusOK, s.sessionState())
}

func (s *Server) handleClearReference(w http.ResponseWriter, r *http.Request) {
	s.manager.Session().ClearReferenceImage()
	writeJSON(w, http.StatusOK, s.sessionState())
}

type generateResponse struct {
	Images       []string      `json:"images"`
	GenerationID string        `json:"generationId"`
	Format       studio.Format `json:"format"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	if req.Prompt != "" {
		s.manager.Session().OnPromptEdited(req.Prompt)
	}

	result, err := s.manager.Generate(r.Context())
	switch {
	case errors.Is(err, studio.ErrGenerationInProgress):
		writeJSON(w, http.StatusConflict, apiError{Error: "a generation is already in progress"})
		return
	case errors.Is(err, studio.ErrEmptyPrompt):
		writeJSON(w, http.StatusBadRequest, apiError{Error: "prompt is empty"})
		return
	case err != nil:
		if genErr, ok := imagegen.AsError(err); ok {
			writeJSON(w, genErr.HTTPStatus(), apiError{Error: genErr.Message()})
			return
		}
		s.logger.Error("generation failed", "err", err)
		writeJSON(w, http.StatusBadGateway, apiError{Error: "image generation failed"})
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Images:       result.Images,
		GenerationID: result.GenerationID,
		Format:       result.Format,
	})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"formats":  studio.Formats(),
		"selected": s.manager.SelectedFormat().ID,
	})
}

func (s *Server) handleSelectFormat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.manager.SelectFormat(req.ID); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "unknown format"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": req.ID})
}

func (s *Server) handleRecents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Collections().Recents())
}

func (s *Server) handleClearRecents(w http.ResponseWriter, r *http.Request) {
	s.manager.Collections().ClearRecents()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteRecent(w http.ResponseWriter, r *http.Request) {
	if !s.manager.Collections().DeleteRecent(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRenameRecent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.manager.Collections().RenameRecent(r.PathValue("id"), req.Name) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Collections().Recents())
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Collections().Profiles())
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	structured := s.manager.Session().Structured()
	if structured.Len() == 0 {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "no structured parameters to save"})
		return
	}
	entry := s.manager.Collections().SaveProfile(req.Name, structured)
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleRenameProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.manager.Collections().RenameProfile(r.PathValue("id"), req.Name) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Collections().Profiles())
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if !s.manager.Collections().DeleteProfile(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFavoriteProfile(w http.ResponseWriter, r *http.Request) {
	favorite, ok := s.manager.Collections().ToggleFavoriteProfile(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": favorite})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Collections().Templates())
}

func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string `json:"name"`
		Prompt string `json:"prompt"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	promptText := req.Prompt
	if promptText == "" {
		promptText = s.manager.Session().PromptText()
	}
	entry, err := s.manager.Collections().SaveTemplate(req.Name, promptText)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "prompt is empty"})
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleRenameTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.manager.Collections().RenameTemplate(r.PathValue("id"), req.Name) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Collections().Templates())
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if !s.manager.Collections().DeleteTemplate(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFavoriteTemplate(w http.ResponseWriter, r *http.Request) {
	favorite, ok := s.manager.Collections().ToggleFavoriteTemplate(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": favorite})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	blob, err := s.manager.Collections().Export()
	if err != nil {
		s.logger.Error("presets export failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "export failed"})
		return
	}
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("content-disposition",
		fmt.Sprintf("attachment; filename=%q", s.manager.Collections().ExportFilename()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	const maxImportBytes = 10 << 20
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "failed to read body"})
		return
	}

	profiles, templates, err := s.manager.Collections().Import(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid presets file"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"profiles":  profiles,
		"templates": templates,
	})
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	theme := "dark"
	if s.store != nil {
		if raw, ok, err := s.store.Get(storage.KeyTheme); err == nil && ok {
			theme = raw
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": theme})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Theme != "dark" && req.Theme != "light" {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "theme must be dark or light"})
		return
	}
	if s.store != nil {
		if err := s.store.Set(storage.KeyTheme, req.Theme); err != nil {
			s.logger.Error("persist theme failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, apiError{Error: "persist failed"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": req.Theme})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
