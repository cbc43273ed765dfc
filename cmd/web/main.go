package main

import (
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/21-UR-0241/nano-banana/internal/collection"
	"github.com/21-UR-0241/nano-banana/internal/config"
	"github.com/21-UR-0241/nano-banana/internal/httpclient"
	"github.com/21-UR-0241/nano-banana/internal/imagegen"
	"github.com/21-UR-0241/nano-banana/internal/prompt"
	"github.com/21-UR-0241/nano-banana/internal/storage"
	"github.com/21-UR-0241/nano-banana/internal/studio"
	"github.com/21-UR-0241/nano-banana/internal/webapi"
)

//go:embed static/*
var staticFS embed.FS

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	client, err := imagegen.New(imagegen.Options{
		Provider: cfg.ImageProvider,
		Google: imagegen.GoogleOptions{
			APIKey:     cfg.GoogleAPIKey,
			BaseURL:    cfg.GoogleBaseURL,
			APIVersion: cfg.GoogleAPIVersion,
			Model:      cfg.GoogleModel,
			HTTPClient: httpClient,
			Logger:     logger,
		},
		Stability: imagegen.StabilityOptions{
			APIKey:     cfg.StabilityAPIKey,
			BaseURL:    cfg.StabilityBaseURL,
			Engine:     cfg.StabilityEngine,
			HTTPClient: httpClient,
			Logger:     logger,
		},
	})
	if err != nil {
		logger.Error("image client init failed", "err", err)
		os.Exit(1)
	}

	store, err := storage.OpenSQLite(cfg.StoragePath)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	collections := collection.Open(collection.Options{
		Storage: store,
		Logger:  logger,
	})

	session := prompt.NewSession(prompt.SessionOptions{
		Storage: store,
		Logger:  logger,
	})

	manager := studio.NewManager(studio.ManagerOptions{
		Session:     session,
		Collections: collections,
		Client:      client,
		Storage:     store,
		Logger:      logger,
		ClearAfter:  cfg.GenerationClearAfter,
	})

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	api := webapi.New(webapi.Options{
		Manager: manager,
		Storage: store,
		Static:  staticSub,
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	logger.Info("web started", "addr", cfg.WebAddr, "provider", cfg.ImageProvider)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
