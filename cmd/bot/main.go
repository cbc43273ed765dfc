package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/21-UR-0241/nano-banana/internal/albums"
	"github.com/21-UR-0241/nano-banana/internal/bot"
	"github.com/21-UR-0241/nano-banana/internal/collection"
	"github.com/21-UR-0241/nano-banana/internal/config"
	"github.com/21-UR-0241/nano-banana/internal/httpclient"
	"github.com/21-UR-0241/nano-banana/internal/imagegen"
	"github.com/21-UR-0241/nano-banana/internal/storage"
	"github.com/21-UR-0241/nano-banana/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadBot()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

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

	handler := bot.New(bot.Options{
		Telegram:             tg,
		Client:               client,
		Storage:              store,
		Collections:          collections,
		Logger:               logger,
		GenerationClearAfter: cfg.GenerationClearAfter,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onAlbumFlush := func(album albums.Album) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			handler.HandleAlbum(reqCtx, album)
		}()
	}

	aggregator := albums.New(albums.Options{
		Debounce: cfg.AlbumDebounce,
		OnFlush:  onAlbumFlush,
	})
	handler.SetAlbumAggregator(aggregator)

	logger.Info("bot started", "username", tg.Username())

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
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
