package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MegaGrindStone/sentichat/internal/handlers"
	"github.com/MegaGrindStone/sentichat/internal/services"
	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env file: %v", err)
	}

	cfgDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatal(fmt.Errorf("error getting user config dir: %w", err))
	}
	cfgPath := filepath.Join(cfgDir, "sentichat")
	if err := os.MkdirAll(cfgPath, 0755); err != nil {
		log.Fatal(fmt.Errorf("error creating config directory: %w", err))
	}

	cfg, err := loadConfig(filepath.Join(cfgPath, "config.yaml"))
	if err != nil {
		log.Fatal(err)
	}
	cfg.applyEnv()

	level, err := cfg.logLevel()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	defaultTheme, err := cfg.defaultTheme()
	if err != nil {
		log.Fatal(err)
	}

	store, err := cfg.Preferences.store(ctx, cfgPath)
	if err != nil {
		log.Fatal(fmt.Errorf("error opening preference store: %w", err))
	}
	defer store.Close()

	analyzer := services.NewSentimentAPI(cfg.Sentiment.URL, cfg.Sentiment.Timeout, logger)

	m, err := handlers.NewMain(analyzer, store, handlers.Options{
		MaxMessages:  cfg.Chat.MaxMessages,
		DefaultTheme: defaultTheme,
		Logger:       logger,
	})
	if err != nil {
		log.Fatal(err)
	}

	router, err := m.Router()
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// SSE connections never finish on their own, so they are released when shutdown begins.
	srv.RegisterOnShutdown(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown sse server", slog.String("err", err.Error()))
		}
	})

	logger.Info("Server starting",
		slog.String("addr", srv.Addr),
		slog.String("sentiment", cfg.Sentiment.URL))

	if err := runServer(ctx, srv); err != nil {
		logger.Error("Server error", slog.String("err", err.Error()))
		return
	}
	logger.Info("Server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			if cerr := srv.Close(); cerr != nil {
				return errors.Join(err, cerr)
			}
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
