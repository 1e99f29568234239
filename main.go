package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetline/haulcall/config"
	"github.com/fleetline/haulcall/dispatch"
	"github.com/fleetline/haulcall/llm"
	"github.com/fleetline/haulcall/scenario"
	"github.com/fleetline/haulcall/server"
	"github.com/fleetline/haulcall/session"
	"github.com/fleetline/haulcall/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := newLogger(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence: Redis when reachable, in-memory otherwise. A check-in
	// bridge that cannot reach Redis still answers calls.
	var st store.Store
	if redisStore, err := store.NewRedis(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RecordTTL); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-memory store")
		st = store.NewMemory()
	} else {
		log.Info().Str("addr", cfg.RedisURL).Msg("connected to redis")
		st = redisStore
	}
	defer st.Close()

	// Prompt composition: fixed templates unless an LLM key is configured and
	// templated mode is off. The LLM path still degrades to templates per
	// utterance on failure.
	var prompter scenario.Prompter = &scenario.TemplatePrompter{}
	if cfg.GeminiAPIKey != "" && !cfg.ResponseTemplates {
		client, err := llm.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Warn().Err(err).Msg("LLM client unavailable, using templates")
		} else {
			prompter = llm.NewPrompter(client)
			log.Info().Msg("LLM prompt composition enabled")
		}
	}

	var notifier dispatch.Notifier
	if cfg.DispatchWebhookURL != "" {
		notifier = dispatch.NewWebhook(cfg.DispatchWebhookURL)
		log.Info().Str("url", cfg.DispatchWebhookURL).Msg("dispatch webhook configured")
	} else {
		notifier = dispatch.Nop{}
		log.Warn().Msg("no dispatch webhook configured, escalations are log-only")
	}

	sessionManager := session.NewManager(cfg, st, notifier, prompter, log)
	sessionManager.StartCleanupRoutine(ctx, time.Minute)

	srv := server.New(cfg, sessionManager, log)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out = os.Stderr
	logger := zerolog.New(out)
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out})
	}
	return logger.Level(level).With().Timestamp().Str("service", "haulcall").Logger()
}
