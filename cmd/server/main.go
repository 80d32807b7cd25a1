package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/resumedit/internal/api"
	"github.com/dgallion1/resumedit/internal/builder"
	"github.com/dgallion1/resumedit/internal/config"
	"github.com/dgallion1/resumedit/internal/extract"
	"github.com/dgallion1/resumedit/internal/localstore"
	"github.com/dgallion1/resumedit/internal/metrics"
	"github.com/dgallion1/resumedit/internal/parser"
	"github.com/dgallion1/resumedit/internal/resumeapi"
	"github.com/dgallion1/resumedit/internal/session"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := session.NewStore(cfg.SessionTTL, log)
	m := metrics.New(sessions.Len)

	// Initialize the resume backend.
	var backend resumeapi.Backend
	var closers []func()
	switch cfg.BackendMode {
	case config.BackendLocal:
		var analyzer extract.Analyzer = extract.Heuristic{}
		if cfg.Analyzer == config.AnalyzerClaude {
			claude := extract.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnalyzeBatchTokens, cfg.MaxConcurrentCalls, log)
			closers = append(closers, claude.Close)
			analyzer = claude
		}
		backend = localstore.New(m.InstrumentAnalyzer(analyzer), parser.Options{
			PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
		}, log)
	default:
		client := resumeapi.NewClient(cfg.BackendURL, cfg.BackendAPIKey, cfg.BackendTimeout)
		client.SetObserver(m.ObserveBackend)
		closers = append(closers, client.Close)
		backend = client
	}

	sessions.Start(ctx, cfg.SessionTTL/4)

	// Initialize HTTP server.
	srv := api.NewServer(backend, sessions, builder.New(log), m, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		sessions.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		for _, c := range closers {
			c()
		}
	}()

	log.Info("starting resumedit", "port", cfg.Port, "backend", cfg.BackendMode)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
