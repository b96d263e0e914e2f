package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andrew/scoutchat/internal/api"
	"github.com/andrew/scoutchat/internal/api/handlers"
	"github.com/andrew/scoutchat/internal/auth"
	"github.com/andrew/scoutchat/internal/cli/management"
	"github.com/andrew/scoutchat/internal/config"
	"github.com/andrew/scoutchat/internal/database"
	"github.com/andrew/scoutchat/internal/identity"
	"github.com/andrew/scoutchat/internal/ledger"
	"github.com/andrew/scoutchat/internal/logging"
	"github.com/andrew/scoutchat/internal/provider/anthropic"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML config file")
	manageCmd := flag.Bool("manage", false, "Run interactive usage management TUI")

	// Automation subcommands for scripting
	listUsage := flag.Bool("list", false, "List ledger identities (JSON output)")
	resetUsage := flag.String("reset", "", "Reset usage for an identity (JSON output)")
	summaryUsage := flag.String("summary", "", "Show usage summary for an identity (JSON output)")

	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize storage", "type", cfg.Storage.Type, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	if db != nil {
		defer db.Close()
	}

	l := ledger.New(store, cfg.LedgerSettings())

	// Handle automation commands (JSON I/O for scripting)
	if *listUsage || *resetUsage != "" || *summaryUsage != "" || *manageCmd {
		if err := runManagement(ctx, l, db, *listUsage, *resetUsage, *summaryUsage); err != nil {
			os.Exit(1)
		}
		return
	}

	// Default: run server
	if err := runServer(ctx, cfg, l, db, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func runManagement(ctx context.Context, l *ledger.Ledger, db *database.DB, list bool, reset, summary string) error {
	var history management.HistoryStore
	if db != nil {
		history = db
	}
	manager := management.NewUsageManager(l, history, os.Stdout)

	switch {
	case list:
		return manager.ListJSON(ctx)
	case reset != "":
		return manager.ResetJSON(ctx, reset)
	case summary != "":
		return manager.SummaryJSON(ctx, summary)
	}

	if err := manager.Run(ctx); err != nil {
		fmt.Printf("Error: %v\n", err)
		return err
	}
	return nil
}

func runServer(ctx context.Context, cfg *config.Config, l *ledger.Ledger, db *database.DB, logger *slog.Logger) error {
	logger.Info("starting scoutchat",
		"address", cfg.Server.Address(),
		"storage", cfg.Storage.Type,
		"identity_scheme", cfg.Identity.Scheme,
		"limit", l.Limit(),
	)

	provider := anthropic.New(cfg.AnthropicSettings())
	if provider.IsConfigured() {
		logger.Info("anthropic provider configured", "model", provider.Model())
	} else {
		logger.Warn("CLAUDE_API_KEY not set - every chat request will get the fallback reply")
	}

	resolver, err := identity.New(cfg.Identity.Scheme)
	if err != nil {
		return err
	}

	accessCode := auth.NewAccessCode(cfg.Auth.AccessCode)
	if accessCode.Enabled() {
		logger.Info("access code gate enabled")
	}

	var events handlers.EventStore
	if db != nil {
		events = db
	}

	// Setup routes
	handler := api.SetupRoutes(ctx, api.Options{
		Ledger:            l,
		Provider:          provider,
		Events:            events,
		Resolver:          resolver,
		Logger:            logger,
		APIKey:            cfg.Provider.APIKey,
		AccessCode:        accessCode,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		MetricsEnabled:    cfg.Metrics.Enabled,
		MetricsEndpoint:   cfg.Metrics.Endpoint,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "url", "http://"+cfg.Server.Address())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server shutting down")

	// Gracefully shutdown the server with a timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
