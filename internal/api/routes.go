package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/andrew/scoutchat/internal/api/handlers"
	"github.com/andrew/scoutchat/internal/api/middleware"
	"github.com/andrew/scoutchat/internal/auth"
	"github.com/andrew/scoutchat/internal/identity"
	"github.com/andrew/scoutchat/internal/ledger"
	"github.com/andrew/scoutchat/internal/metrics"
	"github.com/andrew/scoutchat/internal/provider"
)

// Options carries everything the routes depend on
type Options struct {
	Ledger   *ledger.Ledger
	Provider provider.Provider
	// Events is nil unless the ledger is stored in SQLite
	Events   handlers.EventStore
	Resolver identity.Resolver
	Logger   *slog.Logger

	APIKey            string
	AccessCode        auth.AccessCode
	AllowedOrigins    []string
	MaxBodyBytes      int64
	RequestsPerMinute int

	MetricsEnabled  bool
	MetricsEndpoint string
}

// SetupRoutes configures all API routes. ctx bounds background work such
// as rate limiter cleanup.
func SetupRoutes(ctx context.Context, opts Options) http.Handler {
	mux := http.NewServeMux()

	// Create handlers
	chatHandler := handlers.NewChatHandler(opts.Ledger, opts.Provider, opts.Events, opts.Logger, opts.MaxBodyBytes)
	usageHandler := handlers.NewUsageHandler(opts.Ledger, opts.Events, opts.Logger)
	diagnosticHandler := handlers.NewDiagnosticHandler(opts.APIKey)

	// Create middleware
	authMiddleware := middleware.NewAuthMiddleware(opts.AccessCode, opts.Resolver)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(ctx, opts.RequestsPerMinute, func() {
		metrics.ChatRequest(metrics.OutcomeRateLimited)
	})
	loggerMiddleware := middleware.NewLogger(opts.Logger)
	corsMiddleware := middleware.NewCORS(opts.AllowedOrigins)

	// Health check (no access code required)
	mux.HandleFunc("GET /health", handleHealth)

	if opts.MetricsEnabled {
		mux.Handle("GET "+opts.MetricsEndpoint, metrics.Handler())
	}

	mux.Handle("POST /chat", applyMiddleware(
		http.HandlerFunc(chatHandler.HandleChat),
		authMiddleware.RequireAccessCode,
		authMiddleware.Identify,
		rateLimitMiddleware.RateLimit,
	))

	mux.Handle("GET /usage", applyMiddleware(
		http.HandlerFunc(usageHandler.HandleGetUsage),
		authMiddleware.RequireAccessCode,
		authMiddleware.Identify,
	))

	mux.Handle("GET /usage/history", applyMiddleware(
		http.HandlerFunc(usageHandler.HandleGetHistory),
		authMiddleware.RequireAccessCode,
		authMiddleware.Identify,
	))

	mux.Handle("GET /diagnostic", applyMiddleware(
		http.HandlerFunc(diagnosticHandler.HandleDiagnostic),
		authMiddleware.RequireAccessCode,
	))

	mux.Handle("GET /examples", applyMiddleware(
		http.HandlerFunc(handlers.HandleExamples),
		authMiddleware.RequireAccessCode,
	))

	mux.Handle("GET /settings/tier", applyMiddleware(
		http.HandlerFunc(handlers.HandleTier),
		authMiddleware.RequireAccessCode,
	))

	// Apply global middleware
	handler := corsMiddleware.Handle(mux)
	handler = loggerMiddleware.Log(handler)
	handler = middleware.RequestID(handler)

	return handler
}

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// applyMiddleware applies middleware in reverse order
func applyMiddleware(h http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}
