package handlers

import (
	"log/slog"
	"net/http"

	"github.com/andrew/scoutchat/internal/api/middleware"
	"github.com/andrew/scoutchat/internal/ledger"
)

// UsageHandler handles usage tracking requests
type UsageHandler struct {
	ledger *ledger.Ledger
	events EventStore
	logger *slog.Logger
}

// NewUsageHandler creates a new usage handler. events may be nil, in
// which case history is unavailable.
func NewUsageHandler(l *ledger.Ledger, events EventStore, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{ledger: l, events: events, logger: logger}
}

// UsageResponse is the spend summary for the calling identity
type UsageResponse struct {
	ledger.Summary
	Limit float64 `json:"limit"`
}

// HandleGetUsage handles GET /usage
func (h *UsageHandler) HandleGetUsage(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentityFromContext(r.Context())

	summary, err := h.ledger.Summarize(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to summarize usage", "identity", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to retrieve usage")
		return
	}

	respondJSON(w, http.StatusOK, UsageResponse{Summary: summary, Limit: h.ledger.Limit()})
}

// HandleGetHistory handles GET /usage/history
func (h *UsageHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		respondError(w, http.StatusNotFound, "usage history requires sqlite storage")
		return
	}

	id := middleware.GetIdentityFromContext(r.Context())

	// Parse query parameters
	query := r.URL.Query()
	limit := queryInt(query, "limit", 100)
	if limit == 0 {
		limit = 100
	}
	offset := queryInt(query, "offset", 0)
	startTime, endTime := parseTimeRange(query)

	events, err := h.events.GetUsageEvents(r.Context(), id, limit, offset, startTime, endTime)
	if err != nil {
		h.logger.Error("failed to retrieve usage events", "identity", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to retrieve usage history")
		return
	}

	stats, err := h.events.GetUsageStats(r.Context(), id, startTime, endTime)
	if err != nil {
		h.logger.Error("failed to retrieve usage stats", "identity", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to retrieve usage history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"stats":  stats,
		"limit":  limit,
		"offset": offset,
	})
}
