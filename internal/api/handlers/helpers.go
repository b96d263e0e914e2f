package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/andrew/scoutchat/internal/database/models"
)

// EventRecorder persists per-request usage events
type EventRecorder interface {
	CreateUsageEvent(ctx context.Context, event *models.UsageEvent) error
}

// EventStore reads back usage events
type EventStore interface {
	EventRecorder
	GetUsageEvents(ctx context.Context, identity string, limit, offset int, startTime, endTime *time.Time) ([]models.UsageEvent, error)
	GetUsageStats(ctx context.Context, identity string, startTime, endTime *time.Time) (*models.UsageStats, error)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// parseTimeRange reads optional RFC3339 start_time and end_time parameters
func parseTimeRange(query url.Values) (startTime, endTime *time.Time) {
	if st := query.Get("start_time"); st != "" {
		if t, err := time.Parse(time.RFC3339, st); err == nil {
			startTime = &t
		}
	}
	if et := query.Get("end_time"); et != "" {
		if t, err := time.Parse(time.RFC3339, et); err == nil {
			endTime = &t
		}
	}
	return startTime, endTime
}

// queryInt reads a non-negative integer parameter
func queryInt(query url.Values, key string, def int) int {
	if v := query.Get(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return def
}
