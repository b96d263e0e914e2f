package models

import "time"

// Outcomes recorded for a chat request
const (
	OutcomeOK       = "ok"
	OutcomeBlocked  = "blocked"
	OutcomeFallback = "fallback"
)

type UsageEvent struct {
	ID             int64     `json:"id"`
	Identity       string    `json:"identity"`
	RequestID      string    `json:"request_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Model          string    `json:"model"`
	ChildAge       int       `json:"child_age"`
	InputTokens    int       `json:"input_tokens"`
	OutputTokens   int       `json:"output_tokens"`
	UsageReported  bool      `json:"usage_reported"` // false when tokens were estimated
	Cost           float64   `json:"cost"`
	ResponseTimeMs int       `json:"response_time_ms"`
	Outcome        string    `json:"outcome"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
}

type UsageStats struct {
	TotalRequests int            `json:"total_requests"`
	InputTokens   int64          `json:"input_tokens"`
	OutputTokens  int64          `json:"output_tokens"`
	TotalCost     float64        `json:"total_cost"`
	ByOutcome     map[string]int `json:"by_outcome"`
	ByModel       map[string]int `json:"by_model"`
}
