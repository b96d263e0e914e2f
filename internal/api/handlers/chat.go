package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/andrew/scoutchat/internal/api/middleware"
	"github.com/andrew/scoutchat/internal/database/models"
	"github.com/andrew/scoutchat/internal/ledger"
	"github.com/andrew/scoutchat/internal/metrics"
	"github.com/andrew/scoutchat/internal/prompt"
	"github.com/andrew/scoutchat/internal/provider"
)

// FallbackResponse is returned with status 200 whenever no answer can be produced
const FallbackResponse = "I'm having trouble connecting right now. Can you tell me more about what you're working on? I'd love to help you think through it!"

// ChatHandler handles chat requests
type ChatHandler struct {
	ledger       *ledger.Ledger
	provider     provider.Provider
	events       EventRecorder
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewChatHandler creates a new chat handler. events may be nil.
func NewChatHandler(l *ledger.Ledger, p provider.Provider, events EventRecorder, logger *slog.Logger, maxBodyBytes int64) *ChatHandler {
	return &ChatHandler{
		ledger:       l,
		provider:     p,
		events:       events,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

// ChatRequest represents an incoming chat request
type ChatRequest struct {
	ConversationHistory []prompt.Message    `json:"conversationHistory"`
	ChildAge            int                 `json:"childAge"`
	Files               []prompt.Attachment `json:"files,omitempty"`
}

// ChatUsage is the per-request cost report
type ChatUsage struct {
	InputTokens   int     `json:"inputTokens"`
	OutputTokens  int     `json:"outputTokens"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// ChatResponse represents the response. Usage is omitted on fallback.
type ChatResponse struct {
	Response string     `json:"response"`
	Usage    *ChatUsage `json:"usage,omitempty"`
}

// LimitExceededResponse is sent with status 429
type LimitExceededResponse struct {
	Error   string         `json:"error"`
	Blocked bool           `json:"blocked"`
	Usage   *ledger.Record `json:"usage"`
}

// HandleChat handles POST /chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := middleware.GetIdentityFromContext(ctx)
	event := &models.UsageEvent{
		Identity:  id,
		RequestID: middleware.GetRequestIDFromContext(ctx),
		Timestamp: time.Now(),
	}
	logger := h.logger.With("identity", id, "request_id", event.RequestID)

	if !h.provider.IsConfigured() {
		logger.Error("chat request failed", "error", provider.ErrNotConfigured)
		h.fallback(w, r, event, provider.ErrNotConfigured)
		return
	}

	decision, err := h.ledger.CheckLimit(ctx, id)
	if err != nil {
		logger.Error("usage limit check failed", "error", err)
		h.fallback(w, r, event, err)
		return
	}
	if !decision.Allowed {
		logger.Warn("usage limit exceeded", "cost", decision.Usage.EstimatedCost)
		metrics.ChatRequest(metrics.OutcomeBlocked)
		event.Outcome = models.OutcomeBlocked
		h.recordEvent(r, event)
		respondJSON(w, http.StatusTooManyRequests, LimitExceededResponse{
			Error:   "Usage limit exceeded",
			Blocked: true,
			Usage:   decision.Usage,
		})
		return
	}

	// Parse request
	var req ChatRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		logger.Warn("invalid chat request body", "error", err)
		h.fallback(w, r, event, err)
		return
	}

	age := prompt.NormalizeAge(req.ChildAge)
	event.ChildAge = age
	system, messages := prompt.Compose(age, req.ConversationHistory, req.Files)

	resp, err := h.provider.Complete(ctx, provider.Request{
		System:   system,
		Messages: messages,
	})
	if err != nil {
		logger.Error("provider request failed", "provider", h.provider.Name(), "error", err)
		h.fallback(w, r, event, err)
		return
	}
	metrics.ProviderDuration(resp.Duration)

	inputTokens, outputTokens := countTokens(system, messages, resp)
	cost := h.ledger.CalculateCost(inputTokens, outputTokens)

	if _, err := h.ledger.RecordUsage(ctx, id, inputTokens, outputTokens); err != nil {
		// The answer is already paid for; still deliver it
		logger.Error("failed to record usage", "error", err)
	}
	metrics.Usage(inputTokens, outputTokens, cost)
	metrics.ChatRequest(metrics.OutcomeOK)

	event.Model = resp.Model
	event.InputTokens = inputTokens
	event.OutputTokens = outputTokens
	event.UsageReported = resp.UsageReported
	event.Cost = cost
	event.ResponseTimeMs = int(resp.Duration.Milliseconds())
	event.Outcome = models.OutcomeOK
	h.recordEvent(r, event)

	respondJSON(w, http.StatusOK, ChatResponse{
		Response: resp.Content,
		Usage: &ChatUsage{
			InputTokens:   inputTokens,
			OutputTokens:  outputTokens,
			EstimatedCost: cost,
		},
	})
}

// countTokens prefers provider-reported counts and estimates the rest
func countTokens(system string, messages []provider.Message, resp *provider.Response) (int, int) {
	inputTokens := resp.InputTokens
	if inputTokens <= 0 {
		encoded, _ := json.Marshal(messages)
		inputTokens = ledger.EstimateTokens(string(encoded) + system)
	}

	outputTokens := resp.OutputTokens
	if outputTokens <= 0 {
		outputTokens = ledger.EstimateTokens(resp.Content)
	}

	return inputTokens, outputTokens
}

func (h *ChatHandler) fallback(w http.ResponseWriter, r *http.Request, event *models.UsageEvent, cause error) {
	metrics.ChatRequest(metrics.OutcomeFallback)

	msg := cause.Error()
	event.Outcome = models.OutcomeFallback
	event.ErrorMessage = &msg
	h.recordEvent(r, event)

	respondJSON(w, http.StatusOK, ChatResponse{Response: FallbackResponse})
}

func (h *ChatHandler) recordEvent(r *http.Request, event *models.UsageEvent) {
	if h.events == nil {
		return
	}
	if err := h.events.CreateUsageEvent(r.Context(), event); err != nil {
		h.logger.Warn("failed to record usage event", "error", err)
	}
}
