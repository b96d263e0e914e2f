package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/andrew/scoutchat/internal/provider"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com/v1"
	DefaultModel     = "claude-3-5-sonnet-20241022"
	DefaultMaxTokens = 300
	DefaultTimeout   = 30 * time.Second

	apiVersion = "2023-06-01"
)

// Config holds the Anthropic client settings
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Provider implements provider.Provider for the Anthropic Messages API
type Provider struct {
	cfg    Config
	client *resty.Client
}

// New creates an Anthropic provider
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("anthropic-version", apiVersion)

	return &Provider{cfg: cfg, client: client}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "anthropic"
}

// IsConfigured reports whether an API key is set
func (p *Provider) IsConfigured() bool {
	return p.cfg.APIKey != ""
}

// Model returns the default model
func (p *Provider) Model() string {
	return p.cfg.Model
}

// Complete sends one Messages API request bounded by the configured timeout
func (p *Provider) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	if !p.IsConfigured() {
		return nil, provider.ErrNotConfigured
	}

	if req.Model == "" {
		req.Model = p.cfg.Model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = p.cfg.MaxTokens
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", p.cfg.APIKey).
		SetBody(req).
		Post("/messages")
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	duration := time.Since(start)

	body := resp.Body()
	if resp.IsError() {
		return nil, &provider.Error{
			Status:  resp.StatusCode(),
			Message: gjson.GetBytes(body, "error.message").String(),
		}
	}

	return parseResponse(body, req.Model, duration)
}

func parseResponse(body []byte, model string, duration time.Duration) (*provider.Response, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("anthropic returned invalid JSON")
	}

	var text strings.Builder
	gjson.GetBytes(body, "content").ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").String() == "text" {
			text.WriteString(block.Get("text").String())
		}
		return true
	})
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic returned no text content")
	}

	if m := gjson.GetBytes(body, "model").String(); m != "" {
		model = m
	}

	input := gjson.GetBytes(body, "usage.input_tokens")
	output := gjson.GetBytes(body, "usage.output_tokens")

	return &provider.Response{
		Content:       text.String(),
		Model:         model,
		InputTokens:   int(input.Int()),
		OutputTokens:  int(output.Int()),
		UsageReported: input.Exists() && output.Exists(),
		Duration:      duration,
	}, nil
}
