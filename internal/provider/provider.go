package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Roles accepted by the provider
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNotConfigured is returned when the provider has no API key
var ErrNotConfigured = errors.New("provider API key not configured")

// Provider defines the interface for LLM chat providers
type Provider interface {
	// Complete sends the conversation and returns the assistant reply
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider name (e.g., "anthropic")
	Name() string

	// IsConfigured reports whether credentials are present
	IsConfigured() bool
}

// Request represents one completion request
type Request struct {
	Model     string    `json:"model"`
	System    string    `json:"system"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
}

// Response represents the reply from a provider
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	// UsageReported is false when the provider omitted token counts
	UsageReported bool          `json:"usage_reported"`
	Duration      time.Duration `json:"duration"`
}

// Error is a non-2xx reply from the provider API
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider returned status %d", e.Status)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Message)
}

// Message is one conversation turn
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is a text or image part of a message
type ContentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

// ImageSource carries inline base64 image data
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// TextMessage builds a single-part text message
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{TextBlock(text)}}
}

// TextBlock builds a text content block
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// ImageBlock builds a base64 image content block
func ImageBlock(mediaType, data string) ContentBlock {
	return ContentBlock{
		Type: "image",
		Source: &ImageSource{
			Type:      "base64",
			MediaType: mediaType,
			Data:      data,
		},
	}
}

// IsMultipart reports whether the message carries more than plain text
func (m Message) IsMultipart() bool {
	return len(m.Content) != 1 || m.Content[0].Type != "text"
}

// MarshalJSON writes plain text messages with a string content field
func (m Message) MarshalJSON() ([]byte, error) {
	if !m.IsMultipart() {
		return json.Marshal(struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{m.Role, m.Content[0].Text})
	}
	type alias Message
	return json.Marshal(alias(m))
}

// UnmarshalJSON accepts both string and block-list content
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role

	var text string
	if err := json.Unmarshal(raw.Content, &text); err == nil {
		m.Content = []ContentBlock{TextBlock(text)}
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(raw.Content, &blocks); err != nil {
		return fmt.Errorf("invalid message content: %w", err)
	}
	m.Content = blocks
	return nil
}
