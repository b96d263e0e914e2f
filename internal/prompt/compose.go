package prompt

import (
	"strings"

	"github.com/andrew/scoutchat/internal/provider"
)

// Message is one turn of the conversation as sent by the UI
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Attachment is a file uploaded with the latest user message
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"` // base64, no data: prefix
}

// IsImage reports whether the attachment can be forwarded to the provider
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.Type, "image/")
}

// Compose returns the system prompt and the provider messages for a turn.
// Attachments go on the last history entry only when it is a user
// message; attachments that are not images are dropped.
func Compose(age int, history []Message, attachments []Attachment) (string, []provider.Message) {
	system := SystemPrompt(age)

	messages := make([]provider.Message, 0, len(history))
	for i, msg := range history {
		last := i == len(history)-1
		if last && msg.Role == provider.RoleUser && len(attachments) > 0 {
			messages = append(messages, withAttachments(msg, attachments))
			continue
		}
		messages = append(messages, provider.TextMessage(msg.Role, msg.Content))
	}

	return system, messages
}

func withAttachments(msg Message, attachments []Attachment) provider.Message {
	content := []provider.ContentBlock{provider.TextBlock(msg.Content)}
	for _, a := range attachments {
		if a.IsImage() {
			content = append(content, provider.ImageBlock(a.Type, a.Data))
		}
	}
	return provider.Message{Role: msg.Role, Content: content}
}
