// Package chat defines the conversation data model shared across the
// validation and routing pipeline. Messages are immutable once created;
// ordering within a window is by timestamp.
package chat

import (
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn. The JSON shape matches the
// history column format, so stored history round-trips without
// translation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ParentID  string    `json:"parent_id,omitempty"`
}

// NewUserMessage creates a user turn stamped with the current time.
func NewUserMessage(content string) Message {
	return Message{
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssistantMessage creates an assistant turn stamped with the current time.
func NewAssistantMessage(content string) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// Tail returns the last n messages of a window (all of them when the
// window is shorter). The returned slice aliases the input.
func Tail(window []Message, n int) []Message {
	if n <= 0 {
		return nil
	}
	if len(window) <= n {
		return window
	}
	return window[len(window)-n:]
}

// Contents extracts the raw text of each message, preserving order.
// Used when building classifier prompts from a window.
func Contents(window []Message) []string {
	out := make([]string, len(window))
	for i, m := range window {
		out[i] = m.Content
	}
	return out
}
