package chat

import (
	"errors"
	"strings"
)

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Narrator
	ChatRoleSystem = "system"    // Instructions and state
)

// ChatMessage is a single message in the conversation sent to an LLM.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatRequest is one completion request to an LLM backend.
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	// JSON asks the backend for a JSON object response where supported.
	JSON bool `json:"json,omitempty"`
	// Backend routes the request to the bookkeeping model instead of the
	// narrative model.
	Backend bool `json:"backend,omitempty"`
}

// ChatResponse is the text returned by an LLM backend.
type ChatResponse struct {
	Message string `json:"message,omitempty"`
	Model   string `json:"model,omitempty"`
}

// Validate checks that the request can be sent.
func (cr *ChatRequest) Validate() error {
	if len(cr.Messages) == 0 {
		return errors.New("request has no messages")
	}
	for _, m := range cr.Messages {
		switch m.Role {
		case ChatRoleUser, ChatRoleAgent, ChatRoleSystem:
		default:
			return errors.New("unknown role " + m.Role)
		}
	}
	if cr.Temperature != nil && (*cr.Temperature < 0 || *cr.Temperature > 2) {
		return errors.New("temperature must be between 0 and 2")
	}
	return nil
}

// SplitSystem joins all system messages into one prompt and returns the rest
// in order. Backends that take the system prompt separately use it.
func SplitSystem(messages []ChatMessage) (string, []ChatMessage) {
	var systemParts []string
	var rest []ChatMessage
	for _, msg := range messages {
		if msg.Role == ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			rest = append(rest, msg)
		}
	}
	return strings.Join(systemParts, "\n\n"), rest
}

// Temperature returns a pointer for ChatRequest.Temperature.
func Temperature(t float64) *float64 {
	return &t
}
