package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/turnkeeper/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	ChatFunc func(ctx context.Context, req *chat.ChatRequest) (*chat.ChatResponse, error)

	// Track calls for testing
	ChatCalls  []*chat.ChatRequest
	CloseCalls int

	// Replies are returned in order when ChatFunc is nil. The last one repeats.
	Replies []string

	mu sync.Mutex // protects all fields above
}

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI(replies ...string) *MockLLMAPI {
	return &MockLLMAPI{Replies: replies}
}

// Chat mocks a chat completion
func (m *MockLLMAPI) Chat(ctx context.Context, req *chat.ChatRequest) (*chat.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ChatCalls = append(m.ChatCalls, req)

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Default behavior - echo nothing useful
	reply := "{}"
	if n := len(m.ChatCalls); len(m.Replies) > 0 {
		reply = m.Replies[min(n, len(m.Replies))-1]
	}
	return &chat.ChatResponse{Message: reply, Model: "mock"}, nil
}

// Close mocks releasing the backend
func (m *MockLLMAPI) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	return nil
}

// CallCount returns the number of Chat calls
func (m *MockLLMAPI) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ChatCalls)
}
