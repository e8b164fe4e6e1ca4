package llm

import (
	"context"
	"sync"

	"github.com/soyeahso/proxychat/internal/domain"
)

// MockModel is a test double for Model. It records every request.
type MockModel struct {
	RespondFunc func(ctx context.Context, req Request) (*Response, error)

	mu    sync.Mutex
	calls []Request
}

func (m *MockModel) Respond(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.RespondFunc != nil {
		return m.RespondFunc(ctx, req)
	}
	return &Response{
		ID:     "resp_mock",
		Model:  req.Model,
		Status: "completed",
		Output: []domain.Item{domain.AssistantMessage("mock response")},
	}, nil
}

// Calls returns a copy of the recorded requests.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}
