package ai

import (
	"context"
	"sync"
)

// MockResponse is a canned response for the MockCapability.
type MockResponse struct {
	Text string
	Err  error
}

// MockCapability is a deterministic Capability for testing.
// It returns canned responses in FIFO order and records all requests.
type MockCapability struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
}

// NewMockCapability creates a MockCapability with the given canned responses.
func NewMockCapability(responses ...MockResponse) *MockCapability {
	return &MockCapability{responses: responses}
}

// Complete returns the next canned response, or ErrUnavailable when the
// queue is empty.
func (m *MockCapability) Complete(_ context.Context, req Request) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		return Response{}, &ErrUnavailable{}
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return Response{}, resp.Err
	}
	return Response{Text: resp.Text, Model: "mock"}, nil
}

func (m *MockCapability) ModelID() string { return "mock" }

// AddResponse appends a canned response to the queue.
func (m *MockCapability) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Complete calls made.
func (m *MockCapability) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
