package llm

import (
	"context"
	"errors"
	"sync"
)

// MockResponse is one scripted reply for the mock caller.
type MockResponse struct {
	Text string
	Err  error
}

// MockCaller replays scripted responses in order and records every call.
// When the script runs out the last response repeats.
type MockCaller struct {
	mu         sync.Mutex
	responses  []MockResponse
	calls      int
	operations []string
}

func NewMockCaller(responses ...MockResponse) *MockCaller {
	return &MockCaller{responses: responses}
}

func (m *MockCaller) Complete(_ context.Context, operation string, _ Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.calls
	m.calls++
	m.operations = append(m.operations, operation)

	if len(m.responses) == 0 {
		return "", errors.New("mock: no responses scripted")
	}
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	r := m.responses[idx]
	return r.Text, r.Err
}

// CallCount reports how many calls were made.
func (m *MockCaller) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Operations reports the operation names in call order.
func (m *MockCaller) Operations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.operations))
	copy(out, m.operations)
	return out
}
