package provider

import (
	"context"
	"fmt"
	"sync"
)

// MockAdapter returns deterministic responses for local runs and tests.
type MockAdapter struct {
	mu        sync.Mutex
	responses map[string]string
	fail      error
	calls     int
}

// NewMockAdapter creates a mock adapter with a default response.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{responses: make(map[string]string)}
}

// Respond registers a canned response for a prompt.
func (a *MockAdapter) Respond(prompt, response string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses[prompt] = response
}

// Fail makes every Generate call return err; nil restores normal behavior.
func (a *MockAdapter) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fail = err
}

// Calls returns how many times Generate ran.
func (a *MockAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return "mock"
}

// Generate returns a deterministic response for the prompt.
func (a *MockAdapter) Generate(_ context.Context, _ string, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.fail != nil {
		return "", a.fail
	}
	if response, ok := a.responses[prompt]; ok {
		return response, nil
	}
	return fmt.Sprintf("mock response:\n%s", prompt), nil
}
