package ai

import (
	"context" // Request scoped context
	"sync"    // Mutex
)

// StubProvider is a scripted Provider for tests and local runs
type StubProvider struct {
	mu       sync.Mutex
	Answer   string
	Err      error
	Disabled bool
	Calls    int
	Prompts  []string
}

// Enabled reports whether the stub should be called
func (s *StubProvider) Enabled() bool {
	return !s.Disabled
}

// Complete returns the scripted answer
func (s *StubProvider) Complete(_ context.Context, _, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	s.Prompts = append(s.Prompts, user)
	return s.Answer, s.Err
}
