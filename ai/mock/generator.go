// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mock

import (
	"context"
	"sync"

	"github.com/poiesic/hybridrag/ai"
)

// DefaultReply is returned by MockGenerator when no GenerateFunc is set.
const DefaultReply = "mock answer"

// GenerateCall records the arguments of one Generate invocation.
type GenerateCall struct {
	Messages []ai.Message
	Options  ai.GenerateOptions
}

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, messages []ai.Message, opts ai.GenerateOptions) (string, error)

	mu    sync.Mutex
	calls []GenerateCall
}

var _ ai.Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock generator that returns DefaultReply.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// NewScriptedGenerator returns a mock that replies with each of replies in
// turn, repeating the last one once the script is exhausted.
func NewScriptedGenerator(replies ...string) *MockGenerator {
	m := &MockGenerator{}
	m.GenerateFunc = func(_ context.Context, _ []ai.Message, _ ai.GenerateOptions) (string, error) {
		n := m.CallCount() - 1
		if len(replies) == 0 {
			return DefaultReply, nil
		}
		if n >= len(replies) {
			n = len(replies) - 1
		}
		return replies[n], nil
	}
	return m
}

// Generate records the call and returns the configured reply.
func (m *MockGenerator) Generate(ctx context.Context, messages []ai.Message, opts ai.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, GenerateCall{Messages: append([]ai.Message(nil), messages...), Options: opts})
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, messages, opts)
	}
	return DefaultReply, nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded calls.
func (m *MockGenerator) Calls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GenerateCall(nil), m.calls...)
}

// LastCall returns the most recent call, or false if there was none.
func (m *MockGenerator) LastCall() (GenerateCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return GenerateCall{}, false
	}
	return m.calls[len(m.calls)-1], true
}

// Reset clears recorded calls and the custom function.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.GenerateFunc = nil
}
