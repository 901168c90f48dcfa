package session

import (
	"sync"
	"time"

	"github.com/poiesic/hybridrag/core"
)

// Memory is an append-only conversation log.
type Memory struct {
	mu    sync.RWMutex
	turns []core.Turn
	now   func() time.Time
}

// NewMemory returns an empty memory.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// Append records a turn stamped with the current time.
func (m *Memory) Append(role core.Role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, core.Turn{Role: role, Content: content, Timestamp: m.now().UTC()})
}

// Last returns a copy of the n most recent turns, oldest first.
func (m *Memory) Last(n int) []core.Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	start := max(len(m.turns)-n, 0)
	return append([]core.Turn(nil), m.turns[start:]...)
}

// Turns returns a copy of every turn, oldest first.
func (m *Memory) Turns() []core.Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.Turn(nil), m.turns...)
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
}
