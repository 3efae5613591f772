// internal/pkg/sequence/sequence.go
package sequence

import (
	"context"
	"sync"
)

// Generator supplies the next value of a named counter with atomic
// increment and create-if-absent semantics. Used for human-readable
// per-(branch, day) numbering.
type Generator interface {
	Next(ctx context.Context, key string) (int64, error)
}

// Memory is an in-process Generator. Test double.
type Memory struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemory creates an empty in-memory generator
func NewMemory() *Memory {
	return &Memory{counters: make(map[string]int64)}
}

// Next atomically increments and returns the counter for key
func (m *Memory) Next(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

// Set pins a counter to a value. Lets tests force collisions.
func (m *Memory) Set(key string, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key] = value
}
