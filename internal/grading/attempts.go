package grading

import (
	"context"
	"fmt"
	"sync"
)

// AttemptCounter hands out monotonically increasing attempt numbers per key.
// A grading result is applied only if its attempt is still the latest one
// when the join completes; anything older was superseded by a re-run.
type AttemptCounter interface {
	Begin(ctx context.Context, key string) (uint64, error)
	Latest(ctx context.Context, key string) (uint64, error)
}

// AttemptKey scopes attempts to one lesson under one language pair.
func AttemptKey(userID int, sourceLang, targetLang string, lessonID int) string {
	return fmt.Sprintf("%d:%s:%s:%d", userID, sourceLang, targetLang, lessonID)
}

// MemoryAttempts keeps counters in process; fine for a single server.
type MemoryAttempts struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func NewMemoryAttempts() *MemoryAttempts {
	return &MemoryAttempts{latest: make(map[string]uint64)}
}

func (m *MemoryAttempts) Begin(_ context.Context, key string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[key]++
	return m.latest[key], nil
}

func (m *MemoryAttempts) Latest(_ context.Context, key string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest[key], nil
}
