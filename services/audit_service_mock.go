package services

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockAuditLogger keeps audit entries in memory for testing
type MockAuditLogger struct {
	entries []*AuditEntry
	mu      sync.RWMutex
}

// NewMockAuditLogger creates an empty mock audit logger
func NewMockAuditLogger() *MockAuditLogger {
	return &MockAuditLogger{}
}

// Record stores the entry
func (m *MockAuditLogger) Record(_ context.Context, entry *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.CreatedAt = time.Now().UTC()
	m.entries = append(m.entries, entry)
	return nil
}

// History returns the newest entries for an entity first
func (m *MockAuditLogger) History(_ context.Context, entityID string, limit int64) ([]*AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*AuditEntry{}
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].EntityID == entityID {
			out = append(out, m.entries[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Actions returns the recorded actions in order (for testing assertions)
func (m *MockAuditLogger) Actions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	actions := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		actions = append(actions, e.Action)
	}
	return actions
}
