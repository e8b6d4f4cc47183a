package history

import (
	"context"
	"sort"
	"sync"
)

// memStore keeps records for the lifetime of the process. Used when no
// Redis or Postgres URL is configured.
type memStore struct {
	mu     sync.RWMutex
	byUser map[string][]MatchRecord
	seen   map[string]struct{}
}

func NewMemoryStore() Store {
	return &memStore{
		byUser: make(map[string][]MatchRecord),
		seen:   make(map[string]struct{}),
	}
}

func (m *memStore) Save(_ context.Context, rec MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rec.Username + "|" + rec.MatchID
	if _, ok := m.seen[key]; ok {
		return ErrDuplicateMatch
	}
	m.seen[key] = struct{}{}
	m.byUser[rec.Username] = append(m.byUser[rec.Username], rec)
	return nil
}

func (m *memStore) Recent(_ context.Context, username string, limit int) ([]MatchRecord, error) {
	m.mu.RLock()
	items := append([]MatchRecord(nil), m.byUser[username]...)
	m.mu.RUnlock()

	// newest first; insertion order breaks ties
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].EndedAt.After(items[j].EndedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memStore) Close() error { return nil }
