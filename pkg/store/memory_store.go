package store

import (
	"context"
	"sync"

	"demoapi/pkg/domain"
)

// MemoryStore keeps records in-process. Ids start at 1 and are never reused.
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.Record
	nextID  int64
	closed  bool
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// CreateRecord appends a record and assigns the next id.
func (m *MemoryStore) CreateRecord(ctx context.Context, rec domain.Record) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.Record{}, ErrClosed
	}
	if rec.Created.IsZero() {
		rec.Created = now()
	}
	rec.ID = m.nextID
	m.nextID++
	m.records = append(m.records, rec)
	return rec, nil
}

// ListRecords returns a copy of all records in insertion order.
func (m *MemoryStore) ListRecords(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	res := make([]domain.Record, len(m.records))
	copy(res, m.records)
	return res, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
