package store

import (
	"context"
	"fmt"
	"sync"

	"hcert/internal/uvci"
	"hcert/pkg/platform/sentinel"
)

// InMemory is a process-local ledger store for development and tests.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]uvci.Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[string]uvci.Record)}
}

func (s *InMemory) InsertIfAbsent(_ context.Context, record *uvci.Record) error {
	if record == nil {
		return fmt.Errorf("ledger record is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.UVCI]; exists {
		return sentinel.ErrConflict
	}
	s.records[record.UVCI] = *record
	return nil
}

func (s *InMemory) FindByUVCI(_ context.Context, value string) (*uvci.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[value]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

// Count returns the number of recorded identifiers.
func (s *InMemory) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
