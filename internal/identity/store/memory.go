package store

import (
	"context"
	"sync"

	"crest/internal/identity/models"
	id "crest/pkg/domain"
	"crest/pkg/platform/sentinel"
)

// InMemory keeps identity records and per-prefix counters behind one mutex so
// sequence allocation and uniqueness checks stay race-free without a database.
type InMemory struct {
	mu       sync.Mutex
	byOwner  map[id.UserID]models.IdentityRecord
	byID     map[string]models.IdentityRecord
	counters map[string]int
}

func NewInMemory() *InMemory {
	return &InMemory{
		byOwner:  make(map[id.UserID]models.IdentityRecord),
		byID:     make(map[string]models.IdentityRecord),
		counters: make(map[string]int),
	}
}

// NextSequence atomically increments and returns the per-prefix counter.
// Sequence numbers are never reused, even when a downstream step fails.
func (s *InMemory) NextSequence(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[prefix]++
	return s.counters[prefix], nil
}

// Create persists a new identity record.
// Returns sentinel.ErrConflict when the owner or identifier is already taken.
func (s *InMemory) Create(_ context.Context, record models.IdentityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byOwner[record.Owner]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byID[record.InstitutionalID]; exists {
		return sentinel.ErrConflict
	}
	s.byOwner[record.Owner] = record
	s.byID[record.InstitutionalID] = record
	return nil
}

func (s *InMemory) FindByOwner(_ context.Context, owner id.UserID) (models.IdentityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.byOwner[owner]; ok {
		return record, nil
	}
	return models.IdentityRecord{}, sentinel.ErrNotFound
}

func (s *InMemory) FindByInstitutionalID(_ context.Context, institutionalID string) (models.IdentityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.byID[institutionalID]; ok {
		return record, nil
	}
	return models.IdentityRecord{}, sentinel.ErrNotFound
}

// AttachLedgerRef records the mint transaction reference after the fact.
func (s *InMemory) AttachLedgerRef(_ context.Context, owner id.UserID, txRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.byOwner[owner]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.LedgerTxRef = txRef
	s.byOwner[owner] = record
	s.byID[record.InstitutionalID] = record
	return nil
}
