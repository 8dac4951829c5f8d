package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"crest/internal/credential/models"
	id "crest/pkg/domain"
	"crest/pkg/platform/sentinel"
)

// InMemory keeps credential records for tests and databaseless development.
type InMemory struct {
	mu          sync.RWMutex
	credentials map[id.CredentialID]models.Credential
	attempts    map[id.CredentialID]time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		credentials: make(map[id.CredentialID]models.Credential),
		attempts:    make(map[id.CredentialID]time.Time),
	}
}

func (s *InMemory) Create(_ context.Context, credential models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.credentials[credential.ID]; exists {
		return sentinel.ErrConflict
	}
	s.credentials[credential.ID] = credential
	return nil
}

func (s *InMemory) FindByID(_ context.Context, credentialID id.CredentialID) (models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if credential, ok := s.credentials[credentialID]; ok {
		return credential, nil
	}
	return models.Credential{}, sentinel.ErrNotFound
}

func (s *InMemory) ListByRecipient(_ context.Context, recipient id.UserID) ([]models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Credential
	for _, credential := range s.credentials {
		if credential.Recipient == recipient {
			out = append(out, credential)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

// AttachLedgerRefs records the mint outcome. Refs are attached as a pair.
func (s *InMemory) AttachLedgerRefs(_ context.Context, credentialID id.CredentialID, txRef string, recordID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	credential, ok := s.credentials[credentialID]
	if !ok {
		return sentinel.ErrNotFound
	}
	credential.LedgerTxRef = txRef
	credential.LedgerRecordID = recordID
	s.credentials[credentialID] = credential
	return nil
}

func (s *InMemory) SetClaimed(_ context.Context, credentialID id.CredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	credential, ok := s.credentials[credentialID]
	if !ok {
		return sentinel.ErrNotFound
	}
	credential.Claimed = true
	s.credentials[credentialID] = credential
	return nil
}

// ListUnanchored returns up to limit credentials with no ledger refs, least
// recently attempted first, for the anchor worker.
func (s *InMemory) ListUnanchored(_ context.Context, limit int) ([]models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Credential
	for _, credential := range s.credentials {
		if !credential.Anchored() {
			out = append(out, credential)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.attempts[out[i].ID].Before(s.attempts[out[j].ID])
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkAnchorAttempts stamps the batch so retries rotate through the backlog.
func (s *InMemory) MarkAnchorAttempts(_ context.Context, ids []id.CredentialID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, credentialID := range ids {
		s.attempts[credentialID] = at
	}
	return nil
}
