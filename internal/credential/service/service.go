// Package service implements credential issuance, claiming, and verification.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"crest/internal/audit"
	credentialmetrics "crest/internal/credential/metrics"
	"crest/internal/credential/models"
	identitymodels "crest/internal/identity/models"
	"crest/internal/ledger"
	"crest/internal/ledger/cache"
	"crest/internal/notify"
	id "crest/pkg/domain"
)

var tracer = otel.Tracer("crest/credential")

// CredentialStore is the persistence port for credential records.
type CredentialStore interface {
	Create(ctx context.Context, credential models.Credential) error
	FindByID(ctx context.Context, credentialID id.CredentialID) (models.Credential, error)
	ListByRecipient(ctx context.Context, recipient id.UserID) ([]models.Credential, error)
	AttachLedgerRefs(ctx context.Context, credentialID id.CredentialID, txRef string, recordID int64) error
	SetClaimed(ctx context.Context, credentialID id.CredentialID) error
	ListUnanchored(ctx context.Context, limit int) ([]models.Credential, error)
	MarkAnchorAttempts(ctx context.Context, ids []id.CredentialID, at time.Time) error
}

// IdentityLookup resolves a user's institutional identity. Issuance requires
// the recipient to already hold one.
type IdentityLookup interface {
	FindByOwner(ctx context.Context, owner id.UserID) (identitymodels.IdentityRecord, error)
}

// AuditPublisher records issuance and claim events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service issues, claims, lists, and verifies credentials. The primary store
// is authoritative throughout; the ledger only ever adds supplementary proof.
type Service struct {
	store      CredentialStore
	identities IdentityLookup
	gateway    ledger.Gateway
	cache      cache.ConfirmationCache
	notifier   notify.Notifier
	logger     *slog.Logger
	audit      AuditPublisher
	metrics    *credentialmetrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithNotifier(notifier notify.Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *credentialmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithConfirmationCache(c cache.ConfirmationCache) Option {
	return func(s *Service) { s.cache = c }
}

// New constructs the credential service.
func New(store CredentialStore, identities IdentityLookup, gateway ledger.Gateway, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		identities: identities,
		gateway:    gateway,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) emitAudit(ctx context.Context, action string, user id.UserID, actor id.UserID, subject string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Emit(ctx, audit.Event{
		Action:  action,
		UserID:  user,
		Actor:   actor,
		Subject: subject,
	})
}
