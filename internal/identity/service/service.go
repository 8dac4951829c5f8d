package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"

	"crest/internal/audit"
	identitymetrics "crest/internal/identity/metrics"
	"crest/internal/identity/models"
	"crest/internal/ledger"
	id "crest/pkg/domain"
	"crest/pkg/platform/sentinel"
	"crest/pkg/requestcontext"

	dErrors "crest/pkg/domain-errors"
)

var tracer = otel.Tracer("crest/identity")

// IdentityStore is the persistence port for identity records. NextSequence
// must be atomic at the store level: concurrent calls for the same prefix may
// never observe the same value.
type IdentityStore interface {
	NextSequence(ctx context.Context, prefix string) (int, error)
	Create(ctx context.Context, record models.IdentityRecord) error
	FindByOwner(ctx context.Context, owner id.UserID) (models.IdentityRecord, error)
	FindByInstitutionalID(ctx context.Context, institutionalID string) (models.IdentityRecord, error)
	AttachLedgerRef(ctx context.Context, owner id.UserID, txRef string) error
}

// AuditPublisher records allocation events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service allocates institutional identifiers. Allocation is idempotent per
// user and fatal on store failure; the ledger mint afterwards is best-effort.
type Service struct {
	store           IdentityStore
	gateway         ledger.Gateway
	institutionCode string
	logger          *slog.Logger
	audit           AuditPublisher
	metrics         *identitymetrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *identitymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the identity service.
func New(store IdentityStore, gateway ledger.Gateway, institutionCode string, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:           store,
		gateway:         gateway,
		institutionCode: institutionCode,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureRequest describes an allocation triggered by an approval.
type EnsureRequest struct {
	Owner          id.UserID
	Name           string
	ContactRef     string
	AdmissionYear  int
	DepartmentCode string
}

// EnsureIdentity allocates an institutional identifier for the user, or
// returns the existing one. The caller must treat an error as fatal to the
// triggering approval: a user without an identifier must not be approved.
//
// A failed downstream step never rolls back the sequence increment; gaps in
// favor of uniqueness is the deliberate trade.
func (s *Service) EnsureIdentity(ctx context.Context, req EnsureRequest) (models.IdentityRecord, error) {
	ctx, span := tracer.Start(ctx, "identity.ensure")
	defer span.End()

	if req.Owner.IsZero() {
		return models.IdentityRecord{}, dErrors.New(dErrors.CodeValidation, "owner is required")
	}

	if existing, err := s.store.FindByOwner(ctx, req.Owner); err == nil {
		s.incIdempotent()
		return existing, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		s.incAllocationError()
		return models.IdentityRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "identifier allocation failed")
	}

	prefix, err := models.Prefix(req.AdmissionYear, s.institutionCode, req.DepartmentCode)
	if err != nil {
		return models.IdentityRecord{}, err
	}

	seq, err := s.store.NextSequence(ctx, prefix)
	if err != nil {
		s.incAllocationError()
		return models.IdentityRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "identifier allocation failed")
	}
	if seq > models.MaxSequence {
		s.incAllocationError()
		return models.IdentityRecord{}, dErrors.New(dErrors.CodeInvariantViolation, "identifier space exhausted for prefix")
	}

	record := models.IdentityRecord{
		InstitutionalID: models.FormatIdentifier(prefix, seq),
		Owner:           req.Owner,
		AssignedAt:      requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a race with a concurrent approval for the same user; the
			// sequence we drew is burned, the winner's record stands.
			if existing, findErr := s.store.FindByOwner(ctx, req.Owner); findErr == nil {
				s.incIdempotent()
				return existing, nil
			}
		}
		s.incAllocationError()
		return models.IdentityRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "identifier allocation failed")
	}

	s.incAllocated()
	s.emitAudit(ctx, audit.ActionIdentityAllocated, req.Owner, record.InstitutionalID)
	s.mintIdentity(ctx, record, req)

	return record, nil
}

// mintIdentity anchors the identity to the ledger. Failure is expected and
// non-fatal; the record stays valid without ledger backing.
func (s *Service) mintIdentity(ctx context.Context, record models.IdentityRecord, req EnsureRequest) {
	receipt, err := s.gateway.MintIdentity(ctx, record.InstitutionalID, req.Name, req.ContactRef)
	if err != nil {
		s.logger.WarnContext(ctx, "identity ledger mint skipped",
			"institutional_id", record.InstitutionalID,
			"error", err)
		return
	}
	if err := s.store.AttachLedgerRef(ctx, record.Owner, receipt.TxRef); err != nil {
		s.logger.ErrorContext(ctx, "failed to attach identity ledger ref",
			"institutional_id", record.InstitutionalID,
			"error", err)
	}
}

// Get returns the identity record for a user.
// Errors: CodeNotFound when the user has no identifier.
func (s *Service) Get(ctx context.Context, owner id.UserID) (models.IdentityRecord, error) {
	record, err := s.store.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.IdentityRecord{}, dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return models.IdentityRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	return record, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, owner id.UserID, subject string) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		s.logger.InfoContext(ctx, action, "request_id", requestID, "subject", subject, "log_type", "audit")
	} else {
		s.logger.InfoContext(ctx, action, "subject", subject, "log_type", "audit")
	}
	if s.audit == nil {
		return
	}
	_ = s.audit.Emit(ctx, audit.Event{
		Action:  action,
		UserID:  owner,
		Subject: subject,
	})
}

func (s *Service) incAllocated() {
	if s.metrics != nil {
		s.metrics.Allocated.Inc()
	}
}

func (s *Service) incAllocationError() {
	if s.metrics != nil {
		s.metrics.AllocationErrors.Inc()
	}
}

func (s *Service) incIdempotent() {
	if s.metrics != nil {
		s.metrics.IdempotentReturns.Inc()
	}
}
