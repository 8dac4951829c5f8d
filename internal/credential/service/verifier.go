package service

import (
	"context"
	"errors"

	"crest/internal/credential/models"
	id "crest/pkg/domain"
	"crest/pkg/platform/sentinel"

	dErrors "crest/pkg/domain-errors"
)

// Verification is the public view of a credential lookup.
//
// Found and LedgerConfirmed are deliberately separate: a credential issued
// while the ledger was down is still authentic, it just carries no on-ledger
// proof yet. LedgerConfirmed false therefore never means "forged".
type Verification struct {
	Found           bool
	Record          models.Credential
	LedgerConfirmed bool
}

// Verify looks up a credential for a third party. An absent record is a
// negative result, not an error. Ledger trouble of any kind degrades to
// LedgerConfirmed=false; the caller cannot tell an unconfigured ledger from an
// unreachable one.
func (s *Service) Verify(ctx context.Context, credentialID id.CredentialID) (Verification, error) {
	ctx, span := tracer.Start(ctx, "credential.verify")
	defer span.End()

	credential, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.incVerification("not_found")
			return Verification{Found: false}, nil
		}
		return Verification{}, dErrors.Wrap(err, dErrors.CodeInternal, "verification failed")
	}

	result := Verification{Found: true, Record: credential}
	if credential.Anchored() {
		result.LedgerConfirmed = s.confirmOnLedger(ctx, credential)
	}

	if result.LedgerConfirmed {
		s.incVerification("confirmed")
	} else {
		s.incVerification("unconfirmed")
	}
	return result, nil
}

// confirmOnLedger reads the anchored record back and checks it is still
// marked valid. Successful reads are cached; failures are not, so a ledger
// recovery shows up on the next lookup.
func (s *Service) confirmOnLedger(ctx context.Context, credential models.Credential) bool {
	cacheKey := credential.ID.String()
	if s.cache != nil {
		if confirmed, ok, err := s.cache.Lookup(ctx, cacheKey); err == nil && ok {
			return confirmed
		} else if err != nil {
			s.logger.WarnContext(ctx, "confirmation cache lookup failed",
				"credential_id", cacheKey, "error", err)
		}
	}

	var confirmed bool
	var err error
	switch credential.Kind {
	case models.KindCertificate:
		record, readErr := s.gateway.ReadCertificate(ctx, credential.LedgerRecordID)
		confirmed, err = record.Valid, readErr
	case models.KindBadge:
		record, readErr := s.gateway.ReadBadge(ctx, credential.LedgerRecordID)
		confirmed, err = record.Valid, readErr
	}
	if err != nil {
		s.logger.WarnContext(ctx, "ledger confirmation unavailable",
			"credential_id", cacheKey, "error", err)
		return false
	}

	if s.cache != nil {
		if err := s.cache.Store(ctx, cacheKey, confirmed); err != nil {
			s.logger.WarnContext(ctx, "confirmation cache store failed",
				"credential_id", cacheKey, "error", err)
		}
	}
	return confirmed
}

func (s *Service) incVerification(result string) {
	if s.metrics != nil {
		s.metrics.Verifications.WithLabelValues(result).Inc()
	}
}
