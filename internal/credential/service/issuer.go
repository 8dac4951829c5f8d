package service

import (
	"context"
	"errors"

	"crest/internal/audit"
	"crest/internal/credential/models"
	"crest/internal/ledger"
	"crest/internal/notify"
	id "crest/pkg/domain"
	"crest/pkg/platform/sentinel"
	"crest/pkg/requestcontext"
	"crest/pkg/secrets"

	dErrors "crest/pkg/domain-errors"
)

// IssueRequest describes a credential to issue.
type IssueRequest struct {
	Kind         models.Kind
	Title        string
	Description  string
	Category     string
	ImageRef     string
	Recipient    id.UserID
	Issuer       id.UserID
	RelatedEvent id.EventID
}

// IssueResult carries the persisted credential. ClaimToken is set only for
// certificates and only on this response; it is never readable again.
type IssueResult struct {
	Credential models.Credential
	ClaimToken string
}

// Issue persists a credential and anchors it to the ledger on a best-effort
// basis. Store failure is fatal; mint and notification failures are not, the
// anchor worker picks up unanchored records later.
//
// Errors: CodeFailedPrecondition when the recipient has no institutional
// identity, CodeInvariantViolation on invalid fields.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (IssueResult, error) {
	ctx, span := tracer.Start(ctx, "credential.issue")
	defer span.End()

	identity, err := s.identities.FindByOwner(ctx, req.Recipient)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return IssueResult{}, dErrors.New(dErrors.CodeFailedPrecondition, "recipient has no institutional identity")
		}
		s.incIssueError()
		return IssueResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve recipient identity")
	}

	credential, err := models.New(id.NewCredentialID(), req.Kind,
		req.Title, req.Description, req.Category, req.ImageRef,
		req.Recipient, req.Issuer, req.RelatedEvent, requestcontext.Now(ctx))
	if err != nil {
		return IssueResult{}, err
	}

	var claimToken string
	if credential.Kind == models.KindCertificate {
		claimToken, err = secrets.Generate()
		if err != nil {
			s.incIssueError()
			return IssueResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue credential")
		}
		credential.ClaimTokenHash, err = secrets.Hash(claimToken)
		if err != nil {
			s.incIssueError()
			return IssueResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue credential")
		}
	}

	if err := s.store.Create(ctx, credential); err != nil {
		s.incIssueError()
		return IssueResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue credential")
	}

	s.incIssued(credential.Kind)
	s.emitAudit(ctx, audit.ActionCredentialIssued, credential.Recipient, credential.Issuer, credential.ID.String())

	if receipt, ok := s.mint(ctx, credential, identity.InstitutionalID); ok {
		if err := s.store.AttachLedgerRefs(ctx, credential.ID, receipt.TxRef, receipt.RecordID); err != nil {
			s.logger.ErrorContext(ctx, "failed to attach credential ledger refs",
				"credential_id", credential.ID.String(), "error", err)
		} else {
			credential.LedgerTxRef = receipt.TxRef
			credential.LedgerRecordID = receipt.RecordID
			s.incAnchorAttached()
		}
	}

	s.sendClaimNotice(ctx, credential, claimToken)

	return IssueResult{Credential: credential, ClaimToken: claimToken}, nil
}

// mint calls the gateway for the credential's kind. A receipt without a
// record id is treated as a miss: attaching half a reference pair would break
// the both-or-neither invariant, so the record stays unanchored for the worker.
func (s *Service) mint(ctx context.Context, credential models.Credential, institutionalID string) (ledger.MintReceipt, bool) {
	var receipt ledger.MintReceipt
	var err error

	switch credential.Kind {
	case models.KindCertificate:
		receipt, err = s.gateway.MintCertificate(ctx,
			institutionalID, credential.Title, credential.Description, credential.Category)
	case models.KindBadge:
		receipt, err = s.gateway.MintBadge(ctx,
			institutionalID, credential.Title, credential.Category, credential.ImageRef)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "credential ledger mint skipped",
			"credential_id", credential.ID.String(), "error", err)
		return ledger.MintReceipt{}, false
	}
	if !receipt.HasRecordID {
		s.logger.WarnContext(ctx, "mint receipt missing record id, leaving unanchored",
			"credential_id", credential.ID.String(), "tx_ref", receipt.TxRef)
		return ledger.MintReceipt{}, false
	}
	return receipt, true
}

func (s *Service) sendClaimNotice(ctx context.Context, credential models.Credential, claimToken string) {
	if s.notifier == nil || credential.Kind != models.KindCertificate {
		return
	}
	err := s.notifier.NotifyClaim(ctx, notify.ClaimNotice{
		Recipient:    credential.Recipient,
		CredentialID: credential.ID,
		Title:        credential.Title,
		Token:        claimToken,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "claim notice delivery failed",
			"credential_id", credential.ID.String(), "error", err)
	}
}

// Claim marks a certificate as accepted by its recipient.
// Errors: CodeNotFound, CodeForbidden when the caller is not the recipient,
// CodeInvalidInput for badges, CodeConflict when already claimed,
// CodeUnauthorized on a token mismatch.
func (s *Service) Claim(ctx context.Context, credentialID id.CredentialID, caller id.UserID, token string) (models.Credential, error) {
	ctx, span := tracer.Start(ctx, "credential.claim")
	defer span.End()

	credential, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Credential{}, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return models.Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	if credential.Recipient != caller {
		return models.Credential{}, dErrors.New(dErrors.CodeForbidden, "only the recipient can claim a credential")
	}
	if credential.Kind != models.KindCertificate {
		return models.Credential{}, dErrors.New(dErrors.CodeInvalidInput, "badges do not require claiming")
	}
	if credential.Claimed {
		return models.Credential{}, dErrors.New(dErrors.CodeConflict, "credential already claimed")
	}
	if !secrets.Compare(credential.ClaimTokenHash, token) {
		return models.Credential{}, dErrors.New(dErrors.CodeUnauthorized, "invalid claim token")
	}

	if err := s.store.SetClaimed(ctx, credential.ID); err != nil {
		return models.Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim credential")
	}
	credential.Claimed = true

	s.incClaims()
	s.emitAudit(ctx, audit.ActionCredentialClaimed, credential.Recipient, caller, credential.ID.String())

	return credential, nil
}

// ListForUser returns a user's credentials, oldest first. Unclaimed
// certificates are included; callers separate owned from pending via Claimed.
func (s *Service) ListForUser(ctx context.Context, user id.UserID) ([]models.Credential, error) {
	credentials, err := s.store.ListByRecipient(ctx, user)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
	}
	return credentials, nil
}

func (s *Service) incIssued(kind models.Kind) {
	if s.metrics != nil {
		s.metrics.Issued.WithLabelValues(string(kind)).Inc()
	}
}

func (s *Service) incIssueError() {
	if s.metrics != nil {
		s.metrics.IssueErrors.Inc()
	}
}

func (s *Service) incClaims() {
	if s.metrics != nil {
		s.metrics.Claims.Inc()
	}
}

func (s *Service) incAnchorAttached() {
	if s.metrics != nil {
		s.metrics.AnchorsAttached.Inc()
	}
}
