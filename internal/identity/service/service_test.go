package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crest/internal/audit"
	"crest/internal/identity/store"
	"crest/internal/ledger"
	id "crest/pkg/domain"

	dErrors "crest/pkg/domain-errors"
)

type mintingGateway struct {
	ledger.Disabled

	receipt ledger.MintReceipt
	err     error
	calls   int
}

func (g *mintingGateway) MintIdentity(context.Context, string, string, string) (ledger.MintReceipt, error) {
	g.calls++
	return g.receipt, g.err
}

type failingStore struct {
	*store.InMemory
	nextSequenceErr error
}

func (s *failingStore) NextSequence(ctx context.Context, prefix string) (int, error) {
	if s.nextSequenceErr != nil {
		return 0, s.nextSequenceErr
	}
	return s.InMemory.NextSequence(ctx, prefix)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ensureReq(owner id.UserID) EnsureRequest {
	return EnsureRequest{
		Owner:          owner,
		Name:           "Asha Rao",
		ContactRef:     "asha@example.edu",
		AdmissionYear:  2024,
		DepartmentCode: "CS",
	}
}

func TestEnsureIdentityAllocates(t *testing.T) {
	gateway := &mintingGateway{receipt: ledger.MintReceipt{TxRef: "0xabc"}}
	svc := New(store.NewInMemory(), gateway, "01", testLogger())

	record, err := svc.EnsureIdentity(context.Background(), ensureReq(id.NewUserID()))
	require.NoError(t, err)
	assert.Equal(t, "2401CS0001", record.InstitutionalID)
	assert.Equal(t, 1, gateway.calls)
}

func TestEnsureIdentitySequencesWithinPrefix(t *testing.T) {
	svc := New(store.NewInMemory(), ledger.NewDisabled(), "01", testLogger())

	first, err := svc.EnsureIdentity(context.Background(), ensureReq(id.NewUserID()))
	require.NoError(t, err)
	second, err := svc.EnsureIdentity(context.Background(), ensureReq(id.NewUserID()))
	require.NoError(t, err)

	assert.Equal(t, "2401CS0001", first.InstitutionalID)
	assert.Equal(t, "2401CS0002", second.InstitutionalID)
}

func TestEnsureIdentityIsIdempotent(t *testing.T) {
	gateway := &mintingGateway{receipt: ledger.MintReceipt{TxRef: "0xabc"}}
	svc := New(store.NewInMemory(), gateway, "01", testLogger())
	owner := id.NewUserID()

	first, err := svc.EnsureIdentity(context.Background(), ensureReq(owner))
	require.NoError(t, err)
	second, err := svc.EnsureIdentity(context.Background(), ensureReq(owner))
	require.NoError(t, err)

	assert.Equal(t, first.InstitutionalID, second.InstitutionalID)
	assert.Equal(t, 1, gateway.calls, "the existing record must be returned without a second mint")
}

func TestEnsureIdentitySurvivesLedgerOutage(t *testing.T) {
	s := store.NewInMemory()
	svc := New(s, ledger.NewDisabled(), "01", testLogger())
	owner := id.NewUserID()

	record, err := svc.EnsureIdentity(context.Background(), ensureReq(owner))
	require.NoError(t, err, "allocation must not depend on the ledger")
	assert.Empty(t, record.LedgerTxRef)

	stored, err := s.FindByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, record.InstitutionalID, stored.InstitutionalID)
}

func TestEnsureIdentityAttachesMintRef(t *testing.T) {
	s := store.NewInMemory()
	gateway := &mintingGateway{receipt: ledger.MintReceipt{TxRef: "0xabc"}}
	svc := New(s, gateway, "01", testLogger())
	owner := id.NewUserID()

	_, err := svc.EnsureIdentity(context.Background(), ensureReq(owner))
	require.NoError(t, err)

	stored, err := s.FindByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", stored.LedgerTxRef)
}

func TestEnsureIdentityAllocationFailureIsFatal(t *testing.T) {
	s := &failingStore{InMemory: store.NewInMemory(), nextSequenceErr: errors.New("connection reset")}
	svc := New(s, ledger.NewDisabled(), "01", testLogger())

	_, err := svc.EnsureIdentity(context.Background(), ensureReq(id.NewUserID()))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestEnsureIdentityValidation(t *testing.T) {
	svc := New(store.NewInMemory(), ledger.NewDisabled(), "01", testLogger())

	_, err := svc.EnsureIdentity(context.Background(), EnsureRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	req := ensureReq(id.NewUserID())
	req.AdmissionYear = 24
	_, err = svc.EnsureIdentity(context.Background(), req)
	require.Error(t, err, "two digit years are ambiguous")
}

func TestEnsureIdentityEmitsAudit(t *testing.T) {
	auditStore := audit.NewInMemoryStore()
	svc := New(store.NewInMemory(), ledger.NewDisabled(), "01", testLogger(),
		WithAuditPublisher(audit.NewPublisher(auditStore)))
	owner := id.NewUserID()

	_, err := svc.EnsureIdentity(context.Background(), ensureReq(owner))
	require.NoError(t, err)

	events, err := auditStore.ListByUser(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionIdentityAllocated, events[0].Action)
}

func TestGet(t *testing.T) {
	s := store.NewInMemory()
	svc := New(s, ledger.NewDisabled(), "01", testLogger())
	owner := id.NewUserID()

	_, err := svc.Get(context.Background(), owner)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = svc.EnsureIdentity(context.Background(), ensureReq(owner))
	require.NoError(t, err)

	record, err := svc.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "2401CS0001", record.InstitutionalID)
}
