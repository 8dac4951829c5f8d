package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crest/internal/credential/models"
	id "crest/pkg/domain"
	"crest/pkg/platform/sentinel"
)

func newCredential(t *testing.T, recipient id.UserID, kind models.Kind, issuedAt time.Time) models.Credential {
	t.Helper()
	credential, err := models.New(id.NewCredentialID(), kind,
		"Hackathon Winner", "", "achievement", "", recipient, id.NewUserID(), id.EventID{}, issuedAt)
	require.NoError(t, err)
	return credential
}

func TestCreateAndFind(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	credential := newCredential(t, id.NewUserID(), models.KindCertificate, time.Now())

	_, err := s.FindByID(ctx, credential.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, s.Create(ctx, credential))
	assert.ErrorIs(t, s.Create(ctx, credential), sentinel.ErrConflict)

	found, err := s.FindByID(ctx, credential.ID)
	require.NoError(t, err)
	assert.Equal(t, credential, found)
}

func TestListByRecipientOrdersByIssuedAt(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	recipient := id.NewUserID()
	now := time.Now()

	second := newCredential(t, recipient, models.KindBadge, now.Add(time.Hour))
	first := newCredential(t, recipient, models.KindCertificate, now)
	other := newCredential(t, id.NewUserID(), models.KindBadge, now)
	require.NoError(t, s.Create(ctx, second))
	require.NoError(t, s.Create(ctx, first))
	require.NoError(t, s.Create(ctx, other))

	credentials, err := s.ListByRecipient(ctx, recipient)
	require.NoError(t, err)
	require.Len(t, credentials, 2)
	assert.Equal(t, first.ID, credentials[0].ID)
	assert.Equal(t, second.ID, credentials[1].ID)
}

func TestAttachLedgerRefsAndSetClaimed(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	credential := newCredential(t, id.NewUserID(), models.KindCertificate, time.Now())
	require.NoError(t, s.Create(ctx, credential))

	require.NoError(t, s.AttachLedgerRefs(ctx, credential.ID, "0xabc", 7))
	require.NoError(t, s.SetClaimed(ctx, credential.ID))

	found, err := s.FindByID(ctx, credential.ID)
	require.NoError(t, err)
	assert.True(t, found.Anchored())
	assert.True(t, found.Claimed)

	assert.ErrorIs(t, s.AttachLedgerRefs(ctx, id.NewCredentialID(), "0x", 1), sentinel.ErrNotFound)
	assert.ErrorIs(t, s.SetClaimed(ctx, id.NewCredentialID()), sentinel.ErrNotFound)
}

func TestListUnanchoredRotation(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	now := time.Now()

	stale := newCredential(t, id.NewUserID(), models.KindBadge, now)
	fresh := newCredential(t, id.NewUserID(), models.KindBadge, now)
	anchored := newCredential(t, id.NewUserID(), models.KindBadge, now)
	require.NoError(t, s.Create(ctx, stale))
	require.NoError(t, s.Create(ctx, fresh))
	require.NoError(t, s.Create(ctx, anchored))
	require.NoError(t, s.AttachLedgerRefs(ctx, anchored.ID, "0xabc", 1))

	require.NoError(t, s.MarkAnchorAttempts(ctx, []id.CredentialID{fresh.ID}, now))

	unanchored, err := s.ListUnanchored(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unanchored, 2, "anchored records are excluded")
	assert.Equal(t, stale.ID, unanchored[0].ID, "never-attempted records come first")

	limited, err := s.ListUnanchored(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, stale.ID, limited[0].ID)
}
