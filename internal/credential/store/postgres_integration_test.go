//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"crest/internal/credential/models"
	"crest/internal/credential/store"
	id "crest/pkg/domain"
	"crest/pkg/platform/sentinel"
	"crest/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "credentials")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newCredential(kind models.Kind) models.Credential {
	credential, err := models.New(id.NewCredentialID(), kind,
		"Hackathon Winner", "First place", "achievement", "ipfs://img",
		id.NewUserID(), id.NewUserID(), id.EventID{},
		time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return credential
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	credential := s.newCredential(models.KindCertificate)
	credential.ClaimTokenHash = "$2a$10$examplehash"

	s.Require().NoError(s.store.Create(ctx, credential))

	found, err := s.store.FindByID(ctx, credential.ID)
	s.Require().NoError(err)
	s.Equal(credential.ID, found.ID)
	s.Equal(credential.Kind, found.Kind)
	s.Equal(credential.Title, found.Title)
	s.Equal(credential.Description, found.Description)
	s.Equal(credential.Category, found.Category)
	s.Equal(credential.ImageRef, found.ImageRef)
	s.Equal(credential.Recipient, found.Recipient)
	s.Equal(credential.Issuer, found.Issuer)
	s.Equal(credential.ClaimTokenHash, found.ClaimTokenHash)
	s.False(found.Claimed)
	s.True(found.IssuedAt.Equal(credential.IssuedAt))

	s.ErrorIs(s.store.Create(ctx, credential), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestListByRecipient() {
	ctx := context.Background()
	first := s.newCredential(models.KindCertificate)
	second := s.newCredential(models.KindBadge)
	second.Recipient = first.Recipient
	second.IssuedAt = first.IssuedAt.Add(time.Hour)

	s.Require().NoError(s.store.Create(ctx, second))
	s.Require().NoError(s.store.Create(ctx, first))
	s.Require().NoError(s.store.Create(ctx, s.newCredential(models.KindBadge)))

	credentials, err := s.store.ListByRecipient(ctx, first.Recipient)
	s.Require().NoError(err)
	s.Require().Len(credentials, 2)
	s.Equal(first.ID, credentials[0].ID, "oldest first")
	s.Equal(second.ID, credentials[1].ID)
}

func (s *PostgresStoreSuite) TestAttachLedgerRefs() {
	ctx := context.Background()
	credential := s.newCredential(models.KindBadge)
	s.Require().NoError(s.store.Create(ctx, credential))

	s.Require().NoError(s.store.AttachLedgerRefs(ctx, credential.ID, "0xabc", 7))

	found, err := s.store.FindByID(ctx, credential.ID)
	s.Require().NoError(err)
	s.True(found.Anchored())
	s.Equal("0xabc", found.LedgerTxRef)
	s.Equal(int64(7), found.LedgerRecordID)

	s.ErrorIs(s.store.AttachLedgerRefs(ctx, id.NewCredentialID(), "0x", 1), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSetClaimed() {
	ctx := context.Background()
	credential := s.newCredential(models.KindCertificate)
	s.Require().NoError(s.store.Create(ctx, credential))
	s.False(credential.Claimed)

	s.Require().NoError(s.store.SetClaimed(ctx, credential.ID))

	found, err := s.store.FindByID(ctx, credential.ID)
	s.Require().NoError(err)
	s.True(found.Claimed)

	s.ErrorIs(s.store.SetClaimed(ctx, id.NewCredentialID()), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUnanchoredQueueRotation() {
	ctx := context.Background()
	stale := s.newCredential(models.KindBadge)
	fresh := s.newCredential(models.KindBadge)
	anchored := s.newCredential(models.KindBadge)

	s.Require().NoError(s.store.Create(ctx, stale))
	s.Require().NoError(s.store.Create(ctx, fresh))
	s.Require().NoError(s.store.Create(ctx, anchored))
	s.Require().NoError(s.store.AttachLedgerRefs(ctx, anchored.ID, "0xabc", 1))

	s.Require().NoError(s.store.MarkAnchorAttempts(ctx,
		[]id.CredentialID{fresh.ID}, time.Now()))

	unanchored, err := s.store.ListUnanchored(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(unanchored, 2, "anchored records are excluded")
	s.Equal(stale.ID, unanchored[0].ID, "never-attempted records come first")

	limited, err := s.store.ListUnanchored(ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(limited, 1)
	s.Equal(stale.ID, limited[0].ID)
}

func (s *PostgresStoreSuite) TestMarkAnchorAttemptsBatch() {
	ctx := context.Background()
	a := s.newCredential(models.KindBadge)
	b := s.newCredential(models.KindCertificate)
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	at := time.Now()
	s.Require().NoError(s.store.MarkAnchorAttempts(ctx, []id.CredentialID{a.ID, b.ID}, at))
	s.Require().NoError(s.store.MarkAnchorAttempts(ctx, nil, at), "empty batch is a no-op")
}
