package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crest/internal/platform/config"
	"crest/pkg/platform/sentinel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := New(config.LedgerConfig{
		RelayURL:            server.URL,
		APIKey:              "relay-key",
		IdentityContract:    "0xID",
		CertificateContract: "0xCERT",
		BadgeContract:       "0xBADGE",
		Timeout:             2 * time.Second,
	}, testLogger())
	return client, server
}

func TestMintCertificate_AttachesRecordID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/contracts/0xCERT/mint", r.URL.Path)
		assert.Equal(t, "Bearer relay-key", r.Header.Get("Authorization"))

		var req mintRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hackathon Winner", req.Fields["title"])

		_ = json.NewEncoder(w).Encode(txReceipt{
			TxRef: "0xdeadbeef",
			Logs: []receiptLog{
				{Address: "0xCERT", Topics: []string{topicCertificateIssued, "17"}},
			},
		})
	}))

	receipt, err := client.MintCertificate(context.Background(), "2401CS0001", "Hackathon Winner", "First place", "achievement")
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", receipt.TxRef)
	assert.True(t, receipt.HasRecordID)
	assert.Equal(t, int64(17), receipt.RecordID)
}

func TestMintCertificate_FailsClosedOnReceiptShapeChange(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Event ordering changed: record id topic absent.
		_ = json.NewEncoder(w).Encode(txReceipt{
			TxRef: "0xdeadbeef",
			Logs: []receiptLog{
				{Address: "0xCERT", Topics: []string{topicCertificateIssued}},
			},
		})
	}))

	receipt, err := client.MintCertificate(context.Background(), "2401CS0001", "t", "d", "c")
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", receipt.TxRef)
	assert.False(t, receipt.HasRecordID, "shape mismatch must not produce a record id")
}

func TestMint_MissingTxRefIsRejected(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(txReceipt{})
	}))

	_, err := client.MintBadge(context.Background(), "2401CS0001", "Helper", "participation", "ipfs://img")
	require.ErrorIs(t, err, sentinel.ErrLedgerRejected)
}

func TestFailureClassification(t *testing.T) {
	t.Run("4xx is rejected", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		_, err := client.MintCertificate(context.Background(), "o", "t", "d", "c")
		require.ErrorIs(t, err, sentinel.ErrLedgerRejected)
	})

	t.Run("5xx is unavailable", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		_, err := client.VerifyIdentity(context.Background(), "2401CS0001")
		require.ErrorIs(t, err, sentinel.ErrLedgerUnavailable)
	})

	t.Run("connection refused is unavailable", func(t *testing.T) {
		client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()
		_, err := client.ReadCertificate(context.Background(), 1)
		require.ErrorIs(t, err, sentinel.ErrLedgerUnavailable)
	})

	t.Run("timeout is unavailable", func(t *testing.T) {
		slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		})
		server := httptest.NewServer(slow)
		t.Cleanup(server.Close)
		client := New(config.LedgerConfig{
			RelayURL:            server.URL,
			CertificateContract: "0xCERT",
			Timeout:             20 * time.Millisecond,
		}, testLogger())

		_, err := client.ReadCertificate(context.Background(), 1)
		require.ErrorIs(t, err, sentinel.ErrLedgerUnavailable)
	})
}

func TestReadCertificate(t *testing.T) {
	issuedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contracts/0xCERT/records/17", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"owner_id":    "2401CS0001",
			"title":       "Hackathon Winner",
			"description": "First place",
			"category":    "achievement",
			"valid":       true,
			"issued_at":   issuedAt,
		})
	}))

	record, err := client.ReadCertificate(context.Background(), 17)
	require.NoError(t, err)
	assert.Equal(t, "2401CS0001", record.OwnerID)
	assert.Equal(t, "Hackathon Winner", record.Title)
	assert.True(t, record.Valid)
	assert.True(t, record.IssuedAt.Equal(issuedAt))
}

func TestVerifyIdentity(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contracts/0xID/verify/2401CS0001", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]bool{"valid": true})
	}))

	valid, err := client.VerifyIdentity(context.Background(), "2401CS0001")
	require.NoError(t, err)
	assert.True(t, valid)
}
