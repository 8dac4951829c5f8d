package ledger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crest/pkg/platform/circuit"
	"crest/pkg/platform/sentinel"
)

// flakyGateway fails every call with the configured error.
type flakyGateway struct {
	Disabled
	err   error
	calls int
}

func (f *flakyGateway) MintCertificate(context.Context, string, string, string, string) (MintReceipt, error) {
	f.calls++
	if f.err != nil {
		return MintReceipt{}, f.err
	}
	return MintReceipt{TxRef: "0x1", RecordID: 1, HasRecordID: true}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestWithBreaker_ShortCircuitsWhenOpen(t *testing.T) {
	inner := &flakyGateway{err: sentinel.ErrLedgerUnavailable}
	gw := NewWithBreaker(inner, circuit.New("ledger", circuit.WithFailureThreshold(2)), testLogger())

	ctx := context.Background()
	_, err := gw.MintCertificate(ctx, "o", "t", "d", "c")
	require.ErrorIs(t, err, sentinel.ErrLedgerUnavailable)
	_, err = gw.MintCertificate(ctx, "o", "t", "d", "c")
	require.ErrorIs(t, err, sentinel.ErrLedgerUnavailable)
	assert.Equal(t, 2, inner.calls)

	// Breaker is now open: further calls never reach the relay.
	_, err = gw.MintCertificate(ctx, "o", "t", "d", "c")
	require.ErrorIs(t, err, sentinel.ErrLedgerUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestWithBreaker_RejectionsDoNotTrip(t *testing.T) {
	inner := &flakyGateway{err: sentinel.ErrLedgerRejected}
	gw := NewWithBreaker(inner, circuit.New("ledger", circuit.WithFailureThreshold(1)), testLogger())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := gw.MintCertificate(ctx, "o", "t", "d", "c")
		require.ErrorIs(t, err, sentinel.ErrLedgerRejected)
	}
	assert.Equal(t, 5, inner.calls, "rejections must keep reaching the relay")
}

func TestWithBreaker_RecoversAfterSuccess(t *testing.T) {
	inner := &flakyGateway{err: sentinel.ErrLedgerUnavailable}
	breaker := circuit.New("ledger", circuit.WithFailureThreshold(1))
	gw := NewWithBreaker(inner, breaker, testLogger())

	ctx := context.Background()
	_, _ = gw.MintCertificate(ctx, "o", "t", "d", "c")
	assert.True(t, breaker.IsOpen())

	// Operator resets after the ledger comes back; next call succeeds and
	// keeps the breaker closed.
	breaker.Reset()
	inner.err = nil
	receipt, err := gw.MintCertificate(ctx, "o", "t", "d", "c")
	require.NoError(t, err)
	assert.True(t, receipt.HasRecordID)
	assert.False(t, breaker.IsOpen())
}
