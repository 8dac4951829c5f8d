package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesDistinctTokens(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestHashAndCompare(t *testing.T) {
	token, err := Generate()
	require.NoError(t, err)

	hash, err := Hash(token)
	require.NoError(t, err)
	assert.NotEqual(t, token, hash)

	assert.True(t, Compare(hash, token))
	assert.False(t, Compare(hash, token+"x"))
	assert.False(t, Compare("not-a-hash", token))
}
