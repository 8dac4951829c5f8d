package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "crest/pkg/domain-errors"
)

func TestPrefix(t *testing.T) {
	t.Run("builds year institution department prefix", func(t *testing.T) {
		prefix, err := Prefix(2024, "01", "CS")
		require.NoError(t, err)
		assert.Equal(t, "2401CS", prefix)
	})

	t.Run("truncates long department codes", func(t *testing.T) {
		prefix, err := Prefix(2024, "01", "MECH")
		require.NoError(t, err)
		assert.Equal(t, "2401ME", prefix)
	})

	t.Run("pads short department codes", func(t *testing.T) {
		prefix, err := Prefix(2024, "01", "e")
		require.NoError(t, err)
		assert.Equal(t, "2401E0", prefix)
	})

	t.Run("rejects non-4-digit years", func(t *testing.T) {
		_, err := Prefix(24, "01", "CS")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects empty department code", func(t *testing.T) {
		_, err := Prefix(2024, "01", "  ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects non-alphanumeric department code", func(t *testing.T) {
		_, err := Prefix(2024, "01", "C-S")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestFormatIdentifier(t *testing.T) {
	assert.Equal(t, "2401CS0001", FormatIdentifier("2401CS", 1))
	assert.Equal(t, "2401CS0042", FormatIdentifier("2401CS", 42))
	assert.Equal(t, "2401CS9999", FormatIdentifier("2401CS", 9999))
}
