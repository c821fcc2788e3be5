package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	v := New()
	require.True(t, v.Valid())

	v.Check(true, "outcome", "outcome is required")
	assert.True(t, v.Valid())

	v.Check(false, "amount", "amount must be positive")
	v.Check(false, "amount", "amount must be a whole number")
	assert.False(t, v.Valid())
	assert.Equal(t, map[string]string{"amount": "amount must be positive"}, v.Errors, "first error per field wins")

	err := NewValidationError("invalid stake", v.Errors)
	assert.EqualError(t, err, "invalid stake")
	assert.Equal(t, "amount must be positive", err.Fields["amount"])
}
