package security

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joefazee/settlement/models"
)

func TestPasetoMaker(t *testing.T) {
	key := strings.Repeat("k", 32)

	t.Run("round trip", func(t *testing.T) {
		maker, err := NewPasetoMaker(key)
		require.NoError(t, err)

		token, payload, err := maker.CreateToken("alice", []string{PermissionAdmin}, time.Minute)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		verified, err := maker.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, payload.ID, verified.ID)
		assert.Equal(t, "alice", verified.Subject)
		assert.True(t, verified.Principal().Has(PermissionAdmin))
	})

	t.Run("expired", func(t *testing.T) {
		maker, _ := NewPasetoMaker(key)
		token, _, err := maker.CreateToken("alice", nil, -time.Minute)
		require.NoError(t, err)
		_, err = maker.VerifyToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("tampered or foreign key", func(t *testing.T) {
		maker, _ := NewPasetoMaker(key)
		other, _ := NewPasetoMaker(strings.Repeat("x", 32))
		token, _, _ := other.CreateToken("mallory", nil, time.Minute)
		_, err := maker.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("bad key size", func(t *testing.T) {
		_, err := NewPasetoMaker("short")
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})
}

func TestContextAuthorizer(t *testing.T) {
	auth := NewContextAuthorizer([]string{"root", " "})
	alice := WithPrincipal(context.Background(), Principal{UserID: "alice"})
	admin := WithPrincipal(context.Background(), Principal{UserID: "ops", Permissions: []string{PermissionAdmin}})
	root := WithPrincipal(context.Background(), Principal{UserID: "root"})

	assert.NoError(t, auth.RequireUser(alice, "alice"))
	assert.ErrorIs(t, auth.RequireUser(alice, "bob"), models.ErrUnauthorized)
	assert.ErrorIs(t, auth.RequireUser(context.Background(), "alice"), models.ErrUnauthorized)
	assert.ErrorIs(t, auth.RequireUser(alice, ""), models.ErrUnauthorized)

	assert.NoError(t, auth.RequireAdmin(admin))
	assert.NoError(t, auth.RequireAdmin(root))
	assert.ErrorIs(t, auth.RequireAdmin(alice), models.ErrUnauthorized)
	assert.ErrorIs(t, auth.RequireAdmin(context.Background()), models.ErrUnauthorized)
}
