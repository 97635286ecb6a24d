package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumedia/models"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	raw, exp, err := issuer.Sign("user-1", models.RoleUser, "a@b.com", "+15551234567")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := issuer.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "+15551234567", claims.Phone)
}

func TestTokenDefaultTTL(t *testing.T) {
	issuer := NewTokenIssuer("secret", 0)
	_, exp, err := issuer.Sign("u", models.RoleUser, "", "")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, 5*time.Second)
}

func TestTokenRejections(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	raw, _, err := issuer.Sign("u", models.RoleUser, "", "")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenIssuer("other", time.Hour).Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewTokenIssuer("secret", time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			Role:             models.RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Verify(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAdminIdentity(t *testing.T) {
	admin := AdminIdentity{ID: "static-admin", Email: "admin@x.io", Password: "pw"}
	assert.True(t, admin.Reserved(" Admin@X.io "))
	assert.False(t, admin.Reserved("user@x.io"))
	assert.True(t, admin.Matches("ADMIN@x.io", "pw"))
	assert.False(t, admin.Matches("admin@x.io", "PW"))

	var empty AdminIdentity
	assert.False(t, empty.Reserved(""))
	assert.False(t, empty.Matches("", ""))
}
