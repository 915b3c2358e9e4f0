package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	a := NewJWTAuthenticator("secret", "examhub", "examhub")
	id := uuid.New()

	token, err := a.GenerateToken(id, "student")
	require.NoError(t, err)

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "student", claims.Role)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestJWTRejects(t *testing.T) {
	a := NewJWTAuthenticator("secret", "examhub", "examhub")
	id := uuid.New()

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTAuthenticator("other", "examhub", "examhub")
		token, err := other.GenerateToken(id, "student")
		require.NoError(t, err)
		_, err = a.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTAuthenticator("secret", "examhub", "someone-else")
		token, err := other.GenerateToken(id, "student")
		require.NoError(t, err)
		_, err = a.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		old := NewJWTAuthenticator("secret", "examhub", "examhub")
		old.now = func() time.Time { return time.Now().Add(-DefaultTokenExp - time.Hour) }
		token, err := old.GenerateToken(id, "student")
		require.NoError(t, err)
		_, err = a.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("non-uuid subject", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			Issuer:    "examhub",
			Audience:  jwt.ClaimStrings{"examhub"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = a.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("alg none", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": id.String()}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = a.ValidateToken(token)
		assert.Error(t, err)
	})
}
