package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	tok, err := NewSessionToken("secret", 42, "asha@example.com", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, 5*time.Second)

	claims, err := ParseSessionToken("secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", claims.Email)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestParseSessionToken_Rejects(t *testing.T) {
	good, err := NewSessionToken("secret", 1, "a@example.com", time.Hour)
	require.NoError(t, err)
	expired, err := NewSessionToken("secret", 1, "a@example.com", -time.Minute)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "email": "a@example.com"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"wrong secret": good.Token,
		"expired":      expired.Token,
		"alg none":     none,
		"garbage":      "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			secret := "secret"
			if name == "wrong secret" {
				secret = "other"
			}
			_, err := ParseSessionToken(secret, raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestHashSecret(t *testing.T) {
	h, err := HashSecret("123456", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "123456", h)
	assert.True(t, VerifySecret(h, "123456"))
	assert.False(t, VerifySecret(h, "654321"))
}

func TestNumericCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		c, err := NumericCode(6)
		require.NoError(t, err)
		require.Len(t, c, 6)
		assert.NotEqual(t, byte('0'), c[0])
		for _, r := range c {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
	_, err := NumericCode(0)
	assert.Error(t, err)
}
