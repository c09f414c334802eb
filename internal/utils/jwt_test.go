package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJWTToken_Success(t *testing.T) {
	token, err := GenerateJWTToken("test-issuer", "user-123", time.Hour, "secret-key")
	require.NoError(t, err)
	assert.NotEmpty(t, token.SignedString)
	require.NotNil(t, token.Token)

	claims, ok := token.Token.Claims.(*jwt.RegisteredClaims)
	require.True(t, ok)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.Equal(t, "user-123", claims.Subject)
}

func TestGenerateJWTToken_InvalidParams(t *testing.T) {
	tests := []struct {
		name     string
		issuer   string
		subject  string
		duration time.Duration
		key      string
	}{
		{"empty issuer", "", "u", time.Hour, "key"},
		{"empty subject", "iss", "", time.Hour, "key"},
		{"zero duration", "iss", "u", 0, "key"},
		{"empty key", "iss", "u", time.Hour, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateJWTToken(tt.issuer, tt.subject, tt.duration, tt.key)
			assert.Error(t, err)
		})
	}
}

func TestValidateAndParseJWTToken_RoundTrip(t *testing.T) {
	token, err := GenerateJWTToken("idp", "auth0|7", time.Hour, "k")
	require.NoError(t, err)

	parsed, err := ValidateAndParseJWTToken(token.SignedString, "k", "idp")
	require.NoError(t, err)
	assert.Equal(t, "auth0|7", parsed.UserID)
	assert.Equal(t, "idp", parsed.Issuer)
}

func TestValidateAndParseJWTToken_Rejects(t *testing.T) {
	token, err := GenerateJWTToken("idp", "u", time.Hour, "k")
	require.NoError(t, err)

	_, err = ValidateAndParseJWTToken(token.SignedString, "other-key", "idp")
	assert.Error(t, err, "wrong key")

	_, err = ValidateAndParseJWTToken(token.SignedString, "k", "someone-else")
	assert.Error(t, err, "wrong issuer")

	expired, err := GenerateJWTToken("idp", "u", -time.Minute, "k")
	require.NoError(t, err)
	_, err = ValidateAndParseJWTToken(expired.SignedString, "k", "idp")
	assert.Error(t, err, "expired")

	_, err = ValidateAndParseJWTToken("not.a.jwt", "k", "idp")
	assert.Error(t, err)
}

func TestParseBearerToken(t *testing.T) {
	tok, err := ParseBearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	tok, err = ParseBearerToken("  bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	for _, bad := range []string{"", "Bearer", "Basic abc", "Bearer a b"} {
		_, err := ParseBearerToken(bad)
		assert.Error(t, err, bad)
	}
}
