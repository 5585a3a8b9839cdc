package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("  ", time.Hour, nil)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestIssueAndValidate(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer("secret", time.Hour, func() time.Time { return now })
	require.NoError(t, err)

	token, expiresAt, err := issuer.Issue("editor")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "editor", claims.Subject)
	assert.Equal(t, ScopeWrite, claims.Scope)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	issuer, err := NewTokenIssuer("secret", time.Minute, func() time.Time { return clock })
	require.NoError(t, err)

	token, _, err := issuer.Issue("editor")
	require.NoError(t, err)

	clock = now.Add(2 * time.Minute)
	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", time.Hour, nil)
	require.NoError(t, err)
	other, err := NewTokenIssuer("other-secret", time.Hour, nil)
	require.NoError(t, err)

	token, _, err := other.Issue("editor")
	require.NoError(t, err)
	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	noScope := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "editor",
			Issuer:    "composer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := noScope.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Validate(signed)
	assert.ErrorIs(t, err, ErrMissingScope)
}

func TestIssueRequiresSubject(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", 0, nil)
	require.NoError(t, err)
	_, _, err = issuer.Issue("")
	assert.ErrorIs(t, err, ErrMissingSubject)
}
