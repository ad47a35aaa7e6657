package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidateTokenRoundTrip(t *testing.T) {
	issuer := NewIssuer("test-secret")

	token, err := issuer.IssueToken("dashboard", time.Hour)
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "dashboard", claims.Service)
}

func TestValidateRejectsTokenSignedWithWrongSecret(t *testing.T) {
	issuer := NewIssuer("correct-secret")
	other := NewIssuer("wrong-secret")

	token, err := other.IssueToken("dashboard", time.Hour)
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer("test-secret")

	token, err := issuer.IssueToken("dashboard", -time.Hour)
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateRejectsGarbage(t *testing.T) {
	issuer := NewIssuer("test-secret")

	_, err := issuer.Validate("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
