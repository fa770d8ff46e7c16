package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbontrack/carbontrack/internal/session"
)

func newTokens() *session.TokenService {
	return session.NewTokenService(session.TokenConfig{SigningKey: "test-signing-key-with-enough-bytes"})
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	tokens := newTokens()
	now := time.Now()

	token, err := tokens.Issue("sess-1", now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "sess-1", claims.Subject)
	assert.Equal(t, session.DefaultIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenService_Expired(t *testing.T) {
	tokens := newTokens()
	past := time.Now().Add(-2 * time.Hour)

	token, err := tokens.Issue("sess-1", past, past.Add(time.Hour))
	require.NoError(t, err)

	_, err = tokens.Validate(token)
	assert.ErrorIs(t, err, session.ErrTokenExpired)
}

func TestTokenService_WrongKey(t *testing.T) {
	now := time.Now()
	token, err := newTokens().Issue("sess-1", now, now.Add(time.Hour))
	require.NoError(t, err)

	other := session.NewTokenService(session.TokenConfig{SigningKey: "another-key"})
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestTokenService_WrongAudience(t *testing.T) {
	now := time.Now()
	issuer := session.NewTokenService(session.TokenConfig{SigningKey: "k", Audience: "someone-else"})
	token, err := issuer.Issue("sess-1", now, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = session.NewTokenService(session.TokenConfig{SigningKey: "k"}).Validate(token)
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestTokenService_RejectsNoneAlgorithm(t *testing.T) {
	now := time.Now()
	claims := session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    session.DefaultIssuer,
			Audience:  jwt.ClaimStrings{session.DefaultAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		SessionID: "sess-1",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTokens().Validate(token)
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestTokenService_Garbage(t *testing.T) {
	_, err := newTokens().Validate("not.a.token")
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}
