package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret")

	tok, err := m.GenerateToken("user-1", "p@example.com", "producer", time.Hour)
	require.NoError(t, err)

	claims, err := m.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "producer", claims.Role)
}

func TestJWTManager_RejectsWrongSecret(t *testing.T) {
	tok, err := NewJWTManager("a").GenerateToken("user-1", "", "", time.Hour)
	require.NoError(t, err)

	_, err = NewJWTManager("b").VerifyToken(tok)
	assert.Error(t, err)
}

func TestJWTManager_RejectsExpired(t *testing.T) {
	m := NewJWTManager("test-secret")
	tok, err := m.GenerateToken("user-1", "", "", -time.Minute)
	require.NoError(t, err)

	_, err = m.VerifyToken(tok)
	assert.Error(t, err)
}

func TestJWTManager_RejectsMissingSubject(t *testing.T) {
	m := NewJWTManager("test-secret")
	tok, err := m.GenerateToken("", "", "", time.Hour)
	require.NoError(t, err)

	_, err = m.VerifyToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
