package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySessions struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newMemorySessions() *memorySessions {
	return &memorySessions{data: make(map[string]string)}
}

func (m *memorySessions) Create(_ context.Context, sessionID, userID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID] = userID
	return nil
}

func (m *memorySessions) Lookup(_ context.Context, sessionID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	id, ok := m.data[sessionID]
	return id, ok, nil
}

func (m *memorySessions) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

func TestIssueAndVerify(t *testing.T) {
	ctx := context.Background()
	tm := NewTokenManager("secret", time.Hour, newMemorySessions())

	token, expiresAt, err := tm.Issue(ctx, "user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	userID, err := tm.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestVerifyExpiredToken(t *testing.T) {
	ctx := context.Background()
	tm := NewTokenManager("secret", time.Minute, newMemorySessions())

	issuedAt := time.Now().Add(-2 * time.Hour)
	tm.now = func() time.Time { return issuedAt }
	token, _, err := tm.Issue(ctx, "user-1")
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	ctx := context.Background()
	sessions := newMemorySessions()
	issuer := NewTokenManager("other-secret", time.Hour, sessions)
	verifier := NewTokenManager("secret", time.Hour, sessions)

	token, _, err := issuer.Issue(ctx, "user-1")
	require.NoError(t, err)

	_, err = verifier.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		SessionID: "s1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tm := NewTokenManager("secret", time.Hour, newMemorySessions())
	_, err = tm.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbageAndEmpty(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour, newMemorySessions())

	_, err := tm.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = tm.Verify(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokeInvalidatesToken(t *testing.T) {
	ctx := context.Background()
	tm := NewTokenManager("secret", time.Hour, newMemorySessions())

	token, _, err := tm.Issue(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, tm.Revoke(ctx, token))

	_, err = tm.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrSessionRevoked)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifySessionStoreFailure(t *testing.T) {
	ctx := context.Background()
	sessions := newMemorySessions()
	tm := NewTokenManager("secret", time.Hour, sessions)

	token, _, err := tm.Issue(ctx, "user-1")
	require.NoError(t, err)

	sessions.err = errors.New("redis: connection refused")
	_, err = tm.Verify(ctx, token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc", ExtractBearerToken("Bearer abc"))
	assert.Equal(t, "abc", ExtractBearerToken("bearer  abc "))
	assert.Equal(t, "", ExtractBearerToken("Basic abc"))
	assert.Equal(t, "", ExtractBearerToken(""))
	assert.Equal(t, "", ExtractBearerToken("Bearer "))
}

func TestUserIDContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	id, ok := UserIDFromContext(WithUserID(context.Background(), "user-9"))
	assert.True(t, ok)
	assert.Equal(t, "user-9", id)
}
