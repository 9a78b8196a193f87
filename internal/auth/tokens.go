// Package auth issues and verifies the bearer tokens that identify students.
//
// A token is an HS256 JWT whose "sid" claim points at a server-side session in
// Redis. Signing out deletes the session, which revokes the token before it
// expires.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken   = errors.New("missing bearer token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrSessionRevoked = fmt.Errorf("%w: session revoked", ErrInvalidToken)
)

const issuer = "safeharbor"

// Claims carried by every ID token.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionStore keeps the server side of a token so it can be revoked.
type SessionStore interface {
	Create(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	Lookup(ctx context.Context, sessionID string) (userID string, ok bool, err error)
	Delete(ctx context.Context, sessionID string) error
}

// Verifier is what HTTP handlers need from the token manager.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type TokenManager struct {
	secret   []byte
	ttl      time.Duration
	sessions SessionStore
	now      func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration, sessions SessionStore) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{
		secret:   []byte(secret),
		ttl:      ttl,
		sessions: sessions,
		now:      time.Now,
	}
}

// Issue starts a session for userID and returns its signed token.
func (m *TokenManager) Issue(ctx context.Context, userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("issue token: empty user id")
	}

	sessionID := uuid.NewString()
	if err := m.sessions.Create(ctx, sessionID, userID, m.ttl); err != nil {
		return "", time.Time{}, fmt.Errorf("create session: %w", err)
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, expiry and the backing session, and returns the user id.
func (m *TokenManager) Verify(ctx context.Context, token string) (string, error) {
	claims, err := m.parse(token)
	if err != nil {
		return "", err
	}

	userID, ok, err := m.sessions.Lookup(ctx, claims.SessionID)
	if err != nil {
		return "", fmt.Errorf("lookup session: %w", err)
	}
	if !ok || userID != claims.Subject {
		return "", ErrSessionRevoked
	}
	return claims.Subject, nil
}

// Revoke deletes the session behind token. Expired tokens are revoked too.
func (m *TokenManager) Revoke(ctx context.Context, token string) error {
	claims := &Claims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil || claims.SessionID == "" {
		return ErrInvalidToken
	}
	if _, err := m.parse(token); err != nil && !errors.Is(err, ErrTokenExpired) {
		return err
	}
	return m.sessions.Delete(ctx, claims.SessionID)
}

func (m *TokenManager) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractBearerToken returns the token from an "Authorization: Bearer <token>" header.
func ExtractBearerToken(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

type ctxKey struct{}

// WithUserID stores the authenticated user id on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserIDFromContext returns the user id placed by the auth middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
