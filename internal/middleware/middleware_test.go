package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AnshRaj112/safeharbor-backend/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type stubVerifier struct {
	userID string
	err    error
}

func (v stubVerifier) Verify(ctx context.Context, token string) (string, error) {
	return v.userID, v.err
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		verifier stubVerifier
		status   int
		body     string
	}{
		{"missing header", "", stubVerifier{userID: "u1"}, http.StatusUnauthorized, "Authentication required"},
		{"wrong scheme", "Basic abc", stubVerifier{userID: "u1"}, http.StatusUnauthorized, "Authentication required"},
		{"expired", "Bearer t", stubVerifier{err: auth.ErrTokenExpired}, http.StatusUnauthorized, "Token expired, please refresh."},
		{"revoked", "Bearer t", stubVerifier{err: auth.ErrSessionRevoked}, http.StatusUnauthorized, "Authentication required"},
		{"store down", "Bearer t", stubVerifier{err: errors.New("redis down")}, http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			RequireAuth(tt.verifier)(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestRequireAuthSetsUserID(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.UserIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
	req.Header.Set("Authorization", "Bearer good")
	RequireAuth(stubVerifier{userID: "user-42"})(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "user-42", got)
}

func TestKeyedLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewKeyedLimiter(rate.Every(time.Minute), 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	now = now.Add(time.Minute)
	assert.True(t, l.Allow("a"))
}

func TestChatLimiter(t *testing.T) {
	l := NewChatLimiter(1, 1)

	rec := httptest.NewRecorder()
	require.True(t, l.Allow(rec, "u1"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	assert.False(t, l.Allow(rec, "u1"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	assert.True(t, l.Allow(httptest.NewRecorder(), "u2"))
}

func TestLimitByUser(t *testing.T) {
	h := LimitByUser(NewKeyedLimiter(rate.Every(time.Hour), 1))(okHandler)
	req := httptest.NewRequest(http.MethodPost, "/api/journals", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "u1"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLoginRateLimitOnlyOnAuthPaths(t *testing.T) {
	h := LoginRateLimit()(okHandler)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/resources", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signin", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestSecurityHeadersAndHostCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	h := HostCheck("api.safeharbor.app")(okHandler)
	req := httptest.NewRequest(http.MethodGet, "http://evil.example/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "http://API.safeharbor.app:443/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:5173"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
