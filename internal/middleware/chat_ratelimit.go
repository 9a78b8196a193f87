package middleware

import (
	"net/http"
	"strconv"

	"github.com/AnshRaj112/safeharbor-backend/internal/auth"
)

// ChatLimiter throttles companion messages per user. Model calls are the
// expensive part of the service, so the key is the authenticated user, not the IP.
type ChatLimiter struct {
	limiter *KeyedLimiter
}

func NewChatLimiter(perMinute, burst int) *ChatLimiter {
	return &ChatLimiter{limiter: PerMinute(perMinute, burst)}
}

// Allow reports whether userID may send another message now and sets the
// rate limit headers on w.
func (c *ChatLimiter) Allow(w http.ResponseWriter, userID string) bool {
	ok := c.limiter.Allow(userID)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(c.limiter.Burst()))
	if !ok {
		w.Header().Set("X-RateLimit-Remaining", "0")
	}
	return ok
}

// LimitByUser applies l to requests behind RequireAuth.
func LimitByUser(l *KeyedLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := auth.UserIDFromContext(r.Context())
			if !l.Allow(userID) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.Burst()))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"success":false,"message":"Too many requests. Please slow down."}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
