package middleware

import (
	"errors"
	"net/http"

	"github.com/AnshRaj112/safeharbor-backend/internal/auth"
	"go.uber.org/zap"
)

// RequireAuth verifies the bearer token and puts the user id on the request
// context. Failures answer 401 in the {success,message} envelope.
func RequireAuth(verifier auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
			if token == "" {
				unauthorized(w, "Authentication required")
				return
			}

			userID, err := verifier.Verify(r.Context(), token)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
			case errors.Is(err, auth.ErrTokenExpired):
				unauthorized(w, "Token expired, please refresh.")
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
				unauthorized(w, "Authentication required")
			default:
				zap.L().Error("auth: token verification failed", zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"success":false,"message":"Internal server error"}`))
			}
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
