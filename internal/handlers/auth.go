package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/AnshRaj112/safeharbor-backend/internal/auth"
	"github.com/AnshRaj112/safeharbor-backend/internal/models"
	"github.com/AnshRaj112/safeharbor-backend/internal/services"
	"go.uber.org/zap"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse returns only anonymous data
type AuthResponse struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
	User      *models.User `json:"user,omitempty"`
}

// Signup handles POST /api/auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	user, err := h.Users.Create(ctx, req.Username, req.Password)
	if errors.Is(err, services.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, "Username is already taken")
		return
	}
	if err != nil {
		writeServiceError(w, r, err, "Failed to create account")
		return
	}

	zap.L().Info("user signed up", zap.String("user_id", user.ID))
	h.issueToken(w, r, user, http.StatusCreated, "Account created successfully")
}

// Signin handles POST /api/auth/signin.
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	user, err := h.Users.Authenticate(ctx, req.Username, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		writeServiceError(w, r, err, "Failed to sign in")
		return
	}

	h.issueToken(w, r, user, http.StatusOK, "Signed in successfully")
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request, user *models.User, status int, message string) {
	token, expiresAt, err := h.Tokens.Issue(r.Context(), user.ID)
	if err != nil {
		zap.L().Error("auth: failed to issue token", zap.String("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	writeJSON(w, status, AuthResponse{
		Success:   true,
		Message:   message,
		Token:     token,
		ExpiresAt: &expiresAt,
		User:      user,
	})
}

// Signout handles POST /api/auth/signout. Expired tokens can still sign out.
func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	err := h.Tokens.Revoke(r.Context(), token)
	if errors.Is(err, auth.ErrInvalidToken) {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if err != nil {
		zap.L().Error("auth: failed to revoke session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Signed out successfully"})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	user, err := h.Users.GetByID(ctx, userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "OK", User: user})
}
