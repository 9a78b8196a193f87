// Package handlers maps HTTP requests onto the services. The companion chat
// endpoint answers in the {"error": "..."} envelope the mobile and web clients
// already parse; every other endpoint uses {"success": bool, "message": "..."}.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/AnshRaj112/safeharbor-backend/internal/auth"
	"github.com/AnshRaj112/safeharbor-backend/internal/library"
	"github.com/AnshRaj112/safeharbor-backend/internal/middleware"
	"github.com/AnshRaj112/safeharbor-backend/internal/models"
	"github.com/AnshRaj112/safeharbor-backend/internal/services"
	"github.com/AnshRaj112/safeharbor-backend/pkg/utils"
	"go.uber.org/zap"
)

const (
	requestTimeout = 5 * time.Second
	maxBodyBytes   = 64 << 10
)

type Companion interface {
	Respond(ctx context.Context, req services.ChatRequest) (*services.ChatReply, error)
}

type TokenService interface {
	Issue(ctx context.Context, userID string) (string, time.Time, error)
	Verify(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

type UserStore interface {
	Create(ctx context.Context, username, password string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

type MessageLister interface {
	ListMessages(ctx context.Context, userID, sessionID string, before *services.MessageCursor, limit int64) ([]models.ChatMessage, bool, error)
}

type SessionStore interface {
	Create(ctx context.Context, userID, title string) (*models.ChatSession, error)
	List(ctx context.Context, userID string, limit int64) ([]models.ChatSession, error)
}

type JournalStore interface {
	Create(ctx context.Context, userID string, in services.JournalInput) (*models.JournalEntry, error)
	List(ctx context.Context, userID string, kind models.JournalKind, limit, skip int64) ([]models.JournalEntry, int64, error)
}

type GoalStore interface {
	Create(ctx context.Context, userID, title string) (*models.Goal, error)
	List(ctx context.Context, userID string) ([]models.Goal, error)
	UpdateStatus(ctx context.Context, userID, goalID, status string) (*models.Goal, error)
	Delete(ctx context.Context, userID, goalID string) error
}

type CheckInStore interface {
	Submit(ctx context.Context, userID string, answers map[string]int) (*models.CheckIn, error)
	List(ctx context.Context, userID string, limit int64) ([]models.CheckIn, error)
}

type ImageUploader interface {
	UploadImage(ctx context.Context, userID string, fileHeader *multipart.FileHeader) (string, error)
}

// Handler holds the dependencies of every endpoint. Uploader, the limiters
// and Hub are optional.
type Handler struct {
	Companion   Companion
	Tokens      TokenService
	Users       UserStore
	Messages    MessageLister
	Sessions    SessionStore
	Journals    JournalStore
	Goals       GoalStore
	CheckIns    CheckInStore
	Library     *library.Content
	Uploader    ImageUploader
	Hub         *services.Hub
	ChatLimiter *middleware.ChatLimiter
	// UserLimiter throttles every authenticated request per user.
	UserLimiter *middleware.KeyedLimiter
	// AllowedOrigins is checked on WebSocket upgrades.
	AllowedOrigins []string
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("handlers: encode response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message})
}

// writeServiceError maps a service error onto a status code. Validation
// messages are safe for clients; anything unexpected is logged and hidden.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var vErr *utils.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		zap.L().Error(fallback, zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dest)
}

// userID returns the id RequireAuth placed on the context.
func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}
