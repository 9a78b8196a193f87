package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/AnshRaj112/safeharbor-backend/internal/auth"
	"github.com/AnshRaj112/safeharbor-backend/internal/services"
	"go.uber.org/zap"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type chatErrorResponse struct {
	Error string `json:"error"`
}

func writeChatError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, chatErrorResponse{Error: message})
}

// Chat handles POST /api/chat: one message to the AI companion.
// The handler authenticates itself so it can answer in the chat envelope.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte("Only POST allowed"))
		return
	}

	token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeChatError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	uid, err := h.Tokens.Verify(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			writeChatError(w, http.StatusUnauthorized, "Token expired, please refresh.")
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
			writeChatError(w, http.StatusUnauthorized, "Unauthorized")
		default:
			zap.L().Error("chat: token verification failed", zap.Error(err))
			writeChatError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	if h.ChatLimiter != nil && !h.ChatLimiter.Allow(w, uid) {
		writeChatError(w, http.StatusTooManyRequests, "Too many messages. Please slow down.")
		return
	}

	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeChatError(w, http.StatusBadRequest, "Missing message")
		return
	}

	reply, err := h.Companion.Respond(r.Context(), services.ChatRequest{
		UserID:    uid,
		SessionID: strings.TrimSpace(req.SessionID),
		Message:   req.Message,
	})
	if err != nil {
		if errors.Is(err, services.ErrEmptyMessage) {
			writeChatError(w, http.StatusBadRequest, "Missing message")
			return
		}
		fields := []zap.Field{zap.String("user_id", uid), zap.Error(err)}
		if hint := services.ErrorHint(err); hint != "" {
			fields = append(fields, zap.String("hint", hint))
		}
		zap.L().Error("chat: request failed", fields...)
		writeChatError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}
