package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AnshRaj112/safeharbor-backend/internal/models"
	"github.com/AnshRaj112/safeharbor-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type messagesResponse struct {
	Success  bool                 `json:"success"`
	Messages []models.ChatMessage `json:"messages"`
	HasMore  bool                 `json:"hasMore"`
	// Next page cursor, set when HasMore.
	NextBefore   *time.Time `json:"nextBefore,omitempty"`
	NextBeforeID string     `json:"nextBeforeId,omitempty"`
}

// ListMessages handles GET /api/chat/messages?sessionId=&limit=&before=&beforeId=.
// Messages come back oldest-first. before/beforeId page further into the past;
// clients should echo nextBefore/nextBeforeId so messages sharing a timestamp
// are not skipped.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var limit int64
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var before *services.MessageCursor
	if v := q.Get("before"); v != "" {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be an RFC 3339 timestamp")
			return
		}
		before = &services.MessageCursor{Timestamp: ts}
	}
	if v := q.Get("beforeId"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil || before == nil {
			writeError(w, http.StatusBadRequest, "beforeId must be a message id and requires before")
			return
		}
		before.ID = id
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	msgs, hasMore, err := h.Messages.ListMessages(ctx, userID(r), strings.TrimSpace(q.Get("sessionId")), before, limit)
	if err != nil {
		writeServiceError(w, r, err, "Failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	resp := messagesResponse{Success: true, Messages: msgs, HasMore: hasMore}
	if next := services.CursorAfter(msgs); hasMore && next != nil {
		resp.NextBefore = &next.Timestamp
		resp.NextBeforeID = next.ID.Hex()
	}
	writeJSON(w, http.StatusOK, resp)
}

type createSessionRequest struct {
	Title string `json:"title"`
}

type sessionResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Session *models.ChatSession `json:"session,omitempty"`
}

type sessionsResponse struct {
	Success  bool                 `json:"success"`
	Sessions []models.ChatSession `json:"sessions"`
}

// CreateSession handles POST /api/chat/sessions. The body is optional.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	session, err := h.Sessions.Create(ctx, userID(r), req.Title)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create chat session")
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Success: true, Message: "Chat session created", Session: session})
}

// ListSessions handles GET /api/chat/sessions, most recently active first.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

	ctx, cancel := requestContext(r)
	defer cancel()

	sessions, err := h.Sessions.List(ctx, userID(r), limit)
	if err != nil {
		writeServiceError(w, r, err, "Failed to load chat sessions")
		return
	}
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	writeJSON(w, http.StatusOK, sessionsResponse{Success: true, Sessions: sessions})
}
