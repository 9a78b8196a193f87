package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/safeharbor-backend/internal/auth"
	"github.com/AnshRaj112/safeharbor-backend/internal/library"
	"github.com/AnshRaj112/safeharbor-backend/internal/middleware"
	"github.com/AnshRaj112/safeharbor-backend/internal/models"
	"github.com/AnshRaj112/safeharbor-backend/internal/services"
	"github.com/AnshRaj112/safeharbor-backend/pkg/utils"
)

type fakeTokens struct {
	users   map[string]string
	errs    map[string]error
	revoked []string
}

func (f *fakeTokens) Issue(ctx context.Context, userID string) (string, time.Time, error) {
	return "tok-" + userID, time.Now().Add(time.Hour), nil
}

func (f *fakeTokens) Verify(ctx context.Context, token string) (string, error) {
	if err, ok := f.errs[token]; ok {
		return "", err
	}
	if uid, ok := f.users[token]; ok {
		return uid, nil
	}
	return "", auth.ErrInvalidToken
}

func (f *fakeTokens) Revoke(ctx context.Context, token string) error {
	if _, ok := f.users[token]; !ok {
		return auth.ErrInvalidToken
	}
	f.revoked = append(f.revoked, token)
	return nil
}

type fakeCompanion struct {
	reply *services.ChatReply
	err   error
	got   []services.ChatRequest
}

func (f *fakeCompanion) Respond(ctx context.Context, req services.ChatRequest) (*services.ChatReply, error) {
	f.got = append(f.got, req)
	return f.reply, f.err
}

type fakeUsers struct {
	taken map[string]bool
}

func (f *fakeUsers) Create(ctx context.Context, username, password string) (*models.User, error) {
	if f.taken[username] {
		return nil, services.ErrUsernameTaken
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, err
	}
	return &models.User{ID: "u-new", Username: username, IsActive: true}, nil
}

func (f *fakeUsers) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "calm_otter" && password == "correct horse battery" {
		return &models.User{ID: "u1", Username: username, IsActive: true}, nil
	}
	return nil, services.ErrInvalidCredentials
}

func (f *fakeUsers) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return &models.User{ID: userID, Username: "calm_otter", IsActive: true}, nil
}

type fakeGoals struct{}

func (fakeGoals) Create(ctx context.Context, userID, title string) (*models.Goal, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &utils.ValidationError{Field: "title", Message: "Title is required"}
	}
	return &models.Goal{Title: title, Status: models.GoalStatusActive}, nil
}

func (fakeGoals) List(ctx context.Context, userID string) ([]models.Goal, error) { return nil, nil }

func (fakeGoals) UpdateStatus(ctx context.Context, userID, goalID, status string) (*models.Goal, error) {
	return nil, services.ErrNotFound
}

func (fakeGoals) Delete(ctx context.Context, userID, goalID string) error { return services.ErrNotFound }

type fakeCheckIns struct {
	content *library.Content
}

func (f fakeCheckIns) Submit(ctx context.Context, userID string, answers map[string]int) (*models.CheckIn, error) {
	return services.ScoreCheckIn(f.content, answers)
}

func (fakeCheckIns) List(ctx context.Context, userID string, limit int64) ([]models.CheckIn, error) {
	return nil, nil
}

type fakeMessages struct {
	calls   int
	before  *services.MessageCursor
	page    []models.ChatMessage
	hasMore bool
}

func (f *fakeMessages) ListMessages(ctx context.Context, userID, sessionID string, before *services.MessageCursor, limit int64) ([]models.ChatMessage, bool, error) {
	f.calls++
	f.before = before
	return f.page, f.hasMore, nil
}

func newTestHandler(t *testing.T) (*Handler, *fakeTokens, *fakeCompanion) {
	t.Helper()
	content, err := library.Load()
	require.NoError(t, err)

	tokens := &fakeTokens{
		users: map[string]string{"good": "u1"},
		errs: map[string]error{
			"expired": auth.ErrTokenExpired,
			"broken":  errors.New("redis: connection refused"),
		},
	}
	companion := &fakeCompanion{reply: &services.ChatReply{Mood: "happy", Reply: "Glad to hear it!"}}
	return &Handler{
		Companion: companion,
		Tokens:    tokens,
		Users:     &fakeUsers{taken: map[string]bool{"taken_name": true}},
		Messages:  &fakeMessages{},
		Goals:     fakeGoals{},
		CheckIns:  fakeCheckIns{content: content},
		Library:   content,
	}, tokens, companion
}

func testRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.HandleFunc("/api/chat", h.Chat)
	r.Post("/api/auth/signup", h.Signup)
	r.Post("/api/auth/signin", h.Signin)
	r.Post("/api/auth/signout", h.Signout)
	r.Get("/api/resources", h.ListResources)
	r.Get("/api/checkins/questions", h.CheckInQuestions)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.Tokens))
		r.Get("/api/auth/me", h.Me)
		r.Get("/api/chat/messages", h.ListMessages)
		r.Post("/api/goals", h.CreateGoal)
		r.Put("/api/goals/{id}", h.UpdateGoal)
		r.Delete("/api/goals/{id}", h.DeleteGoal)
		r.Post("/api/checkins", h.SubmitCheckIn)
		r.Post("/api/upload", h.UploadImage)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestChat(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		token      string
		body       string
		wantStatus int
		wantError  string
	}{
		{"wrong method", http.MethodGet, "good", "", http.StatusMethodNotAllowed, ""},
		{"missing token", http.MethodPost, "", `{"message":"hi"}`, http.StatusUnauthorized, "Unauthorized"},
		{"expired token", http.MethodPost, "expired", `{"message":"hi"}`, http.StatusUnauthorized, "Token expired, please refresh."},
		{"invalid token", http.MethodPost, "forged", `{"message":"hi"}`, http.StatusUnauthorized, "Unauthorized"},
		{"session lookup failure", http.MethodPost, "broken", `{"message":"hi"}`, http.StatusInternalServerError, "Internal server error"},
		{"missing message", http.MethodPost, "good", `{}`, http.StatusBadRequest, "Missing message"},
		{"blank message", http.MethodPost, "good", `{"message":"   "}`, http.StatusBadRequest, "Missing message"},
		{"malformed body", http.MethodPost, "good", `{"message":`, http.StatusBadRequest, "Missing message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, companion := newTestHandler(t)
			rec := do(t, testRouter(h), tt.method, "/api/chat", tt.token, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Empty(t, companion.got)
			if tt.wantError == "" {
				assert.Equal(t, "Only POST allowed", rec.Body.String())
				return
			}
			assert.Equal(t, tt.wantError, decodeBody(t, rec)["error"])
		})
	}
}

func TestChatSuccess(t *testing.T) {
	h, _, companion := newTestHandler(t)

	rec := do(t, testRouter(h), http.MethodPost, "/api/chat", "good", `{"message":"I had a good day","sessionId":" s1 "}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "happy", body["mood"])
	assert.Equal(t, "Glad to hear it!", body["reply"])
	assert.NotContains(t, body, "crisis")

	require.Len(t, companion.got, 1)
	assert.Equal(t, services.ChatRequest{UserID: "u1", SessionID: "s1", Message: "I had a good day"}, companion.got[0])
}

func TestChatCompanionFailure(t *testing.T) {
	h, _, companion := newTestHandler(t)
	companion.reply = nil
	companion.err = errors.New("generate with gemini: 429 quota exceeded")

	rec := do(t, testRouter(h), http.MethodPost, "/api/chat", "good", `{"message":"hello"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeBody(t, rec)["error"])
}

func TestChatRateLimited(t *testing.T) {
	h, _, companion := newTestHandler(t)
	h.ChatLimiter = middleware.NewChatLimiter(1, 1)
	router := testRouter(h)

	first := do(t, router, http.MethodPost, "/api/chat", "good", `{"message":"one"}`)
	second := do(t, router, http.MethodPost, "/api/chat", "good", `{"message":"two"}`)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))
	assert.Len(t, companion.got, 1)
}

func TestSignup(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := testRouter(h)

	rec := do(t, router, http.MethodPost, "/api/auth/signup", "", `{"username":"new_friend","password":"correct horse battery"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "tok-u-new", body["token"])

	rec = do(t, router, http.MethodPost, "/api/auth/signup", "", `{"username":"taken_name","password":"correct horse battery"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/auth/signup", "", `{"username":"new_friend","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])
}

func TestSigninAndSignout(t *testing.T) {
	h, tokens, _ := newTestHandler(t)
	router := testRouter(h)

	rec := do(t, router, http.MethodPost, "/api/auth/signin", "", `{"username":"calm_otter","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/auth/signin", "", `{"username":"","password":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/auth/signin", "", `{"username":"calm_otter","password":"correct horse battery"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok-u1", decodeBody(t, rec)["token"])

	rec = do(t, router, http.MethodPost, "/api/auth/signout", "good", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"good"}, tokens.revoked)

	rec = do(t, router, http.MethodPost, "/api/auth/signout", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := testRouter(h)

	rec := do(t, router, http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", decodeBody(t, rec)["message"])

	rec = do(t, router, http.MethodGet, "/api/auth/me", "expired", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token expired, please refresh.", decodeBody(t, rec)["message"])

	rec = do(t, router, http.MethodGet, "/api/auth/me", "good", "")
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]interface{})
	assert.Equal(t, "u1", user["id"])
	assert.NotContains(t, user, "PasswordHash")
}

func TestGoals(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := testRouter(h)

	rec := do(t, router, http.MethodPost, "/api/goals", "good", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Title is required", decodeBody(t, rec)["message"])

	rec = do(t, router, http.MethodPost, "/api/goals", "good", `{"title":"Walk every day"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/goals/abc", "good", `{"status":"completed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodDelete, "/api/goals/abc", "good", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckIns(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := testRouter(h)

	rec := do(t, router, http.MethodGet, "/api/checkins/questions", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["questions"], len(h.Library.Questions))

	rec = do(t, router, http.MethodPost, "/api/checkins", "good", `{"answers":{"1":2}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	answers := map[string]int{}
	for _, q := range h.Library.Questions {
		answers[strconv.Itoa(q.ID)] = 1
	}
	payload, err := json.Marshal(map[string]interface{}{"answers": answers})
	require.NoError(t, err)

	rec = do(t, router, http.MethodPost, "/api/checkins", "good", string(payload))
	require.Equal(t, http.StatusCreated, rec.Code)
	body = decodeBody(t, rec)
	assert.NotEmpty(t, body["recommendations"])
	assert.NotNil(t, body["checkIn"])
}

func TestListResourcesFilters(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := do(t, testRouter(h), http.MethodGet, "/api/resources?type=video", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body resourcesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Resources)
	for _, res := range body.Resources {
		assert.Equal(t, "video", strings.ToLower(res.Type))
	}
}

func TestListMessagesValidatesQuery(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := testRouter(h)
	messages := h.Messages.(*fakeMessages)

	rec := do(t, router, http.MethodGet, "/api/chat/messages?limit=-3", "good", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/chat/messages?before=yesterday", "good", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, messages.calls)

	rec = do(t, router, http.MethodGet, "/api/chat/messages?limit=20&before=2026-01-02T15:04:05Z", "good", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []interface{}{}, body["messages"])
	assert.Equal(t, false, body["hasMore"])
	assert.NotContains(t, body, "nextBeforeId")
	require.NotNil(t, messages.before)
	assert.True(t, messages.before.ID.IsZero())

	rec = do(t, router, http.MethodGet, "/api/chat/messages?beforeId=zzz&before=2026-01-02T15:04:05Z", "good", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/chat/messages?beforeId=65a1b2c3d4e5f60718293a4b", "good", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMessagesReturnsTieBreakingCursor(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := testRouter(h)
	messages := h.Messages.(*fakeMessages)

	ts := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	aiID := primitive.NewObjectID()
	messages.page = []models.ChatMessage{{ID: aiID, Sender: models.SenderAI, Text: "I'm here.", Timestamp: ts}}
	messages.hasMore = true

	rec := do(t, router, http.MethodGet, "/api/chat/messages?limit=1", "good", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["hasMore"])
	assert.Equal(t, aiID.Hex(), body["nextBeforeId"])
	assert.Equal(t, "2026-01-02T15:04:05Z", body["nextBefore"])

	rec = do(t, router, http.MethodGet, "/api/chat/messages?limit=1&before=2026-01-02T15:04:05Z&beforeId="+aiID.Hex(), "good", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, messages.before)
	assert.Equal(t, aiID, messages.before.ID)
	assert.True(t, ts.Equal(messages.before.Timestamp))
}

func TestUploadWithoutCloudinary(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := do(t, testRouter(h), http.MethodPost, "/api/upload", "good", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type idleConn struct{}

func (idleConn) WriteJSON(v interface{}) error { return nil }
func (idleConn) Close() error                  { return nil }

func TestChatWebSocketCapsConnectionsPerUser(t *testing.T) {
	h, _, _ := newTestHandler(t)
	h.Hub = services.NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		h.Hub.Register("u1", idleConn{})
	}

	rec := httptest.NewRecorder()
	h.ChatWebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws/chat?token=good", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	h.ChatWebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws/chat?token=forged", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
