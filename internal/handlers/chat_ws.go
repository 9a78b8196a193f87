package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AnshRaj112/safeharbor-backend/internal/auth"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsPongWait   = 90 * time.Second
	wsPingPeriod = 60 * time.Second
	wsWriteWait  = 10 * time.Second

	// maxConnsPerUser bounds open feeds per user on one instance.
	maxConnsPerUser = 5
)

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			for _, allowed := range h.AllowedOrigins {
				if strings.EqualFold(strings.TrimRight(allowed, "/"), u.Scheme+"://"+u.Host) {
					return true
				}
			}
			return false
		},
	}
}

// ChatWebSocket streams the caller's new companion messages (GET /ws/chat).
// Browsers cannot set headers on WebSocket requests, so the token may also
// come from the "token" query parameter. The feed is read-only: messages are
// sent with POST /api/chat.
func (h *Handler) ChatWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "Realtime feed is not available")
		return
	}

	token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing session token")
		return
	}
	uid, err := h.Tokens.Verify(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	if h.Hub.Connections(uid) >= maxConnsPerUser {
		writeError(w, http.StatusTooManyRequests, "Too many open connections")
		return
	}

	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := h.Hub.Register(uid, conn)
	defer h.Hub.Unregister(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		client.WritePump(ctx)
		// A failed write means the peer is gone; unblock the reader.
		_ = conn.Close()
	}()
	go keepAlive(ctx, conn)

	conn.SetReadLimit(4 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("chat_ws: connection closed", zap.String("user_id", uid), zap.Error(err))
			}
			return
		}
	}
}

// keepAlive pings the peer so idle connections survive proxies. WriteControl
// may be called concurrently with the writer goroutine.
func keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
