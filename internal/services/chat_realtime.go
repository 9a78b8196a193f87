package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/safeharbor-backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	chatEventsChannelPrefix = "ai-chat:events:"
	chatEventsPattern       = chatEventsChannelPrefix + "*"

	EventTypeMessage = "message"

	clientSendBuffer = 16
)

// ChatEvent is the payload broadcast over Redis and the WebSocket feed.
type ChatEvent struct {
	Type    string             `json:"type"`
	UserID  string             `json:"userId"`
	Message models.ChatMessage `json:"message"`
}

func chatEventsChannel(userID string) string {
	return chatEventsChannelPrefix + userID
}

// RedisEventPublisher publishes chat events so every instance can fan them out.
type RedisEventPublisher struct {
	client *redis.Client
}

func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{client: client}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, event ChatEvent) error {
	if event.Type == "" {
		event.Type = EventTypeMessage
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, chatEventsChannel(event.UserID), data).Err()
}

// ChatConn is the minimal interface our WebSocket implementation must satisfy.
type ChatConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Client is one live WebSocket connection. Writes go through a buffered
// channel drained by WritePump, so a connection only ever has one writer.
type Client struct {
	UserID string
	conn   ChatConn
	send   chan ChatEvent
	done   chan struct{}
	once   sync.Once
}

// Send queues event without blocking; a full buffer drops it.
func (c *Client) Send(event ChatEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// WritePump writes queued events until ctx ends, the client is closed or a write fails.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case event := <-c.send:
			if err := c.conn.WriteJSON(event); err != nil {
				zap.L().Debug("chat_realtime: write failed", zap.String("user_id", c.UserID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub is the in-memory registry of WebSocket clients on this instance.
// A user may hold several connections (one per tab).
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(userID string, conn ChatConn) *Client {
	c := &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan ChatEvent, clientSendBuffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	return c
}

// Unregister removes c and closes its connection.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Connections reports how many clients userID has on this instance.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// FanOut delivers event to every local connection of its user.
func (h *Hub) FanOut(event ChatEvent) {
	if event.UserID == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[event.UserID] {
		if !c.Send(event) {
			zap.L().Debug("chat_realtime: dropped event for slow client", zap.String("user_id", c.UserID))
		}
	}
}

// Run subscribes to all chat event channels and fans events out locally until
// ctx is cancelled. Subscription errors are retried with capped backoff.
func (h *Hub) Run(ctx context.Context, client *redis.Client) error {
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return nil
		}

		err := h.subscribe(ctx, client, func() { backoff = time.Second })
		if ctx.Err() != nil {
			return nil
		}
		zap.L().Warn("chat_realtime: subscriber error", zap.Error(err), zap.Duration("retry_in", backoff))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (h *Hub) subscribe(ctx context.Context, client *redis.Client, onMessage func()) error {
	pubsub := client.PSubscribe(ctx, chatEventsPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	zap.L().Info("✅ Chat Redis subscriber started", zap.String("pattern", chatEventsPattern))

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		onMessage()

		var event ChatEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			zap.L().Warn("chat_realtime: bad event payload", zap.Error(err))
			continue
		}
		if event.UserID == "" {
			event.UserID = strings.TrimPrefix(msg.Channel, chatEventsChannelPrefix)
		}
		h.FanOut(event)
	}
}
