package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AnshRaj112/safeharbor-backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	chatRecentKeyPrefix = "ai-chat:user:"
	chatRecentKeySuffix = ":recent"
	chatRecentMaxLen    = 50
	chatRecentTTL       = 1 * time.Hour
)

func chatRecentKey(userID, sessionID string) string {
	if sessionID == "" {
		return chatRecentKeyPrefix + userID + chatRecentKeySuffix
	}
	return chatRecentKeyPrefix + userID + ":session:" + sessionID + chatRecentKeySuffix
}

// RedisHistoryCache keeps each user's newest companion messages in a Redis
// list (newest at head) so the prompt history can skip Mongo.
//
// A list only exists once it has been warmed from Mongo; pushes use LPUSHX so
// an expired list is never rebuilt from a partial tail.
type RedisHistoryCache struct {
	client *redis.Client
}

func NewRedisHistoryCache(client *redis.Client) *RedisHistoryCache {
	return &RedisHistoryCache{client: client}
}

// Recent returns up to n cached messages, oldest-first. ok is false on a miss.
func (c *RedisHistoryCache) Recent(ctx context.Context, userID, sessionID string, n int) ([]models.ChatMessage, bool) {
	if c == nil || c.client == nil || n <= 0 {
		return nil, false
	}

	raw, err := c.client.LRange(ctx, chatRecentKey(userID, sessionID), 0, int64(n-1)).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	msgs := make([]models.ChatMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var m models.ChatMessage
		if err := json.Unmarshal([]byte(raw[i]), &m); err != nil {
			// A corrupt entry means the list can't be trusted.
			return nil, false
		}
		msgs = append(msgs, m)
	}
	return msgs, true
}

// warmScript fills a missing list in one step. An existing list is left
// alone: it is at least as fresh as the Mongo snapshot being warmed, since
// Push only ever extends a list that is already there.
var warmScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("RPUSH", KEYS[1], unpack(ARGV, 2))
redis.call("EXPIRE", KEYS[1], ARGV[1])
return 1
`)

// warmArgs encodes the script arguments: the TTL in seconds followed by at
// most chatRecentMaxLen messages, newest first.
func warmArgs(msgs []models.ChatMessage) []interface{} {
	args := []interface{}{int64(chatRecentTTL / time.Second)}
	for i := len(msgs) - 1; i >= 0 && len(args) <= chatRecentMaxLen; i-- {
		data, err := json.Marshal(msgs[i])
		if err != nil {
			continue
		}
		args = append(args, string(data))
	}
	return args
}

// Warm seeds the cached list with msgs (oldest-first) when no list exists.
// An empty history writes nothing and stays a miss.
func (c *RedisHistoryCache) Warm(ctx context.Context, userID, sessionID string, msgs []models.ChatMessage) {
	if c == nil || c.client == nil || len(msgs) == 0 {
		return
	}

	args := warmArgs(msgs)
	if len(args) < 2 {
		return
	}
	if err := warmScript.Run(ctx, c.client, []string{chatRecentKey(userID, sessionID)}, args...).Err(); err != nil {
		zap.L().Warn("chat_cache: warm failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// Push appends new messages (oldest-first) to an already warm list.
func (c *RedisHistoryCache) Push(ctx context.Context, userID, sessionID string, msgs ...models.ChatMessage) {
	if c == nil || c.client == nil || len(msgs) == 0 {
		return
	}

	keys := []string{chatRecentKey(userID, "")}
	if sessionID != "" {
		keys = append(keys, chatRecentKey(userID, sessionID))
	}

	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			continue
		}
		values = append(values, data)
	}

	pipe := c.client.Pipeline()
	for _, key := range keys {
		pipe.LPushX(ctx, key, values...)
		pipe.LTrim(ctx, key, 0, chatRecentMaxLen-1)
		pipe.Expire(ctx, key, chatRecentTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		zap.L().Warn("chat_cache: push failed", zap.String("user_id", userID), zap.Error(err))
	}
}
