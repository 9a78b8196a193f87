package services

import (
	"context"
	"time"

	"github.com/AnshRaj112/safeharbor-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChatCollection stores both sides of every companion exchange.
const ChatCollection = "ai-chats"

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// MessageCursor marks a position in a user's history. Both messages of an
// exchange share a timestamp, so ID breaks the tie; a zero ID means "strictly
// before Timestamp".
type MessageCursor struct {
	Timestamp time.Time
	ID        primitive.ObjectID
}

// CursorAfter returns the cursor that pages past the oldest message of msgs.
func CursorAfter(msgs []models.ChatMessage) *MessageCursor {
	if len(msgs) == 0 {
		return nil
	}
	oldest := msgs[0]
	return &MessageCursor{Timestamp: oldest.Timestamp, ID: oldest.ID}
}

// MongoChatStore persists companion messages in the ai-chats collection.
type MongoChatStore struct {
	col *mongo.Collection
}

func NewMongoChatStore(db *mongo.Database) *MongoChatStore {
	return &MongoChatStore{col: db.Collection(ChatCollection)}
}

// EnsureIndexes configures indexes for the ai-chats collection.
// Called from the migrate command and on serve startup.
func (s *MongoChatStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_user_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "sessionId", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_user_session_timestamp"),
		},
	})
	return err
}

// InsertMessage writes msg. The id is assigned client side so that two
// messages written in sequence sort in that order even with equal timestamps.
func (s *MongoChatStore) InsertMessage(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	_, err := s.col.InsertOne(ctx, msg)
	return err
}

// RecentMessages returns the user's last n messages in chronological order.
// Messages sharing a timestamp keep their insertion order via _id.
func (s *MongoChatStore) RecentMessages(ctx context.Context, userID, sessionID string, n int) ([]models.ChatMessage, error) {
	if n <= 0 {
		return nil, nil
	}
	msgs, _, err := s.find(ctx, chatFilter(userID, sessionID, nil), int64(n))
	return msgs, err
}

// ListMessages returns a page of history older than before (newest page when nil),
// oldest-first, and whether older messages exist.
func (s *MongoChatStore) ListMessages(ctx context.Context, userID, sessionID string, before *MessageCursor, limit int64) ([]models.ChatMessage, bool, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.find(ctx, chatFilter(userID, sessionID, before), limit)
}

func (s *MongoChatStore) find(ctx context.Context, filter bson.M, limit int64) ([]models.ChatMessage, bool, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	msgs := make([]models.ChatMessage, 0, limit)
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(msgs)) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	reverseMessages(msgs)
	return msgs, hasMore, nil
}

// chatFilter matches the user's messages, optionally within one session and
// strictly older than before in (timestamp, _id) order.
func chatFilter(userID, sessionID string, before *MessageCursor) bson.M {
	filter := bson.M{"userId": userID}
	if sessionID != "" {
		filter["sessionId"] = sessionID
	}
	if before == nil {
		return filter
	}
	ts := before.Timestamp.UTC()
	if before.ID.IsZero() {
		filter["timestamp"] = bson.M{"$lt": ts}
		return filter
	}
	filter["$or"] = bson.A{
		bson.M{"timestamp": bson.M{"$lt": ts}},
		bson.M{"timestamp": ts, "_id": bson.M{"$lt": before.ID}},
	}
	return filter
}

// reverseMessages flips newest-first into oldest-first for the UI and the prompt.
func reverseMessages(msgs []models.ChatMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
