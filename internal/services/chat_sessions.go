package services

import (
	"context"
	"time"

	"github.com/AnshRaj112/safeharbor-backend/internal/models"
	"github.com/AnshRaj112/safeharbor-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SessionCollection   = "chat-sessions"
	DefaultSessionTitle = "New Chat"
	maxSessionTitle     = 100
)

// SessionService manages the chat sessions a student groups messages into.
type SessionService struct {
	col *mongo.Collection
	now func() time.Time
}

func NewSessionService(db *mongo.Database) *SessionService {
	return &SessionService{col: db.Collection(SessionCollection), now: time.Now}
}

func (s *SessionService) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "lastMessageAt", Value: -1},
		},
		Options: options.Index().SetName("idx_user_last_message"),
	})
	return err
}

func (s *SessionService) Create(ctx context.Context, userID, title string) (*models.ChatSession, error) {
	title = trimTitle(title)
	if title == "" {
		title = DefaultSessionTitle
	}

	now := s.now().UTC()
	session := &models.ChatSession{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		Title:         title,
		CreatedAt:     now,
		LastMessageAt: now,
	}
	if _, err := s.col.InsertOne(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// List returns the user's sessions, most recently active first.
func (s *SessionService) List(ctx context.Context, userID string, limit int64) ([]models.ChatSession, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "lastMessageAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cur, err := s.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	sessions := make([]models.ChatSession, 0)
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Touch records added messages on a session owned by userID.
func (s *SessionService) Touch(ctx context.Context, userID, sessionID string, added int, at time.Time) error {
	id, err := objectIDFromHex(sessionID)
	if err != nil {
		return err
	}
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{
			"$inc": bson.M{"messageCount": added},
			"$max": bson.M{"lastMessageAt": at.UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func objectIDFromHex(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return id, nil
}

func trimTitle(title string) string {
	return utils.TrimToLength(title, maxSessionTitle)
}
