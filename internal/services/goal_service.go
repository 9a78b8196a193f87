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
	GoalCollection = "goals"
	maxGoalTitle   = 200
)

// GoalService backs the goal planner. Every query is scoped to the owner, so
// another user's goal id behaves like a missing one.
type GoalService struct {
	col *mongo.Collection
	now func() time.Time
}

func NewGoalService(db *mongo.Database) *GoalService {
	return &GoalService{col: db.Collection(GoalCollection), now: time.Now}
}

func (s *GoalService) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
		Options: options.Index().SetName("idx_user_created"),
	})
	return err
}

func (s *GoalService) Create(ctx context.Context, userID, title string) (*models.Goal, error) {
	title = utils.TrimToLength(title, maxGoalTitle)
	if title == "" {
		return nil, &utils.ValidationError{Field: "title", Message: "Goal title is required"}
	}

	now := s.now().UTC()
	goal := &models.Goal{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Status:    models.GoalStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.col.InsertOne(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

func (s *GoalService) List(ctx context.Context, userID string) ([]models.Goal, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	goals := make([]models.Goal, 0)
	if err := cur.All(ctx, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

func (s *GoalService) UpdateStatus(ctx context.Context, userID, goalID, status string) (*models.Goal, error) {
	if status != models.GoalStatusActive && status != models.GoalStatusCompleted {
		return nil, &utils.ValidationError{Field: "status", Message: "Status must be active or completed"}
	}
	id, err := objectIDFromHex(goalID)
	if err != nil {
		return nil, err
	}

	var goal models.Goal
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M{"status": status, "updatedAt": s.now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&goal)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func (s *GoalService) Delete(ctx context.Context, userID, goalID string) error {
	id, err := objectIDFromHex(goalID)
	if err != nil {
		return err
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
