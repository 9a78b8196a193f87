package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/AnshRaj112/safeharbor-backend/internal/library"
	"github.com/AnshRaj112/safeharbor-backend/internal/models"
	"github.com/AnshRaj112/safeharbor-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const CheckInCollection = "checkins"

type band struct {
	max   int
	label string
}

var (
	gad7Bands = []band{
		{4, "minimal"},
		{9, "mild"},
		{14, "moderate"},
		{21, "severe"},
	}
	phq9Bands = []band{
		{4, "minimal"},
		{9, "mild"},
		{14, "moderate"},
		{19, "moderately severe"},
		{27, "severe"},
	}
)

func severity(score int, bands []band) string {
	for _, b := range bands {
		if score <= b.max {
			return b.label
		}
	}
	return bands[len(bands)-1].label
}

// ScoreCheckIn validates answers against the questionnaire and scores both
// scales. Every question must be answered on the 0..MaxAnswer scale.
func ScoreCheckIn(content *library.Content, answers map[string]int) (*models.CheckIn, error) {
	if len(answers) != len(content.Questions) {
		return nil, &utils.ValidationError{
			Field:   "answers",
			Message: fmt.Sprintf("All %d questions must be answered", len(content.Questions)),
		}
	}

	checkIn := &models.CheckIn{Answers: make(map[string]int, len(answers))}
	for _, q := range content.Questions {
		key := strconv.Itoa(q.ID)
		value, ok := answers[key]
		if !ok {
			return nil, &utils.ValidationError{Field: "answers", Message: "Missing answer for question " + key}
		}
		if value < 0 || value > content.MaxAnswer() {
			return nil, &utils.ValidationError{Field: "answers", Message: "Answer out of range for question " + key}
		}

		checkIn.Answers[key] = value
		switch q.Test {
		case library.TestGAD7:
			checkIn.GAD7Score += value
		case library.TestPHQ9:
			checkIn.PHQ9Score += value
		}
		if q.SelfHarm && value > 0 {
			checkIn.SelfHarmRisk = true
		}
	}

	checkIn.GAD7Severity = severity(checkIn.GAD7Score, gad7Bands)
	checkIn.PHQ9Severity = severity(checkIn.PHQ9Score, phq9Bands)
	return checkIn, nil
}

// CheckInService scores and stores wellness check-ins.
type CheckInService struct {
	col     *mongo.Collection
	content *library.Content
	safety  SafetyRecorder
	now     func() time.Time
}

func NewCheckInService(db *mongo.Database, content *library.Content, safety SafetyRecorder) *CheckInService {
	return &CheckInService{
		col:     db.Collection(CheckInCollection),
		content: content,
		safety:  safety,
		now:     time.Now,
	}
}

func (s *CheckInService) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
		Options: options.Index().SetName("idx_user_created"),
	})
	return err
}

func (s *CheckInService) Submit(ctx context.Context, userID string, answers map[string]int) (*models.CheckIn, error) {
	checkIn, err := ScoreCheckIn(s.content, answers)
	if err != nil {
		return nil, err
	}
	checkIn.ID = primitive.NewObjectID()
	checkIn.UserID = userID
	checkIn.CreatedAt = s.now().UTC()

	if _, err := s.col.InsertOne(ctx, checkIn); err != nil {
		return nil, err
	}

	if checkIn.SelfHarmRisk && s.safety != nil {
		event := models.SafetyEvent{UserID: userID, Source: "checkin", Matched: []string{"phq9-item9"}}
		if err := s.safety.Record(ctx, event); err != nil {
			zap.L().Error("checkin: failed to record safety event", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return checkIn, nil
}

func (s *CheckInService) List(ctx context.Context, userID string, limit int64) ([]models.CheckIn, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cur, err := s.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	checkIns := make([]models.CheckIn, 0)
	if err := cur.All(ctx, &checkIns); err != nil {
		return nil, err
	}
	return checkIns, nil
}
