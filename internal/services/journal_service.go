package services

import (
	"context"
	"strings"
	"time"

	"github.com/AnshRaj112/safeharbor-backend/internal/models"
	"github.com/AnshRaj112/safeharbor-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	JournalCollection = "journals"
	maxJournalText    = 10000
)

type JournalInput struct {
	Kind     models.JournalKind
	Text     string
	Mood     string
	ImageURL string
}

// Validate normalizes in and reports the first invalid field.
func (in *JournalInput) Validate() error {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return &utils.ValidationError{Field: "text", Message: "Journal text is required"}
	}
	if len(in.Text) > maxJournalText {
		return &utils.ValidationError{Field: "text", Message: "Journal text is too long"}
	}

	switch models.JournalKind(strings.ToLower(string(in.Kind))) {
	case "", models.JournalKindMood:
		in.Kind = models.JournalKindMood
	case models.JournalKindCBT:
		in.Kind = models.JournalKindCBT
	default:
		return &utils.ValidationError{Field: "kind", Message: "Kind must be mood or cbt"}
	}

	in.Mood = utils.TrimToLength(in.Mood, 32)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.ImageURL != "" && !strings.HasPrefix(in.ImageURL, "https://") {
		return &utils.ValidationError{Field: "imageUrl", Message: "Image URL must use https"}
	}
	return nil
}

// JournalService stores the mood and CBT journals.
type JournalService struct {
	col *mongo.Collection
	now func() time.Time
}

func NewJournalService(db *mongo.Database) *JournalService {
	return &JournalService{col: db.Collection(JournalCollection), now: time.Now}
}

func (s *JournalService) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "kind", Value: 1},
			{Key: "createdAt", Value: -1},
		},
		Options: options.Index().SetName("idx_user_kind_created"),
	})
	return err
}

func (s *JournalService) Create(ctx context.Context, userID string, in JournalInput) (*models.JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	entry := &models.JournalEntry{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Kind:      in.Kind,
		Text:      in.Text,
		Mood:      in.Mood,
		ImageURL:  in.ImageURL,
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.col.InsertOne(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns a page of the user's entries, newest first, plus the total count.
// An empty kind lists both journals.
func (s *JournalService) List(ctx context.Context, userID string, kind models.JournalKind, limit, skip int64) ([]models.JournalEntry, int64, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = 20
	}
	if skip < 0 {
		skip = 0
	}

	filter := bson.M{"userId": userID}
	if kind != "" {
		filter["kind"] = kind
	}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(skip)

	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	entries := make([]models.JournalEntry, 0)
	if err := cur.All(ctx, &entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
