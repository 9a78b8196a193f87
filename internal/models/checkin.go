package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckIn is a scored GAD-7 + PHQ-9 wellness questionnaire.
// Answers maps question id to a 0..3 frequency score.
type CheckIn struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       string             `bson:"userId" json:"-"`
	Answers      map[string]int     `bson:"answers" json:"answers"`
	GAD7Score    int                `bson:"gad7Score" json:"gad7Score"`
	GAD7Severity string             `bson:"gad7Severity" json:"gad7Severity"`
	PHQ9Score    int                `bson:"phq9Score" json:"phq9Score"`
	PHQ9Severity string             `bson:"phq9Severity" json:"phq9Severity"`
	SelfHarmRisk bool               `bson:"selfHarmRisk" json:"selfHarmRisk"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
