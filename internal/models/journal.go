package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JournalKind distinguishes the daily mood journal from the CBT thought journal.
type JournalKind string

const (
	JournalKindMood JournalKind = "mood"
	JournalKindCBT  JournalKind = "cbt"
)

// JournalEntry represents a private journaling entry for a user
type JournalEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"-"`
	Kind      JournalKind        `bson:"kind" json:"kind"`
	Text      string             `bson:"text" json:"text"`
	Mood      string             `bson:"mood,omitempty" json:"mood,omitempty"`
	ImageURL  string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
