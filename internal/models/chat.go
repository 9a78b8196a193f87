package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sender identifies which side of the companion conversation wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage is one side of an exchange with the AI companion, stored in the
// ai-chats collection. Messages are append-only.
type ChatMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"userId"`
	Sender    Sender             `bson:"sender" json:"sender"`
	Text      string             `bson:"text" json:"text"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Mood      string             `bson:"mood,omitempty" json:"mood,omitempty"`
	SessionID string             `bson:"sessionId,omitempty" json:"sessionId,omitempty"`
	Flagged   bool               `bson:"flagged,omitempty" json:"flagged,omitempty"`
}

// ChatSession groups companion messages under a user-visible title.
type ChatSession struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        string             `bson:"userId" json:"userId"`
	Title         string             `bson:"title" json:"title"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	LastMessageAt time.Time          `bson:"lastMessageAt" json:"lastMessageAt"`
	MessageCount  int                `bson:"messageCount" json:"messageCount"`
}
