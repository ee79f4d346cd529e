package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Feedback holds the structure for the feedback collection in mongo
type Feedback struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	MessageID string             `json:"messageId" bson:"messageId"`
	SessionID string             `json:"sessionId" bson:"sessionId"`
	UserID    string             `json:"userId" bson:"userId"`
	Positive  bool               `json:"positive" bson:"positive"`
	// Excerpt is the bot reply the feedback was left on, copied for the staff digest
	Excerpt   string    `json:"excerpt" bson:"excerpt"`
	Digested  bool      `json:"digested" bson:"digested"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// FeedbackRequest holds the body of POST /api/feedback
type FeedbackRequest struct {
	MessageID string `json:"messageId"`
	Feedback  *bool  `json:"feedback"`
}

// FeedbackResponse acknowledges a feedback submission
type FeedbackResponse struct {
	Success         bool `json:"success"`
	AlreadyRecorded bool `json:"alreadyRecorded"`
}
