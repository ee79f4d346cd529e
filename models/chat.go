package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message senders
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// ChatSession holds the structure for the chatsessions collection in mongo
type ChatSession struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	SessionID string             `json:"sessionId" bson:"sessionId"`
	UserID    string             `json:"userId,omitempty" bson:"userId,omitempty"`
	Anonymous bool               `json:"anonymous" bson:"anonymous"`
	// FirstMessageAt drives the timestamp shown in the history drawer
	FirstMessageAt time.Time `json:"firstMessageAt" bson:"firstMessageAt"`
	LastLocation   *GeoPoint `json:"lastLocation,omitempty" bson:"lastLocation,omitempty"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ChatMessage holds the structure for the chatmessages collection in mongo
type ChatMessage struct {
	ID        primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	MessageID string             `json:"messageId" bson:"messageId"`
	SessionID string             `json:"sessionId" bson:"sessionId"`
	Sender    string             `json:"sender" bson:"sender"` // "user" or "bot"
	Body      string             `json:"message" bson:"message"`
	ImageURL  string             `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Sequence  uint64             `json:"sequence,omitempty" bson:"sequence,omitempty"`
	// Feedback is nil until the user likes or dislikes a bot message
	Feedback   *bool      `json:"feedback,omitempty" bson:"feedback,omitempty"`
	FeedbackAt *time.Time `json:"feedbackAt,omitempty" bson:"feedbackAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt" bson:"createdAt"`
}

// GeoPoint is the optional browser geolocation sent with a chat message
type GeoPoint struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Valid reports whether the point is a real coordinate
func (g GeoPoint) Valid() bool {
	return g.Lat >= -90 && g.Lat <= 90 && g.Lng >= -180 && g.Lng <= 180
}

// SendChatRequest holds the body of POST /api/chat/send
type SendChatRequest struct {
	Message      string    `json:"message"`
	UserLocation *GeoPoint `json:"userLocation,omitempty"`
	SessionID    string    `json:"sessionId,omitempty"`
	Sequence     uint64    `json:"sequence,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
}

// SendChatResponse holds the reply to POST /api/chat/send
type SendChatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"sessionId"`
	MessageID string `json:"messageId"`
	Sequence  uint64 `json:"sequence,omitempty"`
}

// TranscriptResponse holds the reply to GET /api/chat/history/{sessionId}
type TranscriptResponse struct {
	Messages []ChatMessage `json:"messages"`
}

// SessionSummary is one entry of a user's session list
type SessionSummary struct {
	SessionID      string    `json:"sessionId"`
	CreatedAt      time.Time `json:"createdAt"`
	FirstMessageAt time.Time `json:"firstMessageAt"`
}

// UserHistoryResponse holds the reply to GET /api/chat/user/{userId}/history
type UserHistoryResponse struct {
	ChatSessions []SessionSummary `json:"chatSessions"`
}

// UploadResponse holds the reply to POST /api/chat/upload
type UploadResponse struct {
	ImageURL string `json:"imageUrl"`
}

// ChatEvent is pushed to a user's websocket connections
type ChatEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}
