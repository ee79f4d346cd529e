package databases

// go generate: mockery --name ChatMessageDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/linesmerrill/clinic-chat-api/models"
)

const chatMessageName = "chatmessages"

// ChatMessageDatabase contains the methods to use with the chat message database
type ChatMessageDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.ChatMessage, error)
	FindBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	InsertOne(ctx context.Context, message models.ChatMessage) (InsertOneResultHelper, error)
	// SetFeedbackOnce stores feedback only on a bot message that has none yet.
	// It reports whether this call was the one that stored it.
	SetFeedbackOnce(ctx context.Context, messageID string, positive bool) (bool, error)
	DeleteMany(ctx context.Context, filter interface{}) (int64, error)
}

type chatMessageDatabase struct {
	db DatabaseHelper
}

// NewChatMessageDatabase initializes a new instance of chat message database with the provided db connection
func NewChatMessageDatabase(db DatabaseHelper) ChatMessageDatabase {
	return &chatMessageDatabase{
		db: db,
	}
}

func (c *chatMessageDatabase) FindOne(ctx context.Context, filter interface{}) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{}
	err := c.db.Collection(chatMessageName).FindOne(ctx, filter).Decode(&msg)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *chatMessageDatabase) FindBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	cur, err := c.db.Collection(chatMessageName).Find(ctx, bson.M{"sessionId": sessionID}, chronological())
	if err != nil {
		return nil, err
	}
	if err := cur.Decode(&messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *chatMessageDatabase) InsertOne(ctx context.Context, message models.ChatMessage) (InsertOneResultHelper, error) {
	return c.db.Collection(chatMessageName).InsertOne(ctx, message)
}

func (c *chatMessageDatabase) SetFeedbackOnce(ctx context.Context, messageID string, positive bool) (bool, error) {
	filter := bson.M{
		"messageId": messageID,
		"sender":    models.SenderBot,
		"feedback":  bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"feedback": positive, "feedbackAt": nowUTC()}}
	res, err := c.db.Collection(chatMessageName).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (c *chatMessageDatabase) DeleteMany(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(chatMessageName).DeleteMany(ctx, filter)
}
