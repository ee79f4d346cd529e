package databases

// go generate: mockery --name ChatSessionDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/linesmerrill/clinic-chat-api/models"
)

const chatSessionName = "chatsessions"

// DefaultHistoryLimit caps how many sessions the history drawer lists
const DefaultHistoryLimit = 50

// ChatSessionDatabase contains the methods to use with the chat session database
type ChatSessionDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.ChatSession, error)
	FindByUser(ctx context.Context, userID string, limit, page int) ([]models.ChatSession, error)
	Find(ctx context.Context, filter interface{}) ([]models.ChatSession, error)
	InsertOne(ctx context.Context, session models.ChatSession) (InsertOneResultHelper, error)
	// UpdateOne returns how many sessions matched filter
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error)
	DeleteMany(ctx context.Context, filter interface{}) (int64, error)
}

type chatSessionDatabase struct {
	db DatabaseHelper
}

// NewChatSessionDatabase initializes a new instance of chat session database with the provided db connection
func NewChatSessionDatabase(db DatabaseHelper) ChatSessionDatabase {
	return &chatSessionDatabase{
		db: db,
	}
}

func (c *chatSessionDatabase) FindOne(ctx context.Context, filter interface{}) (*models.ChatSession, error) {
	session := &models.ChatSession{}
	err := c.db.Collection(chatSessionName).FindOne(ctx, filter).Decode(&session)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (c *chatSessionDatabase) FindByUser(ctx context.Context, userID string, limit, page int) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	cur, err := c.db.Collection(chatSessionName).Find(ctx, bson.M{"userId": userID}, newestFirst(limit, page))
	if err != nil {
		return nil, err
	}
	if err := cur.Decode(&sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *chatSessionDatabase) Find(ctx context.Context, filter interface{}) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	cur, err := c.db.Collection(chatSessionName).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := cur.Decode(&sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *chatSessionDatabase) InsertOne(ctx context.Context, session models.ChatSession) (InsertOneResultHelper, error) {
	return c.db.Collection(chatSessionName).InsertOne(ctx, session)
}

func (c *chatSessionDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error) {
	res, err := c.db.Collection(chatSessionName).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (c *chatSessionDatabase) DeleteMany(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(chatSessionName).DeleteMany(ctx, filter)
}
