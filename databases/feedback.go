package databases

// go generate: mockery --name FeedbackDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/clinic-chat-api/models"
)

const feedbackName = "feedback"

// FeedbackDatabase contains the methods to use with the feedback database
type FeedbackDatabase interface {
	InsertOne(ctx context.Context, feedback models.Feedback) (InsertOneResultHelper, error)
	FindUndigestedNegative(ctx context.Context, limit int) ([]models.Feedback, error)
	MarkDigested(ctx context.Context, messageIDs []string) (int64, error)
}

type feedbackDatabase struct {
	db DatabaseHelper
}

// NewFeedbackDatabase initializes a new instance of feedback database with the provided db connection
func NewFeedbackDatabase(db DatabaseHelper) FeedbackDatabase {
	return &feedbackDatabase{
		db: db,
	}
}

func (f *feedbackDatabase) InsertOne(ctx context.Context, feedback models.Feedback) (InsertOneResultHelper, error) {
	return f.db.Collection(feedbackName).InsertOne(ctx, feedback)
}

func (f *feedbackDatabase) FindUndigestedNegative(ctx context.Context, limit int) ([]models.Feedback, error) {
	var out []models.Feedback
	opts := newMongoPaginate(limit, 1).getPaginatedOpts().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := f.db.Collection(feedbackName).Find(ctx, bson.M{"positive": false, "digested": false}, opts)
	if err != nil {
		return nil, err
	}
	if err := cur.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *feedbackDatabase) MarkDigested(ctx context.Context, messageIDs []string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	res, err := f.db.Collection(feedbackName).UpdateMany(ctx,
		bson.M{"messageId": bson.M{"$in": messageIDs}},
		bson.M{"$set": bson.M{"digested": true}},
		options.Update())
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
