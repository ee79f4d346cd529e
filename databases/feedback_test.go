package databases_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/clinic-chat-api/databases"
	"github.com/linesmerrill/clinic-chat-api/databases/mocks"
	"github.com/linesmerrill/clinic-chat-api/models"
)

func TestFeedbackDatabase_FindUndigestedNegative(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	cursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.Feedback)
		*arg = []models.Feedback{{MessageID: "m1", Excerpt: "wrong hours"}}
	})
	collectionHelper.On("Find", context.Background(), bson.M{"positive": false, "digested": false}).Return(cursor, nil)
	dbHelper.On("Collection", "feedback").Return(collectionHelper)

	out, err := databases.NewFeedbackDatabase(dbHelper).FindUndigestedNegative(context.Background(), 100)
	assert.NoError(t, err)
	assert.Equal(t, []models.Feedback{{MessageID: "m1", Excerpt: "wrong hours"}}, out)
}

func TestFeedbackDatabase_MarkDigested(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("UpdateMany", context.Background(),
		bson.M{"messageId": bson.M{"$in": []string{"m1", "m2"}}},
		bson.M{"$set": bson.M{"digested": true}},
	).Return(&mongo.UpdateResult{ModifiedCount: 2}, nil)
	dbHelper.On("Collection", "feedback").Return(collectionHelper)

	feedbackDB := databases.NewFeedbackDatabase(dbHelper)

	n, err := feedbackDB.MarkDigested(context.Background(), []string{"m1", "m2"})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = feedbackDB.MarkDigested(context.Background(), nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
	collectionHelper.AssertNumberOfCalls(t, "UpdateMany", 1)
}
