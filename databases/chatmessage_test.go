package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/clinic-chat-api/databases"
	"github.com/linesmerrill/clinic-chat-api/databases/mocks"
	"github.com/linesmerrill/clinic-chat-api/models"
)

func TestChatMessageDatabase_FindBySession(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	cursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.ChatMessage)
		*arg = []models.ChatMessage{
			{MessageID: "a", Sender: models.SenderUser, Body: "hi"},
			{MessageID: "b", Sender: models.SenderBot, Body: "hello"},
		}
	})
	collectionHelper.On("Find", context.Background(), bson.M{"sessionId": "sess-1"}).Return(cursor, nil)
	dbHelper.On("Collection", "chatmessages").Return(collectionHelper)

	msgs, err := databases.NewChatMessageDatabase(dbHelper).FindBySession(context.Background(), "sess-1")
	assert.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, "b", msgs[1].MessageID)
}

func TestChatMessageDatabase_SetFeedbackOnce(t *testing.T) {
	tests := []struct {
		name      string
		result    *mongo.UpdateResult
		err       error
		wantFirst bool
		wantErr   bool
	}{
		{name: "first vote", result: &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, wantFirst: true},
		{name: "already voted", result: &mongo.UpdateResult{}, wantFirst: false},
		{name: "db down", err: errors.New("mocked-error"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbHelper := &mocks.DatabaseHelper{}
			collectionHelper := &mocks.CollectionHelper{}

			collectionHelper.On("UpdateOne", context.Background(), mock.MatchedBy(func(filter bson.M) bool {
				exists, ok := filter["feedback"].(bson.M)
				return ok && filter["messageId"] == "bot-1" &&
					filter["sender"] == models.SenderBot && exists["$exists"] == false
			}), mock.Anything).Return(tt.result, tt.err)
			dbHelper.On("Collection", "chatmessages").Return(collectionHelper)

			first, err := databases.NewChatMessageDatabase(dbHelper).SetFeedbackOnce(context.Background(), "bot-1", false)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantFirst, first)
		})
	}
}
