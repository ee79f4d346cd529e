package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shaj13/go-guardian/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/clinic-chat-api/api"
	"github.com/linesmerrill/clinic-chat-api/api/handlers"
	"github.com/linesmerrill/clinic-chat-api/chatbot"
	"github.com/linesmerrill/clinic-chat-api/databases/mocks"
	"github.com/linesmerrill/clinic-chat-api/models"
)

var fixedNow = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]models.ChatEvent
}

func (p *recordingPublisher) Publish(userID string, event models.ChatEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[string][]models.ChatEvent)
	}
	p.events[userID] = append(p.events[userID], event)
}

func asUser(req *http.Request, id, role string) *http.Request {
	user := auth.NewDefaultUser(id+"@clinic.test", id, []string{role}, nil)
	return req.WithContext(api.WithUser(req.Context(), user))
}

func echoResponder(prefix string) chatbot.Responder {
	return chatbot.ResponderFunc(func(ctx context.Context, p chatbot.Prompt) (string, error) {
		return prefix + p.Message, nil
	})
}

type chatFixture struct {
	sessions *mocks.ChatSessionDatabase
	messages *mocks.ChatMessageDatabase
	hub      *recordingPublisher
	chat     handlers.Chat
}

func newChatFixture(responder chatbot.Responder) *chatFixture {
	f := &chatFixture{
		sessions: &mocks.ChatSessionDatabase{},
		messages: &mocks.ChatMessageDatabase{},
		hub:      &recordingPublisher{},
	}
	f.chat = handlers.Chat{
		SessionDB: f.sessions,
		MessageDB: f.messages,
		Responder: responder,
		Hub:       f.hub,
		Now:       func() time.Time { return fixedNow },
	}
	return f
}

func (f *chatFixture) send(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.chat.SendHandler).ServeHTTP(rr, req)
	return rr
}

func sendRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/chat/send", strings.NewReader(body))
}

func TestChat_SendStartsAnonymousSession(t *testing.T) {
	f := newChatFixture(echoResponder("echo: "))

	var created models.ChatSession
	f.sessions.On("InsertOne", mock.Anything, mock.AnythingOfType("models.ChatSession")).Return(nil, nil).Run(func(args mock.Arguments) {
		created = args.Get(1).(models.ChatSession)
	})
	f.sessions.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	f.messages.On("FindBySession", mock.Anything, mock.Anything).Return(nil, nil)

	var stored []models.ChatMessage
	f.messages.On("InsertOne", mock.Anything, mock.AnythingOfType("models.ChatMessage")).Return(nil, nil).Run(func(args mock.Arguments) {
		stored = append(stored, args.Get(1).(models.ChatMessage))
	})

	rr := f.send(sendRequest(`{"message": "  When are you open?  ", "sequence": 3, "userLocation": {"lat": 36.8, "lng": 10.1}}`))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp models.SendChatResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "echo: When are you open?", resp.Reply)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, created.SessionID, resp.SessionID)
	assert.Equal(t, uint64(3), resp.Sequence)

	assert.True(t, created.Anonymous)
	assert.Empty(t, created.UserID)
	assert.Equal(t, fixedNow, created.FirstMessageAt)
	require.NotNil(t, created.LastLocation)

	require.Len(t, stored, 2)
	assert.Equal(t, models.SenderUser, stored[0].Sender)
	assert.Equal(t, "When are you open?", stored[0].Body)
	assert.Equal(t, models.SenderBot, stored[1].Sender)
	assert.Equal(t, resp.MessageID, stored[1].MessageID)
	assert.True(t, stored[1].CreatedAt.After(stored[0].CreatedAt), "reply sorts after the question")

	assert.Empty(t, f.hub.events, "anonymous senders have no socket to notify")
}

func TestChat_SendContinuesOwnedSession(t *testing.T) {
	f := newChatFixture(echoResponder(""))
	f.sessions.On("FindOne", mock.Anything, bson.M{"sessionId": "sess-1"}).Return(&models.ChatSession{SessionID: "sess-1", UserID: "u1"}, nil)
	f.sessions.On("UpdateOne", mock.Anything, bson.M{"sessionId": "sess-1"}, mock.Anything).Return(int64(1), nil)
	f.messages.On("FindBySession", mock.Anything, "sess-1").Return([]models.ChatMessage{{Body: "earlier"}}, nil)
	f.messages.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	rr := f.send(asUser(sendRequest(`{"message": "hello", "sessionId": "sess-1"}`), "u1", models.RolePatient))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp models.SendChatResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "sess-1", resp.SessionID)
	f.sessions.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)

	require.Len(t, f.hub.events["u1"], 1)
	assert.Equal(t, handlers.EventChatReply, f.hub.events["u1"][0].Event)
}

func TestChat_SendClaimsAnonymousSession(t *testing.T) {
	f := newChatFixture(echoResponder(""))
	f.sessions.On("FindOne", mock.Anything, bson.M{"sessionId": "anon"}).Return(&models.ChatSession{SessionID: "anon", Anonymous: true}, nil)
	f.sessions.On("UpdateOne", mock.Anything,
		bson.M{"sessionId": "anon", "userId": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"userId": "u1", "anonymous": false}},
	).Return(int64(1), nil).Once()
	f.sessions.On("UpdateOne", mock.Anything, bson.M{"sessionId": "anon"}, mock.Anything).Return(int64(1), nil)
	f.messages.On("FindBySession", mock.Anything, "anon").Return(nil, nil)
	f.messages.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	rr := f.send(asUser(sendRequest(`{"message": "hello", "sessionId": "anon"}`), "u1", models.RolePatient))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	f.sessions.AssertExpectations(t)
}

func TestChat_SendLosesClaimRace(t *testing.T) {
	f := newChatFixture(echoResponder(""))
	f.sessions.On("FindOne", mock.Anything, bson.M{"sessionId": "anon"}).Return(&models.ChatSession{SessionID: "anon", Anonymous: true}, nil)
	f.sessions.On("UpdateOne", mock.Anything,
		bson.M{"sessionId": "anon", "userId": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"userId": "u2", "anonymous": false}},
	).Return(int64(0), nil).Once()

	rr := f.send(asUser(sendRequest(`{"message": "hello", "sessionId": "anon"}`), "u2", models.RolePatient))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	f.messages.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestChat_SendUnknownSessionStartsNewOne(t *testing.T) {
	f := newChatFixture(echoResponder(""))
	f.sessions.On("FindOne", mock.Anything, bson.M{"sessionId": "gone"}).Return(nil, mongo.ErrNoDocuments)
	f.sessions.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	f.sessions.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	f.messages.On("FindBySession", mock.Anything, mock.Anything).Return(nil, nil)
	f.messages.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	rr := f.send(sendRequest(`{"message": "hello", "sessionId": "gone"}`))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.SendChatResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEqual(t, "gone", resp.SessionID)
	assert.NotEmpty(t, resp.SessionID)
}

func TestChat_SendRejections(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		user        string
		requireAuth bool
		want        int
	}{
		{name: "bad json", body: `{"message":`, want: http.StatusBadRequest},
		{name: "blank message", body: `{"message": "   "}`, want: http.StatusBadRequest},
		{name: "too long", body: `{"message": "` + strings.Repeat("a", 4001) + `"}`, want: http.StatusBadRequest},
		{name: "anonymous when auth required", body: `{"message": "hi"}`, requireAuth: true, want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(echoResponder(""))
			f.chat.RequireAuth = tt.requireAuth
			rr := f.send(sendRequest(tt.body))
			assert.Equal(t, tt.want, rr.Code)
			f.messages.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
		})
	}
}

func TestChat_SendForeignSessionForbidden(t *testing.T) {
	f := newChatFixture(echoResponder(""))
	f.sessions.On("FindOne", mock.Anything, bson.M{"sessionId": "theirs"}).Return(&models.ChatSession{SessionID: "theirs", UserID: "u2"}, nil)

	rr := f.send(asUser(sendRequest(`{"message": "hi", "sessionId": "theirs"}`), "u1", models.RolePatient))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.send(sendRequest(`{"message": "hi", "sessionId": "theirs"}`))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestChat_SendResponderFailure(t *testing.T) {
	f := newChatFixture(chatbot.ResponderFunc(func(ctx context.Context, p chatbot.Prompt) (string, error) {
		return "", errors.New("upstream down")
	}))
	f.sessions.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	f.messages.On("FindBySession", mock.Anything, mock.Anything).Return(nil, nil)
	f.messages.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	rr := f.send(sendRequest(`{"message": "hi"}`))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	f.messages.AssertNumberOfCalls(t, "InsertOne", 1)
}

func historyRequest(sessionID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/chat/history/"+sessionID, nil)
	return mux.SetURLVars(req, map[string]string{"sessionId": sessionID})
}

func TestChat_SessionHistory(t *testing.T) {
	f := newChatFixture(nil)
	f.sessions.On("FindOne", mock.Anything, bson.M{"sessionId": "sess-1"}).Return(&models.ChatSession{SessionID: "sess-1", UserID: "u1"}, nil)
	f.sessions.On("FindOne", mock.Anything, bson.M{"sessionId": "missing"}).Return(nil, mongo.ErrNoDocuments)
	f.messages.On("FindBySession", mock.Anything, "sess-1").Return([]models.ChatMessage{
		{MessageID: "a", Sender: models.SenderUser, Body: "hi"},
		{MessageID: "b", Sender: models.SenderBot, Body: "<p>hello</p>"},
	}, nil)

	tests := []struct {
		name    string
		session string
		user    string
		role    string
		want    int
	}{
		{name: "owner", session: "sess-1", user: "u1", role: models.RolePatient, want: http.StatusOK},
		{name: "staff", session: "sess-1", user: "admin", role: models.RoleAdmin, want: http.StatusOK},
		{name: "someone else", session: "sess-1", user: "u2", role: models.RolePatient, want: http.StatusForbidden},
		{name: "missing", session: "missing", user: "u1", role: models.RolePatient, want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			http.HandlerFunc(f.chat.SessionHistoryHandler).ServeHTTP(rr, asUser(historyRequest(tt.session), tt.user, tt.role))
			require.Equal(t, tt.want, rr.Code, rr.Body.String())
			if tt.want != http.StatusOK {
				return
			}
			var resp models.TranscriptResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			require.Len(t, resp.Messages, 2)
			assert.Equal(t, "b", resp.Messages[1].MessageID)
		})
	}
}

func TestChat_UserHistory(t *testing.T) {
	f := newChatFixture(nil)
	f.sessions.On("FindByUser", mock.Anything, "u1", 10, 2).Return([]models.ChatSession{
		{SessionID: "new", FirstMessageAt: fixedNow},
		{SessionID: "old", FirstMessageAt: fixedNow.Add(-time.Hour)},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/user/u1/history?limit=10&page=2", nil)
	req = mux.SetURLVars(req, map[string]string{"userId": "u1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.chat.UserHistoryHandler).ServeHTTP(rr, asUser(req, "u1", models.RolePatient))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp models.UserHistoryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.ChatSessions, 2)
	assert.Equal(t, "new", resp.ChatSessions[0].SessionID)

	rr = httptest.NewRecorder()
	http.HandlerFunc(f.chat.UserHistoryHandler).ServeHTTP(rr, asUser(req, "u2", models.RolePatient))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
