package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGateway_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat/send", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hi", body["message"])
		assert.Equal(t, "sess-1", body["sessionId"])
		loc := body["userLocation"].(map[string]interface{})
		assert.Equal(t, 36.8, loc["lat"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reply": "Hello", "sessionId": "sess-1", "messageId": "m-9", "sequence": 4}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL + "/")
	resp, err := gw.Send(context.Background(), SendRequest{
		Body:      "Hi",
		Token:     "tok",
		Location:  &Location{Lat: 36.8, Lng: 10.1},
		SessionID: "sess-1",
		Sequence:  4,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", resp.Reply)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, "m-9", resp.MessageID)
	assert.Equal(t, uint64(4), resp.Sequence)
}

func TestHTTPGateway_SendOmitsAnonymousFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "sessionId")
		assert.NotContains(t, body, "userLocation")
		_, _ = w.Write([]byte(`{"reply": "Hello", "sessionId": "new"}`))
	}))
	defer srv.Close()

	resp, err := NewHTTPGateway(srv.URL).Send(context.Background(), SendRequest{Body: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, "new", resp.SessionID)
}

func TestHTTPGateway_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error": "unauthorized"}`, wantErr: ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, body: `{}`, wantErr: ErrUnauthorized},
		{name: "server error", status: http.StatusInternalServerError, body: `{"response": "boom"}`, wantErr: ErrNetworkFailure},
		{name: "bad json", status: http.StatusOK, body: `{"reply":`, wantErr: ErrNetworkFailure},
		{name: "missing session", status: http.StatusOK, body: `{"reply": "x"}`, wantErr: ErrNetworkFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPGateway(srv.URL).Send(context.Background(), SendRequest{Body: "Hi"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHTTPGateway_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPGateway(url).Send(context.Background(), SendRequest{Body: "Hi"})
	assert.ErrorIs(t, err, ErrNetworkFailure)
}

func TestHTTPGateway_FetchTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/history/sess-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"messages": [
			{"messageId": "a", "sender": "user", "message": "Need a refill", "createdAt": "2024-03-05T09:30:00Z"},
			{"messageId": "b", "sender": "bot", "message": "<p>Sure</p>", "feedback": true, "createdAt": "2024-03-05T09:30:02Z"}
		]}`))
	}))
	defer srv.Close()

	msgs, err := NewHTTPGateway(srv.URL).FetchTranscript(context.Background(), "sess-1", "tok")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, OriginUser, msgs[0].Origin)
	assert.False(t, msgs[0].IsMarkup)
	assert.Equal(t, OriginBot, msgs[1].Origin)
	assert.True(t, msgs[1].IsMarkup)
	assert.Equal(t, FeedbackPositive, msgs[1].Feedback)
	assert.True(t, msgs[1].FeedbackLocked)
}

func TestHTTPGateway_FetchUserSessions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/user/u1/history", r.URL.Path)
		_, _ = w.Write([]byte(`{"chatSessions": [
			{"sessionId": "s2", "createdAt": "2024-03-06T10:00:00Z", "firstMessageAt": "2024-03-06T10:01:00Z"},
			{"sessionId": "s1", "createdAt": "2024-03-05T09:30:00Z"}
		]}`))
	}))
	defer srv.Close()

	entries, err := NewHTTPGateway(srv.URL).FetchUserSessions(context.Background(), "u1", "tok")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "s2", entries[0].SessionID)
	assert.True(t, entries[0].StartedAt.Equal(time.Date(2024, 3, 6, 10, 1, 0, 0, time.UTC)))
	assert.True(t, entries[1].StartedAt.Equal(time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)))
	assert.NotEmpty(t, entries[1].DisplayTimestamp)
}

func TestHTTPGateway_SubmitFeedback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/feedback", r.URL.Path)
		var body feedbackBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "m1", body.MessageID)
		assert.False(t, body.Feedback)
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewHTTPGateway(srv.URL).SubmitFeedback(context.Background(), "m1", false, "tok"))
}

func TestHTTPGateway_Login(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/token", r.URL.Path)
		email, password, ok := r.BasicAuth()
		if !ok || email != "pat@clinic.test" || password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"token": "jwt", "_id": "u1", "role": "patient"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL)
	tok, err := gw.Login(context.Background(), "pat@clinic.test", "secret")
	require.NoError(t, err)
	assert.Equal(t, &Token{Token: "jwt", UserID: "u1", Role: "patient"}, tok)

	_, err = gw.Login(context.Background(), "pat@clinic.test", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestHTTPGateway_UploadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/upload", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "rash.jpg", header.Filename)
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"imageUrl": "https://img.test/rash.jpg"}`))
	}))
	defer srv.Close()

	ref, err := NewHTTPGateway(srv.URL).UploadImage(context.Background(), "rash.jpg", "image/jpeg", strings.NewReader("jpeg"), "tok")
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/rash.jpg", ref)
}
