package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/clinic-chat-api/api"
	"github.com/linesmerrill/clinic-chat-api/api/handlers"
	"github.com/linesmerrill/clinic-chat-api/models"
)

// hubServer serves the hub as the user named in ?as=
func hubServer(t *testing.T, hub *handlers.Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.URL.Query().Get("as"); id != "" {
			r = asUser(r, id, models.RolePatient)
		}
		hub.HandleChatWebSocket(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, as string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?as=" + as
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_PublishReachesEveryTab(t *testing.T) {
	metrics := api.NewMetrics()
	hub := handlers.NewHub(metrics)
	srv := hubServer(t, hub)

	first := dial(t, srv, "u1")
	second := dial(t, srv, "u1")
	other := dial(t, srv, "u2")
	require.Eventually(t, func() bool { return hub.Connections("u1") == 2 && hub.Connections("u2") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish("u1", models.ChatEvent{Event: handlers.EventChatReply, Data: map[string]string{"reply": "hello"}})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		var got struct {
			Event string            `json:"event"`
			Data  map[string]string `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, handlers.EventChatReply, got.Event)
		assert.Equal(t, "hello", got.Data["reply"])
	}

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "u2 must not see u1's events")
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := handlers.NewHub(nil)
	srv := hubServer(t, hub)

	conn := dial(t, srv, "u1")
	require.Eventually(t, func() bool { return hub.Connections("u1") == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Connections("u1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := handlers.NewHub(nil)
	srv := hubServer(t, hub)

	conn := dial(t, srv, "u1")
	require.Eventually(t, func() bool { return hub.Connections("u1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Connections("u1"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_RequiresUser(t *testing.T) {
	hub := handlers.NewHub(nil)
	srv := hubServer(t, hub)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_PublishWithoutUserIsIgnored(t *testing.T) {
	var hub *handlers.Hub
	assert.NotPanics(t, func() { hub.Publish("u1", models.ChatEvent{}) })

	hub = handlers.NewHub(nil)
	assert.NotPanics(t, func() { hub.Publish("", models.ChatEvent{Event: handlers.EventChatReply}) })
}
