package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/clinic-chat-api/api"
	"github.com/linesmerrill/clinic-chat-api/config"
	"github.com/linesmerrill/clinic-chat-api/models"
)

const testSecret = "test-secret"

var a App

func executeRequest(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, req)
	return rr
}

func checkResponseCode(t *testing.T, expected, actual int) {
	if expected != actual {
		t.Errorf("Expected response code %d. Got %d\n", expected, actual)
	}
}

func newTestApp(cfg config.Config) {
	cfg.JWTSecret = testSecret
	a = App{Config: cfg}
	a.Router = a.New()
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	m := &api.MiddlewareDB{Secret: []byte(testSecret)}
	token, err := m.SignToken(userID, userID+"@clinic.test", role, time.Now())
	require.NoError(t, err)
	return "Bearer " + token
}

func TestUnknownRoute(t *testing.T) {
	newTestApp(config.Config{})
	req, _ := http.NewRequest("GET", "/asdf", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusNotFound, response.Code)
}

func TestHealthCheckRoute(t *testing.T) {
	newTestApp(config.Config{})
	req, _ := http.NewRequest("GET", "/health", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusOK, response.Code)

	if !strings.Contains(response.Body.String(), "alive") {
		t.Errorf("Expected 'alive' in the reponse. Got '%s'", response.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	newTestApp(config.Config{})
	executeRequest(httptest.NewRequest("GET", "/health", nil))

	response := executeRequest(httptest.NewRequest("GET", "/metrics", nil))
	checkResponseCode(t, http.StatusOK, response.Code)
	assert.Contains(t, response.Body.String(), "clinicchat_websocket_connections")
}

func TestApp_ProtectedRoutesUnauthorized(t *testing.T) {
	newTestApp(config.Config{})
	routes := []struct {
		method string
		path   string
	}{
		{"GET", "/api/chat/history/1234"},
		{"GET", "/api/chat/user/1234/history"},
		{"POST", "/api/chat/upload"},
		{"POST", "/api/feedback"},
		{"GET", "/api/metrics/summary"},
		{"GET", "/ws/chat"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			response := executeRequest(httptest.NewRequest(rt.method, rt.path, nil))
			checkResponseCode(t, http.StatusUnauthorized, response.Code)
		})
	}
}

func TestApp_ForgedTokenUnauthorized(t *testing.T) {
	newTestApp(config.Config{})
	other := &api.MiddlewareDB{Secret: []byte("someone-else")}
	token, err := other.SignToken("u1", "u1@clinic.test", models.RolePatient, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/chat/user/u1/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	checkResponseCode(t, http.StatusUnauthorized, executeRequest(req).Code)
}

func TestApp_SendRequiresAuthWhenConfigured(t *testing.T) {
	newTestApp(config.Config{ChatRequireAuth: true})
	req := httptest.NewRequest("POST", "/api/chat/send", strings.NewReader(`{"message": "hi"}`))
	checkResponseCode(t, http.StatusUnauthorized, executeRequest(req).Code)
}

func TestApp_StaffOnlyMetrics(t *testing.T) {
	newTestApp(config.Config{})

	req := httptest.NewRequest("GET", "/api/metrics/summary", nil)
	req.Header.Set("Authorization", bearer(t, "u1", models.RolePatient))
	checkResponseCode(t, http.StatusForbidden, executeRequest(req).Code)

	req = httptest.NewRequest("GET", "/api/metrics/summary", nil)
	req.Header.Set("Authorization", bearer(t, "boss", models.RoleAdmin))
	response := executeRequest(req)
	assert.NotEqual(t, http.StatusForbidden, response.Code)
	assert.NotEqual(t, http.StatusUnauthorized, response.Code)
}

func TestApp_SendRateLimited(t *testing.T) {
	newTestApp(config.Config{SendRatePerMinute: 1, SendRateBurst: 1})

	// bad bodies are rejected after the limiter has counted them
	first := httptest.NewRequest("POST", "/api/chat/send", strings.NewReader(`{`))
	first.RemoteAddr = "10.0.0.1:1234"
	checkResponseCode(t, http.StatusBadRequest, executeRequest(first).Code)

	second := httptest.NewRequest("POST", "/api/chat/send", strings.NewReader(`{`))
	second.RemoteAddr = "10.0.0.1:1234"
	response := executeRequest(second)
	checkResponseCode(t, http.StatusTooManyRequests, response.Code)
	assert.NotEmpty(t, response.Header().Get("Retry-After"))
}

func TestQueryToken(t *testing.T) {
	var got string
	h := queryToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ws/chat?token=abc", nil))
	assert.Equal(t, "Bearer abc", got)

	req := httptest.NewRequest("GET", "/ws/chat?token=abc", nil)
	req.Header.Set("Authorization", "Bearer header")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "Bearer header", got)
}
