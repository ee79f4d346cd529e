package chat

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// mockGateway is a testify mock of Gateway
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*SendResponse)
	return resp, args.Error(1)
}

func (m *mockGateway) FetchTranscript(ctx context.Context, sessionID, token string) ([]Message, error) {
	args := m.Called(ctx, sessionID, token)
	msgs, _ := args.Get(0).([]Message)
	return msgs, args.Error(1)
}

func (m *mockGateway) FetchUserSessions(ctx context.Context, userID, token string) ([]HistoryEntry, error) {
	args := m.Called(ctx, userID, token)
	entries, _ := args.Get(0).([]HistoryEntry)
	return entries, args.Error(1)
}

func (m *mockGateway) SubmitFeedback(ctx context.Context, messageID string, positive bool, token string) error {
	args := m.Called(ctx, messageID, positive, token)
	return args.Error(0)
}

// funcGateway lets a test script Send by hand
type funcGateway struct {
	mockGateway
	mu    sync.Mutex
	calls int
	send  func(ctx context.Context, req SendRequest) (*SendResponse, error)
}

func (f *funcGateway) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.send(ctx, req)
}

func (f *funcGateway) sendCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func bodies(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body)
	}
	return out
}
