package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

// Location is an optional geolocation attached to outgoing messages
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SendRequest is one outgoing chat message
type SendRequest struct {
	Body      string
	Token     string
	Location  *Location
	SessionID string
	Sequence  uint64
	ImageRef  string
}

// SendResponse is the backend's answer to a SendRequest
type SendResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"sessionId"`
	MessageID string `json:"messageId,omitempty"`
	Sequence  uint64 `json:"sequence,omitempty"`
}

// Gateway is the only network collaborator of the chat widget
type Gateway interface {
	Send(ctx context.Context, req SendRequest) (*SendResponse, error)
	FetchTranscript(ctx context.Context, sessionID, token string) ([]Message, error)
	FetchUserSessions(ctx context.Context, userID, token string) ([]HistoryEntry, error)
	SubmitFeedback(ctx context.Context, messageID string, positive bool, token string) error
}

// HTTPGateway talks to the clinic chat API over JSON
type HTTPGateway struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPGateway creates a gateway rooted at baseURL
func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithHTTPClient swaps the underlying http client
func (g *HTTPGateway) WithHTTPClient(c *http.Client) *HTTPGateway {
	g.httpClient = c
	return g
}

type sendBody struct {
	Message      string    `json:"message"`
	UserLocation *Location `json:"userLocation,omitempty"`
	SessionID    string    `json:"sessionId,omitempty"`
	Sequence     uint64    `json:"sequence,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
}

type wireMessage struct {
	MessageID string    `json:"messageId"`
	Sender    string    `json:"sender"`
	Body      string    `json:"message"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Feedback  *bool     `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type transcriptBody struct {
	Messages []wireMessage `json:"messages"`
}

type wireSession struct {
	SessionID      string    `json:"sessionId"`
	CreatedAt      time.Time `json:"createdAt"`
	FirstMessageAt time.Time `json:"firstMessageAt"`
}

type sessionsBody struct {
	ChatSessions []wireSession `json:"chatSessions"`
}

type feedbackBody struct {
	MessageID string `json:"messageId"`
	Feedback  bool   `json:"feedback"`
}

// Send posts a chat message and returns the reply
func (g *HTTPGateway) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	var out SendResponse
	err := g.do(ctx, http.MethodPost, "/api/chat/send", req.Token, sendBody{
		Message:      req.Body,
		UserLocation: req.Location,
		SessionID:    req.SessionID,
		Sequence:     req.Sequence,
		ImageURL:     req.ImageRef,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		return nil, fmt.Errorf("%w: reply carried no session id", ErrNetworkFailure)
	}
	return &out, nil
}

// FetchTranscript returns the stored messages of one session
func (g *HTTPGateway) FetchTranscript(ctx context.Context, sessionID, token string) ([]Message, error) {
	var out transcriptBody
	if err := g.do(ctx, http.MethodGet, "/api/chat/history/"+url.PathEscape(sessionID), token, nil, &out); err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(out.Messages))
	for _, wm := range out.Messages {
		msgs = append(msgs, wm.toMessage())
	}
	return msgs, nil
}

// FetchUserSessions returns the session list of a user
func (g *HTTPGateway) FetchUserSessions(ctx context.Context, userID, token string) ([]HistoryEntry, error) {
	var out sessionsBody
	if err := g.do(ctx, http.MethodGet, "/api/chat/user/"+url.PathEscape(userID)+"/history", token, nil, &out); err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(out.ChatSessions))
	for _, s := range out.ChatSessions {
		started := s.FirstMessageAt
		if started.IsZero() {
			started = s.CreatedAt
		}
		entries = append(entries, NewHistoryEntry(s.SessionID, started))
	}
	return entries, nil
}

// SubmitFeedback records a like or dislike on a bot message
func (g *HTTPGateway) SubmitFeedback(ctx context.Context, messageID string, positive bool, token string) error {
	return g.do(ctx, http.MethodPost, "/api/feedback", token, feedbackBody{MessageID: messageID, Feedback: positive}, nil)
}

// Token is what the backend hands out on sign in
type Token struct {
	Token  string `json:"token"`
	UserID string `json:"_id"`
	Role   string `json:"role"`
}

// Login exchanges an email and password for a bearer token
func (g *HTTPGateway) Login(ctx context.Context, email, password string) (*Token, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/auth/token", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrNetworkFailure, err)
	}
	httpReq.SetBasicAuth(email, password)

	var out Token
	if err := g.roundTrip(httpReq, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("%w: no token in response", ErrNetworkFailure)
	}
	return &out, nil
}

// UploadImage stores an image attachment and returns the reference to send
// with the next message
func (g *HTTPGateway) UploadImage(ctx context.Context, filename, contentType string, image io.Reader, token string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("%w: failed to build upload: %v", ErrNetworkFailure, err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return "", fmt.Errorf("%w: failed to read image: %v", ErrNetworkFailure, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: failed to build upload: %v", ErrNetworkFailure, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrNetworkFailure, err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	var out struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := g.roundTrip(httpReq, &out); err != nil {
		return "", err
	}
	return out.ImageURL, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: failed to marshal request: %v", ErrNetworkFailure, err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrNetworkFailure, err)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return g.roundTrip(httpReq, out)
}

func (g *HTTPGateway) roundTrip(httpReq *http.Request, out interface{}) error {
	method, path := httpReq.Method, httpReq.URL.Path
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrNetworkFailure, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrNetworkFailure, method, path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrNetworkFailure, err)
	}
	return nil
}

func (wm wireMessage) toMessage() Message {
	origin := OriginBot
	if wm.Sender == string(OriginUser) {
		origin = OriginUser
	}
	m := Message{
		ID:        wm.MessageID,
		Origin:    origin,
		Body:      wm.Body,
		IsMarkup:  LooksLikeMarkup(wm.Body),
		ImageRef:  wm.ImageURL,
		CreatedAt: wm.CreatedAt,
	}
	if wm.Feedback != nil {
		m.Feedback = feedbackFor(*wm.Feedback)
		m.FeedbackLocked = true
	}
	return m
}
