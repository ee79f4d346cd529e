package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linesmerrill/clinic-chat-api/models"
)

// maxHistory bounds how many earlier messages are forwarded upstream
const maxHistory = 20

// ProxyResponder forwards prompts to an upstream chatbot over HTTP
type ProxyResponder struct {
	URL    string
	Client *http.Client
}

// NewProxyResponder posts to url with the given timeout
func NewProxyResponder(url string, timeout time.Duration) *ProxyResponder {
	return &ProxyResponder{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

type upstreamTurn struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type upstreamRequest struct {
	Message      string           `json:"message"`
	SessionID    string           `json:"sessionId"`
	UserID       string           `json:"userId,omitempty"`
	ImageURL     string           `json:"imageUrl,omitempty"`
	Locale       string           `json:"locale,omitempty"`
	UserLocation *models.GeoPoint `json:"userLocation,omitempty"`
	History      []upstreamTurn   `json:"history,omitempty"`
}

type upstreamResponse struct {
	Reply string `json:"reply"`
}

// Reply implements Responder
func (p *ProxyResponder) Reply(ctx context.Context, prompt Prompt) (string, error) {
	history := prompt.History
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	body := upstreamRequest{
		Message:      prompt.Message,
		SessionID:    prompt.SessionID,
		UserID:       prompt.UserID,
		ImageURL:     prompt.ImageURL,
		Locale:       prompt.Locale,
		UserLocation: prompt.Location,
	}
	for _, m := range history {
		body.History = append(body.History, upstreamTurn{Sender: m.Sender, Message: m.Body})
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal upstream request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upstream returned %d: %s", resp.StatusCode, snippet)
	}

	var out upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode upstream reply: %w", err)
	}
	if out.Reply == "" {
		return "", ErrEmptyReply
	}
	return out.Reply, nil
}
