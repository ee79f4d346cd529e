// Package chatbot produces the assistant's replies. The reply logic itself
// lives upstream; this package proxies to it and falls back to canned clinic
// answers when it is unavailable.
package chatbot

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/linesmerrill/clinic-chat-api/models"
)

// ErrEmptyReply is returned when a responder has nothing to say
var ErrEmptyReply = errors.New("chatbot: empty reply")

// Prompt is everything a responder may use to answer one message
type Prompt struct {
	SessionID string
	UserID    string
	Message   string
	ImageURL  string
	Locale    string
	Location  *models.GeoPoint
	// History is the session so far, oldest first, excluding Message
	History []models.ChatMessage
}

// Responder answers a chat message
type Responder interface {
	Reply(ctx context.Context, p Prompt) (string, error)
}

// ResponderFunc adapts a function to a Responder
type ResponderFunc func(ctx context.Context, p Prompt) (string, error)

// Reply calls f
func (f ResponderFunc) Reply(ctx context.Context, p Prompt) (string, error) {
	return f(ctx, p)
}

// Chain asks Primary and falls back to Fallback when it fails
type Chain struct {
	Primary  Responder
	Fallback Responder
	// OnFallback is told why Primary was skipped
	OnFallback func(err error)
}

// Reply returns Primary's answer, or Fallback's if Primary errors or is unset
func (c Chain) Reply(ctx context.Context, p Prompt) (string, error) {
	if c.Primary != nil {
		reply, err := c.Primary.Reply(ctx, p)
		if err == nil && reply != "" {
			return reply, nil
		}
		if err == nil {
			err = ErrEmptyReply
		}
		// the caller gave up; a canned answer would go nowhere
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		zap.S().Warnw("chatbot upstream failed, using fallback",
			"sessionId", p.SessionID,
			"error", err)
		if c.OnFallback != nil {
			c.OnFallback(err)
		}
	}
	if c.Fallback == nil {
		return "", ErrEmptyReply
	}
	return c.Fallback.Reply(ctx, p)
}
