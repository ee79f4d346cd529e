package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FeedbackTracker submits at most one like/dislike per bot message.
//
// A submission first claims the message (pending, optimistic feedback).
// While claimed or once locked, further submissions are silent no-ops.
// The lock only becomes permanent when the backend acknowledges; a failed
// call releases the claim so the user can try again.
type FeedbackTracker struct {
	transcript *Transcript
	gateway    Gateway
	token      func() string
	log        *zap.SugaredLogger
}

// NewFeedbackTracker returns a tracker over transcript. token is consulted
// on every submission so it follows login/logout.
func NewFeedbackTracker(transcript *Transcript, gateway Gateway, token func() string, log *zap.SugaredLogger) *FeedbackTracker {
	if token == nil {
		token = func() string { return "" }
	}
	if log == nil {
		log = zap.S()
	}
	return &FeedbackTracker{
		transcript: transcript,
		gateway:    gateway,
		token:      token,
		log:        log,
	}
}

// Submit records feedback for messageID. It reports whether a network call
// was made; repeated calls on a pending or locked message return (false, nil).
func (f *FeedbackTracker) Submit(ctx context.Context, messageID string, positive bool) (bool, error) {
	if messageID == "" {
		return false, ErrUnknownMessage
	}

	want := feedbackFor(positive)
	found, claimed := f.transcript.update(messageID, func(m *Message) bool {
		if m.FeedbackLocked || m.FeedbackPending {
			return false
		}
		m.Feedback = want
		m.FeedbackPending = true
		return true
	})
	if !found {
		return false, fmt.Errorf("%w: %s", ErrUnknownMessage, messageID)
	}
	if !claimed {
		return false, nil
	}

	err := f.gateway.SubmitFeedback(ctx, messageID, positive, f.token())
	if err != nil {
		f.transcript.update(messageID, func(m *Message) bool {
			m.FeedbackPending = false
			m.Feedback = FeedbackUnset
			return true
		})
		f.log.Errorw("failed to submit feedback",
			"messageId", messageID,
			"error", err)
		return true, err
	}

	f.transcript.update(messageID, func(m *Message) bool {
		m.FeedbackPending = false
		m.FeedbackLocked = true
		return true
	})
	return true, nil
}
