package chat

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Origin identifies who authored a message
type Origin string

// Origins a message can have
const (
	OriginUser Origin = "user"
	OriginBot  Origin = "bot"
)

// Feedback is the tri-state sentiment a user left on a bot message
type Feedback int

// Feedback states
const (
	FeedbackUnset Feedback = iota
	FeedbackPositive
	FeedbackNegative
)

func (f Feedback) String() string {
	switch f {
	case FeedbackPositive:
		return "positive"
	case FeedbackNegative:
		return "negative"
	default:
		return "unset"
	}
}

// feedbackFor maps the like/dislike boolean onto a Feedback value
func feedbackFor(positive bool) Feedback {
	if positive {
		return FeedbackPositive
	}
	return FeedbackNegative
}

var markupPattern = regexp.MustCompile(`(?i)</?[a-z][a-z0-9]*(\s[^<>]*)?/?>`)

// Message is a single entry in a transcript
type Message struct {
	ID       string    `json:"id"`
	Origin   Origin    `json:"origin"`
	Body     string    `json:"body"`
	IsMarkup bool      `json:"isMarkup"`
	ImageRef string    `json:"imageRef,omitempty"`
	Feedback Feedback  `json:"feedback"`
	// FeedbackLocked is set once the backend acknowledged a submission
	FeedbackLocked bool `json:"feedbackLocked"`
	// FeedbackPending is set while a submission is in flight
	FeedbackPending bool      `json:"feedbackPending"`
	CreatedAt       time.Time `json:"createdAt"`
}

// NewUserMessage creates a message typed by the user with a fresh id
func NewUserMessage(body, imageRef string) Message {
	return Message{
		ID:        uuid.New().String(),
		Origin:    OriginUser,
		Body:      body,
		IsMarkup:  LooksLikeMarkup(body),
		ImageRef:  imageRef,
		CreatedAt: time.Now(),
	}
}

// NewBotMessage creates a bot reply, keeping the server supplied id when there is one
func NewBotMessage(id, body string) Message {
	if id == "" {
		id = uuid.New().String()
	}
	return Message{
		ID:        id,
		Origin:    OriginBot,
		Body:      body,
		IsMarkup:  LooksLikeMarkup(body),
		CreatedAt: time.Now(),
	}
}

// LooksLikeMarkup reports whether body contains something shaped like an HTML tag
func LooksLikeMarkup(body string) bool {
	return markupPattern.MatchString(body)
}
