package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/linesmerrill/clinic-chat-api/api"
	"github.com/linesmerrill/clinic-chat-api/config"
	"github.com/linesmerrill/clinic-chat-api/databases"
	"github.com/linesmerrill/clinic-chat-api/models"
)

// excerptLength is how much of a rated reply is copied into the digest
const excerptLength = 280

// Feedback records likes and dislikes on bot replies
type Feedback struct {
	MessageDB  databases.ChatMessageDatabase
	SessionDB  databases.ChatSessionDatabase
	FeedbackDB databases.FeedbackDatabase
	Hub        Publisher
	Metrics    *api.Metrics
	Now        func() time.Time
}

// FeedbackHandler stores feedback at most once per message. Later
// submissions are acknowledged with alreadyRecorded and change nothing.
func (f Feedback) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := api.UserFromContext(r.Context())

	var req models.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if req.MessageID == "" || req.Feedback == nil {
		config.ErrorStatus("messageId and feedback are required", http.StatusBadRequest, w, errors.New("missing field"))
		return
	}
	positive := *req.Feedback

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	msg, err := f.MessageDB.FindOne(ctx, bson.M{"messageId": req.MessageID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("message not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get message", http.StatusInternalServerError, w, err)
		return
	}
	if msg.Sender != models.SenderBot {
		config.ErrorStatus("feedback is only accepted on assistant replies", http.StatusBadRequest, w, errors.New("not a bot message"))
		return
	}

	session, err := f.SessionDB.FindOne(ctx, bson.M{"sessionId": msg.SessionID})
	if err != nil {
		config.ErrorStatus("failed to get chat session", http.StatusInternalServerError, w, err)
		return
	}
	if session.UserID != "" && !canRead(user, session.UserID) {
		config.ErrorStatus("not allowed to rate this message", http.StatusForbidden, w, errors.New("forbidden"))
		return
	}

	stored, err := f.MessageDB.SetFeedbackOnce(ctx, req.MessageID, positive)
	if err != nil {
		config.ErrorStatus("failed to store feedback", http.StatusInternalServerError, w, err)
		return
	}
	f.Metrics.Feedback(positive, stored)

	if stored {
		userID := ""
		if user != nil {
			userID = user.ID()
		}
		record := models.Feedback{
			MessageID: req.MessageID,
			SessionID: msg.SessionID,
			UserID:    userID,
			Positive:  positive,
			Excerpt:   excerpt(msg.Body),
			CreatedAt: f.now(),
		}
		// the message itself already carries the vote; the record only feeds the digest
		if _, err := f.FeedbackDB.InsertOne(ctx, record); err != nil {
			zap.S().Errorw("failed to store feedback record", "messageId", req.MessageID, "error", err)
		}
		if f.Hub != nil {
			f.Hub.Publish(userID, models.ChatEvent{Event: EventFeedbackRecorded, Data: map[string]interface{}{
				"messageId": req.MessageID,
				"feedback":  positive,
			}})
		}
	}

	api.WriteJSON(w, http.StatusOK, models.FeedbackResponse{Success: true, AlreadyRecorded: !stored})
}

func (f Feedback) now() time.Time {
	if f.Now != nil {
		return f.Now().UTC()
	}
	return time.Now().UTC()
}

func excerpt(body string) string {
	r := []rune(body)
	if len(r) <= excerptLength {
		return body
	}
	return string(r[:excerptLength]) + "…"
}
