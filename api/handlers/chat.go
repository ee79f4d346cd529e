package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shaj13/go-guardian/auth"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/linesmerrill/clinic-chat-api/api"
	"github.com/linesmerrill/clinic-chat-api/chatbot"
	"github.com/linesmerrill/clinic-chat-api/config"
	"github.com/linesmerrill/clinic-chat-api/databases"
	"github.com/linesmerrill/clinic-chat-api/models"
)

// maxMessageLength bounds a single chat message
const maxMessageLength = 4000

// Chat exposes the chat session endpoints
type Chat struct {
	SessionDB databases.ChatSessionDatabase
	MessageDB databases.ChatMessageDatabase
	Responder chatbot.Responder
	Hub       Publisher
	Metrics   *api.Metrics
	// RequireAuth rejects anonymous sends
	RequireAuth bool
	Now         func() time.Time
}

func (c Chat) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// SendHandler stores a user message, asks the chatbot and returns its reply.
// A missing or unknown session id starts a new session; the reply carries the
// id the client should use from then on.
func (c Chat) SendHandler(w http.ResponseWriter, r *http.Request) {
	user, signedIn := api.UserFromContext(r.Context())
	if c.RequireAuth && !signedIn {
		c.Metrics.ChatSend(api.OutcomeRejected)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "unauthorized"}`))
		return
	}

	var req models.SendChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.Metrics.ChatSend(api.OutcomeRejected)
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" && req.ImageURL == "" {
		c.Metrics.ChatSend(api.OutcomeRejected)
		config.ErrorStatus("message is required", http.StatusBadRequest, w, errors.New("empty message"))
		return
	}
	if len(req.Message) > maxMessageLength {
		c.Metrics.ChatSend(api.OutcomeRejected)
		config.ErrorStatus("message is too long", http.StatusBadRequest, w, errors.New("message exceeds limit"))
		return
	}
	if req.UserLocation != nil && !req.UserLocation.Valid() {
		req.UserLocation = nil
	}

	userID := ""
	if signedIn {
		userID = user.ID()
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	session, status, err := c.resolveSession(r, req, userID)
	if err != nil {
		c.Metrics.ChatSend(api.OutcomeFailed)
		config.ErrorStatus("failed to resolve chat session", status, w, err)
		return
	}

	history, err := c.MessageDB.FindBySession(ctx, session.SessionID)
	if err != nil {
		zap.S().Warnw("failed to load session history", "sessionId", session.SessionID, "error", err)
	}

	userAt := c.now()
	userMsg := models.ChatMessage{
		MessageID: uuid.New().String(),
		SessionID: session.SessionID,
		Sender:    models.SenderUser,
		Body:      req.Message,
		ImageURL:  req.ImageURL,
		Sequence:  req.Sequence,
		CreatedAt: userAt,
	}
	if _, err := c.MessageDB.InsertOne(ctx, userMsg); err != nil {
		c.Metrics.ChatSend(api.OutcomeFailed)
		config.ErrorStatus("failed to store message", http.StatusInternalServerError, w, err)
		return
	}

	reply, err := c.Responder.Reply(r.Context(), chatbot.Prompt{
		SessionID: session.SessionID,
		UserID:    userID,
		Message:   req.Message,
		ImageURL:  req.ImageURL,
		Locale:    r.Header.Get("Accept-Language"),
		Location:  req.UserLocation,
		History:   history,
	})
	if err != nil {
		c.Metrics.ChatSend(api.OutcomeFailed)
		config.ErrorStatus("failed to get a reply", http.StatusBadGateway, w, err)
		return
	}

	botAt := c.now()
	if !botAt.After(userAt) {
		botAt = userAt.Add(time.Millisecond)
	}
	botMsg := models.ChatMessage{
		MessageID: uuid.New().String(),
		SessionID: session.SessionID,
		Sender:    models.SenderBot,
		Body:      reply,
		Sequence:  req.Sequence,
		CreatedAt: botAt,
	}
	if _, err := c.MessageDB.InsertOne(ctx, botMsg); err != nil {
		c.Metrics.ChatSend(api.OutcomeFailed)
		config.ErrorStatus("failed to store reply", http.StatusInternalServerError, w, err)
		return
	}

	update := bson.M{"updatedAt": botAt}
	if req.UserLocation != nil {
		update["lastLocation"] = req.UserLocation
	}
	if _, err := c.SessionDB.UpdateOne(ctx, bson.M{"sessionId": session.SessionID}, bson.M{"$set": update}); err != nil {
		zap.S().Warnw("failed to touch chat session", "sessionId", session.SessionID, "error", err)
	}

	resp := models.SendChatResponse{
		Reply:     reply,
		SessionID: session.SessionID,
		MessageID: botMsg.MessageID,
		Sequence:  req.Sequence,
	}
	c.Metrics.ChatSend(api.OutcomeReplied)
	if c.Hub != nil {
		c.Hub.Publish(userID, models.ChatEvent{Event: EventChatReply, Data: resp})
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

// resolveSession finds the session a send belongs to, creating one when the
// client has none or names one that no longer exists. Anonymous sessions are
// claimed by the first signed-in user that writes to them.
func (c Chat) resolveSession(r *http.Request, req models.SendChatRequest, userID string) (*models.ChatSession, int, error) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if req.SessionID != "" {
		session, err := c.SessionDB.FindOne(ctx, bson.M{"sessionId": req.SessionID})
		switch {
		case err == nil:
			if session.UserID != "" && session.UserID != userID {
				return nil, http.StatusForbidden, errors.New("session belongs to another user")
			}
			if session.UserID == "" && userID != "" {
				matched, err := c.SessionDB.UpdateOne(ctx, bson.M{"sessionId": session.SessionID, "userId": bson.M{"$exists": false}},
					bson.M{"$set": bson.M{"userId": userID, "anonymous": false}})
				if err != nil {
					return nil, http.StatusInternalServerError, err
				}
				if matched == 0 {
					return nil, http.StatusForbidden, errors.New("session was claimed by another user")
				}
				session.UserID = userID
				session.Anonymous = false
			}
			return session, http.StatusOK, nil
		case errors.Is(err, mongo.ErrNoDocuments):
			zap.S().Infow("unknown chat session, starting a new one", "sessionId", req.SessionID)
		default:
			return nil, http.StatusInternalServerError, err
		}
	}

	now := c.now()
	session := &models.ChatSession{
		SessionID:      uuid.New().String(),
		UserID:         userID,
		Anonymous:      userID == "",
		FirstMessageAt: now,
		LastLocation:   req.UserLocation,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := c.SessionDB.InsertOne(ctx, *session); err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return session, http.StatusOK, nil
}

// SessionHistoryHandler returns one session's transcript, oldest first
func (c Chat) SessionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	user, _ := api.UserFromContext(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	session, err := c.SessionDB.FindOne(ctx, bson.M{"sessionId": sessionID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("chat session not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get chat session", http.StatusInternalServerError, w, err)
		return
	}
	if !canRead(user, session.UserID) {
		config.ErrorStatus("not allowed to read this session", http.StatusForbidden, w, errors.New("forbidden"))
		return
	}

	messages, err := c.MessageDB.FindBySession(ctx, sessionID)
	if err != nil {
		config.ErrorStatus("failed to get chat messages", http.StatusInternalServerError, w, err)
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	api.WriteJSON(w, http.StatusOK, models.TranscriptResponse{Messages: messages})
}

// UserHistoryHandler lists a user's sessions, newest first
func (c Chat) UserHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	user, _ := api.UserFromContext(r.Context())
	if !canRead(user, userID) {
		config.ErrorStatus("not allowed to read this history", http.StatusForbidden, w, errors.New("forbidden"))
		return
	}

	limit := queryInt(r, "limit", databases.DefaultHistoryLimit)
	if limit > 100 {
		limit = 100
	}
	page := queryInt(r, "page", 1)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sessions, err := c.SessionDB.FindByUser(ctx, userID, limit, page)
	if err != nil {
		config.ErrorStatus("failed to get chat history", http.StatusInternalServerError, w, err)
		return
	}

	out := models.UserHistoryResponse{ChatSessions: make([]models.SessionSummary, 0, len(sessions))}
	for _, s := range sessions {
		out.ChatSessions = append(out.ChatSessions, models.SessionSummary{
			SessionID:      s.SessionID,
			CreatedAt:      s.CreatedAt,
			FirstMessageAt: s.FirstMessageAt,
		})
	}
	api.WriteJSON(w, http.StatusOK, out)
}

// canRead lets owners read their own data and staff read anything
func canRead(user auth.Info, ownerID string) bool {
	if user == nil {
		return false
	}
	if ownerID != "" && user.ID() == ownerID {
		return true
	}
	return api.HasRole(user, models.RoleAdmin, models.RoleSuperAdmin)
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
