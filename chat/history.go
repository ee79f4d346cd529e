package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DisplayLayout formats the timestamp shown in the history drawer
const DisplayLayout = "2006-01-02 15:04"

// HistoryEntry is one past session in the history drawer
type HistoryEntry struct {
	SessionID        string    `json:"sessionId"`
	DisplayTimestamp string    `json:"displayTimestamp"`
	StartedAt        time.Time `json:"startedAt"`
}

// NewHistoryEntry derives the display timestamp from the first message time
func NewHistoryEntry(sessionID string, firstMessageAt time.Time) HistoryEntry {
	return HistoryEntry{
		SessionID:        sessionID,
		DisplayTimestamp: firstMessageAt.Local().Format(DisplayLayout),
		StartedAt:        firstMessageAt,
	}
}

// HistoryIndex lazily fetches and caches the session list of the signed-in
// user. The fetched flag is keyed by user id, so switching identity always
// triggers a fresh load.
type HistoryIndex struct {
	gateway Gateway
	log     *zap.SugaredLogger

	mu      sync.RWMutex
	current string
	entries map[string][]HistoryEntry
}

// NewHistoryIndex returns an index backed by gateway
func NewHistoryIndex(gateway Gateway, log *zap.SugaredLogger) *HistoryIndex {
	if log == nil {
		log = zap.S()
	}
	return &HistoryIndex{
		gateway: gateway,
		log:     log,
		entries: make(map[string][]HistoryEntry),
	}
}

// Load returns the sessions of userID, calling the gateway only the first
// time a given user id is seen (or after Invalidate). On failure the
// previously loaded entries stay in place.
func (h *HistoryIndex) Load(ctx context.Context, userID, token string) ([]HistoryEntry, error) {
	h.mu.RLock()
	cached, ok := h.entries[userID]
	h.mu.RUnlock()
	if ok {
		h.setCurrent(userID)
		return copyEntries(cached), nil
	}

	fetched, err := h.gateway.FetchUserSessions(ctx, userID, token)
	if err != nil {
		h.log.Errorw("failed to load chat history",
			"userId", userID,
			"error", err)
		return nil, fmt.Errorf("%w: %w", ErrHistoryLoad, err)
	}

	h.mu.Lock()
	h.entries[userID] = copyEntries(fetched)
	h.current = userID
	h.mu.Unlock()
	return copyEntries(fetched), nil
}

// Invalidate drops the cached list of userID so the next Load refetches
func (h *HistoryIndex) Invalidate(userID string) {
	h.mu.Lock()
	delete(h.entries, userID)
	h.mu.Unlock()
}

// Reset forgets every cached list and the current user
func (h *HistoryIndex) Reset() {
	h.mu.Lock()
	h.entries = make(map[string][]HistoryEntry)
	h.current = ""
	h.mu.Unlock()
}

// Search filters the current user's loaded entries by a case-insensitive
// substring of their display timestamp. An empty term returns everything.
func (h *HistoryIndex) Search(term string) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return FilterEntries(h.entries[h.current], term)
}

// FilterEntries is the pure filter behind Search
func FilterEntries(entries []HistoryEntry, term string) []HistoryEntry {
	needle := strings.ToLower(term)
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.DisplayTimestamp), needle) {
			out = append(out, e)
		}
	}
	return out
}

func (h *HistoryIndex) setCurrent(userID string) {
	h.mu.Lock()
	h.current = userID
	h.mu.Unlock()
}

func copyEntries(in []HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, len(in))
	copy(out, in)
	return out
}
