// Package chat implements the client side of the clinic assistant chat: the
// live transcript, session persistence and reconciliation, the history
// drawer and per-message feedback, all talking to the backend through a
// Gateway.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Options configures a Widget
type Options struct {
	Gateway Gateway
	// Store defaults to an in-memory store
	Store         SessionStore
	Locator       LocationProvider
	LocateTimeout time.Duration
	Locale        string
	Logger        *zap.SugaredLogger
}

// Widget is the chat controller. It owns the transcript for its lifetime;
// Close cancels every request still in flight.
type Widget struct {
	gateway       Gateway
	store         SessionStore
	locator       LocationProvider
	locateTimeout time.Duration
	catalog       Catalog
	log           *zap.SugaredLogger

	transcript *Transcript
	history    *HistoryIndex
	feedback   *FeedbackTracker

	life context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu         sync.Mutex
	userID     string
	token      string
	viewing    string
	generation uint64
	// resetAt is the generation NewConversation started; older replies
	// must not bring their session back
	resetAt    uint64
	nextSeq    uint64
	nextFlush  uint64
	pending    map[uint64]outcome
}

// outcome is a finished send waiting for its turn to be flushed
type outcome struct {
	msg        *Message
	sessionID  string
	generation uint64
}

// NewWidget builds a widget from opts
func NewWidget(opts Options) *Widget {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.LocateTimeout <= 0 {
		opts.LocateTimeout = DefaultLocateTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.S()
	}

	life, stop := context.WithCancel(context.Background())
	w := &Widget{
		gateway:       opts.Gateway,
		store:         opts.Store,
		locator:       opts.Locator,
		locateTimeout: opts.LocateTimeout,
		catalog:       CatalogFor(opts.Locale),
		log:           opts.Logger,
		transcript:    NewTranscript(),
		life:          life,
		stop:          stop,
		pending:       make(map[uint64]outcome),
	}
	w.history = NewHistoryIndex(opts.Gateway, opts.Logger)
	w.feedback = NewFeedbackTracker(w.transcript, opts.Gateway, w.currentToken, opts.Logger)
	return w
}

// Send trims text and, when anything is left, appends it to the transcript
// and asks the backend for a reply. Whitespace-only input is ignored.
// Gateway failures never escape: they become a bot message in the transcript.
func (w *Widget) Send(ctx context.Context, text, imageRef string) error {
	body := strings.TrimSpace(text)
	if body == "" {
		return nil
	}
	if w.life.Err() != nil {
		return ErrClosed
	}
	w.wg.Add(1)
	defer w.wg.Done()

	ctx, cancel := w.bind(ctx)
	defer cancel()

	w.mu.Lock()
	w.transcript.Append(NewUserMessage(body, imageRef))
	seq := w.nextSeq
	w.nextSeq++
	gen := w.generation
	token := w.token
	sessionID := w.viewing
	w.mu.Unlock()

	if sessionID == "" {
		var err error
		sessionID, err = w.store.Get(ctx)
		if err != nil {
			w.log.Warnw("failed to read persisted session id",
				"error", err)
			sessionID = ""
		}
	}

	resp, err := w.gateway.Send(ctx, SendRequest{
		Body:      body,
		Token:     token,
		Location:  locate(ctx, w.locator, w.locateTimeout),
		SessionID: sessionID,
		Sequence:  seq,
		ImageRef:  imageRef,
	})

	if w.life.Err() != nil {
		w.deliver(seq, outcome{})
		return ErrClosed
	}

	switch {
	case err == nil:
		reply := NewBotMessage(resp.MessageID, resp.Reply)
		w.deliver(seq, outcome{msg: &reply, sessionID: resp.SessionID, generation: gen})
	case errors.Is(err, ErrUnauthorized):
		w.log.Infow("chat send rejected, sign in required",
			"sequence", seq)
		notice := NewBotMessage("", w.catalog.SignInRequired)
		w.deliver(seq, outcome{msg: &notice, generation: gen})
	default:
		w.log.Errorw("failed to send chat message",
			"sequence", seq,
			"error", err)
		notice := NewBotMessage("", w.catalog.SomethingWrong)
		w.deliver(seq, outcome{msg: &notice, generation: gen})
	}
	return nil
}

// deliver parks o under seq and flushes every consecutive outcome starting
// at the next expected sequence, so replies land in send order
func (w *Widget) deliver(seq uint64, o outcome) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[seq] = o
	for {
		next, ok := w.pending[w.nextFlush]
		if !ok {
			return
		}
		delete(w.pending, w.nextFlush)
		w.nextFlush++

		if w.life.Err() != nil {
			continue
		}
		if next.sessionID != "" && next.generation >= w.resetAt {
			w.reconcile(next.sessionID)
		}
		if next.msg != nil && next.generation == w.generation {
			w.transcript.Append(*next.msg)
		}
	}
}

// reconcile is the only place the persisted session id changes. Callers hold w.mu.
func (w *Widget) reconcile(sessionID string) {
	ctx := context.Background()
	current, err := w.store.Get(ctx)
	if err != nil {
		w.log.Warnw("failed to read persisted session id",
			"error", err)
	}
	if current != sessionID {
		if err := w.store.Set(ctx, sessionID); err != nil {
			w.log.Errorw("failed to persist session id",
				"sessionId", sessionID,
				"error", err)
		}
	}
	// a reply for the viewed historical session makes it the live one
	if w.viewing == sessionID {
		w.viewing = ""
	}
}

// OpenHistory loads the session list of the signed-in user
func (w *Widget) OpenHistory(ctx context.Context) ([]HistoryEntry, error) {
	w.mu.Lock()
	userID, token := w.userID, w.token
	w.mu.Unlock()
	if userID == "" {
		return nil, ErrUnauthorized
	}

	ctx, cancel := w.bind(ctx)
	defer cancel()
	return w.history.Load(ctx, userID, token)
}

// SearchHistory filters the loaded session list by display timestamp
func (w *Widget) SearchHistory(term string) []HistoryEntry {
	return w.history.Search(term)
}

// OpenSession replaces the transcript with the stored messages of sessionID.
// On failure the current transcript is left as it was.
func (w *Widget) OpenSession(ctx context.Context, sessionID string) error {
	w.mu.Lock()
	token := w.token
	w.mu.Unlock()

	ctx, cancel := w.bind(ctx)
	defer cancel()

	msgs, err := w.gateway.FetchTranscript(ctx, sessionID, token)
	if err != nil {
		w.log.Errorw("failed to load chat transcript",
			"sessionId", sessionID,
			"error", err)
		return errors.Join(ErrHistoryLoad, err)
	}
	if w.life.Err() != nil {
		return ErrClosed
	}

	live, _ := w.store.Get(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.generation++
	w.transcript.ReplaceAll(msgs)
	if sessionID == live {
		w.viewing = ""
	} else {
		w.viewing = sessionID
	}
	return nil
}

// NewConversation clears the transcript and forgets the live session so the
// next message starts a fresh one
func (w *Widget) NewConversation(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.store.Clear(ctx); err != nil {
		return err
	}
	w.generation++
	w.resetAt = w.generation
	w.viewing = ""
	w.transcript.ReplaceAll(nil)
	return nil
}

// SubmitFeedback likes or dislikes a bot message at most once
func (w *Widget) SubmitFeedback(ctx context.Context, messageID string, positive bool) error {
	ctx, cancel := w.bind(ctx)
	defer cancel()
	_, err := w.feedback.Submit(ctx, messageID, positive)
	return err
}

// SetIdentity records the signed-in user; pass empty strings on logout
func (w *Widget) SetIdentity(userID, token string) {
	w.mu.Lock()
	previous := w.userID
	w.userID = userID
	w.token = token
	w.mu.Unlock()

	if previous != "" && previous != userID {
		w.history.Invalidate(previous)
	}
}

// Messages returns a snapshot of the transcript
func (w *Widget) Messages() []Message {
	return w.transcript.Messages()
}

// Transcript exposes the underlying transcript
func (w *Widget) Transcript() *Transcript {
	return w.transcript
}

// SessionID returns the persisted live session id
func (w *Widget) SessionID(ctx context.Context) (string, error) {
	return w.store.Get(ctx)
}

// Viewing returns the historical session on screen, or "" for the live one
func (w *Widget) Viewing() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewing
}

// Close cancels in-flight requests and waits for their sends to unwind.
// Replies arriving afterwards are dropped.
func (w *Widget) Close() {
	w.stop()
	w.wg.Wait()
}

func (w *Widget) currentToken() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.token
}

// bind derives a context that is cancelled by either ctx or the widget's lifetime
func (w *Widget) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	release := context.AfterFunc(w.life, cancel)
	return ctx, func() {
		release()
		cancel()
	}
}
