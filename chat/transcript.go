package chat

import "sync"

// Transcript is the ordered list of messages shown for the active session
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

// NewTranscript returns an empty transcript
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds msg to the end of the transcript
func (t *Transcript) Append(msg Message) {
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
}

// ReplaceAll swaps the whole transcript for msgs in one step
func (t *Transcript) ReplaceAll(msgs []Message) {
	next := make([]Message, len(msgs))
	copy(next, msgs)

	t.mu.Lock()
	t.messages = next
	t.mu.Unlock()
}

// Messages returns a copy of the transcript in order
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Get returns the message with the given id
func (t *Transcript) Get(id string) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.indexOf(id); i >= 0 {
		return t.messages[i], true
	}
	return Message{}, false
}

// update applies fn to the message with the given id while holding the write
// lock. fn returns false to leave the message untouched. The result reports
// whether the id was found and whether fn applied its change.
func (t *Transcript) update(id string, fn func(m *Message) bool) (found, applied bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(id)
	if i < 0 {
		return false, false
	}
	m := t.messages[i]
	if !fn(&m) {
		return true, false
	}
	t.messages[i] = m
	return true, true
}

func (t *Transcript) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].ID == id {
			return i
		}
	}
	return -1
}
