package chat

import "errors"

var (
	// ErrInputRejected is returned for messages that are empty after trimming.
	// The widget swallows it; it never reaches the transcript.
	ErrInputRejected = errors.New("message is empty")
	// ErrUnauthorized means the backend wants the caller to sign in
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNetworkFailure covers every other transport, status or decode failure
	ErrNetworkFailure = errors.New("network failure")
	// ErrHistoryLoad wraps failures fetching the session list or a transcript
	ErrHistoryLoad = errors.New("failed to load chat history")
	// ErrUnknownMessage is returned when feedback targets a message not in the transcript
	ErrUnknownMessage = errors.New("unknown message")
	// ErrClosed is returned by operations on a widget after Close
	ErrClosed = errors.New("chat widget closed")
)
