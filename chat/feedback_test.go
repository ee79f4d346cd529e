package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func transcriptWithBotMessage(id string) *Transcript {
	tr := NewTranscript()
	tr.Append(NewUserMessage("question", ""))
	tr.Append(NewBotMessage(id, "answer"))
	return tr
}

func TestFeedbackTracker_SubmitsAtMostOnce(t *testing.T) {
	sequences := [][]bool{
		{true, true},
		{true, false},
		{true, false, true, false},
		{false, true, true},
	}

	for _, seq := range sequences {
		tr := transcriptWithBotMessage("bot-1")
		gw := &mockGateway{}
		gw.On("SubmitFeedback", mock.Anything, "bot-1", seq[0], "tok").Return(nil).Once()
		f := NewFeedbackTracker(tr, gw, func() string { return "tok" }, nil)

		for i, positive := range seq {
			called, err := f.Submit(context.Background(), "bot-1", positive)
			require.NoError(t, err)
			assert.Equal(t, i == 0, called)
		}

		m, ok := tr.Get("bot-1")
		require.True(t, ok)
		assert.Equal(t, feedbackFor(seq[0]), m.Feedback)
		assert.True(t, m.FeedbackLocked)
		assert.False(t, m.FeedbackPending)
		gw.AssertNumberOfCalls(t, "SubmitFeedback", 1)
	}
}

func TestFeedbackTracker_PendingBlocksDoubleClick(t *testing.T) {
	tr := transcriptWithBotMessage("bot-1")
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &mockGateway{}
	gw.On("SubmitFeedback", mock.Anything, "bot-1", true, "").Return(nil).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Once()
	f := NewFeedbackTracker(tr, gw, nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.Submit(context.Background(), "bot-1", true)
	}()
	<-entered

	m, _ := tr.Get("bot-1")
	assert.True(t, m.FeedbackPending)
	assert.False(t, m.FeedbackLocked)
	assert.Equal(t, FeedbackPositive, m.Feedback)

	called, err := f.Submit(context.Background(), "bot-1", false)
	assert.NoError(t, err)
	assert.False(t, called)

	close(release)
	<-done
	m, _ = tr.Get("bot-1")
	assert.True(t, m.FeedbackLocked)
	gw.AssertNumberOfCalls(t, "SubmitFeedback", 1)
}

func TestFeedbackTracker_FailureAllowsRetry(t *testing.T) {
	tr := transcriptWithBotMessage("bot-1")
	gw := &mockGateway{}
	gw.On("SubmitFeedback", mock.Anything, "bot-1", false, "").Return(errors.New("offline")).Once()
	gw.On("SubmitFeedback", mock.Anything, "bot-1", false, "").Return(nil).Once()
	f := NewFeedbackTracker(tr, gw, nil, nil)

	called, err := f.Submit(context.Background(), "bot-1", false)
	assert.True(t, called)
	assert.Error(t, err)
	m, _ := tr.Get("bot-1")
	assert.Equal(t, FeedbackUnset, m.Feedback)
	assert.False(t, m.FeedbackLocked)
	assert.False(t, m.FeedbackPending)

	called, err = f.Submit(context.Background(), "bot-1", false)
	assert.True(t, called)
	assert.NoError(t, err)
	m, _ = tr.Get("bot-1")
	assert.Equal(t, FeedbackNegative, m.Feedback)
	assert.True(t, m.FeedbackLocked)
}

func TestFeedbackTracker_UnknownMessage(t *testing.T) {
	gw := &mockGateway{}
	f := NewFeedbackTracker(transcriptWithBotMessage("bot-1"), gw, nil, nil)

	_, err := f.Submit(context.Background(), "nope", true)
	assert.ErrorIs(t, err, ErrUnknownMessage)
	_, err = f.Submit(context.Background(), "", true)
	assert.ErrorIs(t, err, ErrUnknownMessage)
	gw.AssertNotCalled(t, "SubmitFeedback", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFeedbackTracker_AlreadyLockedFromHistory(t *testing.T) {
	tr := NewTranscript()
	tr.ReplaceAll([]Message{{ID: "old", Origin: OriginBot, Feedback: FeedbackNegative, FeedbackLocked: true}})
	gw := &mockGateway{}
	f := NewFeedbackTracker(tr, gw, nil, nil)

	called, err := f.Submit(context.Background(), "old", true)
	assert.NoError(t, err)
	assert.False(t, called)
	m, _ := tr.Get("old")
	assert.Equal(t, FeedbackNegative, m.Feedback)
}
