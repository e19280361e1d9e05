package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionApply(t *testing.T) {
	s := &Session{
		SessionID:         "s1",
		ConversationState: StateInitiated,
		Thema:             "Radwege",
		Answers:           Answers{"round1": {"q1": "A"}},
		Metadata:          map[string]interface{}{"startedAt": "t0"},
		QuestionRound:     1,
	}

	s.Apply(&Session{
		ConversationState: StateAnswersReceived,
		Answers:           Answers{"round1": {"q2": "B"}},
		Metadata:          map[string]interface{}{"summary": "ok"},
	})

	assert.Equal(t, StateAnswersReceived, s.ConversationState)
	assert.Equal(t, "Radwege", s.Thema, "empty partial fields keep previous values")
	assert.Equal(t, map[string]interface{}{"q1": "A", "q2": "B"}, s.Answers["round1"])
	assert.Equal(t, map[string]interface{}{"startedAt": "t0", "summary": "ok"}, s.Metadata)
	assert.Equal(t, 1, s.QuestionRound)
}

func TestConversationStateTerminal(t *testing.T) {
	tests := []struct {
		state ConversationState
		want  bool
	}{
		{StateInitiated, false},
		{StateQuestionsAsked, false},
		{StateCompleted, true},
		{StateError, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.Terminal())
		})
	}
}
