package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteAfterReceive(t *testing.T) {
	next, err := RouteAfterReceive(State{})
	require.NoError(t, err)
	assert.Equal(t, StepNoOp, next)

	next, err = RouteAfterReceive(State{InputMessage: &Message{Body: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, StepClassify, next)
}

func TestRouteAfterRetrieveIsDeterministic(t *testing.T) {
	tests := []struct {
		action ActionType
		want   StepID
	}{
		{action: ActionEmailReply, want: StepGmailDraft},
		{action: ActionScheduleMeeting, want: StepMeetingDraft},
		{action: ActionNoOp, want: StepNoOp},
		{action: ActionUnknown, want: StepNoOp},
	}

	for _, tt := range tests {
		for range 3 {
			next, err := RouteAfterRetrieve(State{ActionType: tt.action, InputMessage: gmailMessage("s", "b")})
			require.NoError(t, err)
			assert.Equal(t, tt.want, next, string(tt.action))
		}
	}
}

func TestRouteAfterRetrieveRejectsUndeclaredActions(t *testing.T) {
	_, err := RouteAfterRetrieve(State{})
	assert.ErrorIs(t, err, ErrMissingAction)

	_, err = RouteAfterRetrieve(State{ActionType: "escalate"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}
