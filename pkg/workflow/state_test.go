package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		state State
	}{
		{name: "empty", state: State{}},
		{name: "initial cli", state: NewState(ModeCLI, "meet with Sarah")},
		{
			name: "email draft",
			state: State{
				InputMode:        ModeGmail,
				InputMessage:     gmailMessage("Refund request", "I need a refund for order 123"),
				ActionType:       ActionEmailReply,
				ActionConfidence: float64Ptr(0.9),
				Tool:             ToolGmail,
				RetrievedContext: []string{"a", "b"},
				DraftReply:       "Dear customer",
				Result: NewEmailResult(EmailDraft{
					To:                "customer@example.com",
					Subject:           "Re: Refund request",
					Body:              "Dear customer",
					OriginalMessageID: "<abc123@mail.example.com>",
				}),
			},
		},
		{
			name: "meeting draft with empty participants",
			state: State{
				InputMode:        ModeCLI,
				InputMessage:     &Message{Body: "plan review", InputType: InputCommand, Source: "cli"},
				ActionType:       ActionScheduleMeeting,
				ActionConfidence: float64Ptr(0.75),
				Tool:             ToolCalendar,
				RetrievedContext: []string{},
				Result: NewMeetingResult(MeetingDraft{
					Title:        "Meeting",
					Participants: []string{},
					Duration:     "60 minutes",
					Description:  "Agenda",
					Location:     "TBD",
				}),
			},
		},
		{
			name: "sanitized non-utf8 body",
			state: State{
				InputMode:    ModeCLI,
				InputMessage: (&Message{Body: "caf\xe9 order", InputType: InputCommand, Source: "cli"}).Sanitize(),
			},
		},
		{
			name: "no_op",
			state: State{
				InputMode:        ModeMock,
				InputMessage:     &Message{Sender: "support@example.com", Body: "hello", InputType: InputEmail, Source: "mock"},
				ActionType:       ActionNoOp,
				ActionConfidence: float64Ptr(1.0),
				RetrievedContext: []string{},
				Result:           NewNoOpResult(NoOpOutcome{Message: noOpMessage, Reason: noOpReason}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeState(tt.state)
			require.NoError(t, err)

			decoded, err := DecodeState(data)
			require.NoError(t, err)
			assert.Equal(t, tt.state, decoded)

			again, err := EncodeState(decoded)
			require.NoError(t, err)
			assert.JSONEq(t, string(data), string(again))
		})
	}
}

func TestResultWireShapeIsFlat(t *testing.T) {
	data, err := EncodeState(State{Result: NewNoOpResult(NoOpOutcome{Message: noOpMessage, Reason: noOpReason})})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"retrieved_context": null,
		"result": {"type": "no_op", "message": "No action required for this input", "reason": "Not classified as any action"}
	}`, string(data))
}

func TestEncodeStateRejectsInvalidUTF8(t *testing.T) {
	s := State{
		InputMode:    ModeCLI,
		InputMessage: &Message{Body: "caf\xe9 order", InputType: InputCommand, Source: "cli"},
	}

	_, err := EncodeState(s)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorContains(t, err, "body")

	s.InputMessage.Sanitize()
	data, err := EncodeState(s)
	require.NoError(t, err)
	decoded, err := DecodeState(data)
	require.NoError(t, err)
	assert.Equal(t, s, decoded)
}

func TestDecodeStateRejectsMalformedRecords(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "unknown field", data: `{"retrieved_context": [], "surprise": 1}`},
		{name: "unknown action", data: `{"input_message": {"body": "x", "input_type": "email", "source": "mock"}, "action_type": "dance", "retrieved_context": []}`},
		{name: "action without message", data: `{"action_type": "no_op", "retrieved_context": []}`},
		{name: "confidence out of range", data: `{"input_message": {"body": "x", "input_type": "email", "source": "mock"}, "action_type": "no_op", "action_confidence": 1.5, "retrieved_context": []}`},
		{name: "no_op with context", data: `{"input_message": {"body": "x", "input_type": "email", "source": "mock"}, "action_type": "no_op", "retrieved_context": ["a"]}`},
		{name: "unknown input type", data: `{"input_message": {"body": "x", "input_type": "fax", "source": "mock"}, "retrieved_context": []}`},
		{name: "unknown mode", data: `{"input_mode": "carrier_pigeon", "retrieved_context": []}`},
		{name: "result without type", data: `{"result": {"message": "x"}, "retrieved_context": []}`},
		{name: "result with unknown type", data: `{"result": {"type": "fax"}, "retrieved_context": []}`},
		{name: "result with foreign field", data: `{"result": {"type": "no_op", "message": "x", "reason": "y", "to": "z"}, "retrieved_context": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeState([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	original := State{
		InputMessage:     gmailMessage("s", "b"),
		ActionType:       ActionEmailReply,
		ActionConfidence: float64Ptr(0.9),
		RetrievedContext: []string{"a"},
		Result:           NewMeetingResult(MeetingDraft{Participants: []string{"Sarah"}}),
	}

	clone := original.Clone()
	clone.InputMessage.Body = "changed"
	*clone.ActionConfidence = 0.1
	clone.RetrievedContext[0] = "changed"
	clone.Result.Meeting.Participants[0] = "changed"

	assert.Equal(t, "b", original.InputMessage.Body)
	assert.InDelta(t, 0.9, *original.ActionConfidence, 1e-9)
	assert.Equal(t, "a", original.RetrievedContext[0])
	assert.Equal(t, "Sarah", original.Result.Meeting.Participants[0])
}

func TestParseMode(t *testing.T) {
	for _, mode := range []string{"gmail", "cli", "slack", "mock"} {
		got, err := ParseMode(mode)
		require.NoError(t, err)
		assert.Equal(t, Mode(mode), got)
	}

	_, err := ParseMode("smtp")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
