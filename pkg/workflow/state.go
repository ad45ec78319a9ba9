package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// InputType classifies what kind of input a Message carries.
type InputType string

const (
	InputEmail   InputType = "email"
	InputCommand InputType = "command"
)

// ActionType is the classified intent that drives draft selection.
type ActionType string

const (
	ActionEmailReply      ActionType = "email_reply"
	ActionScheduleMeeting ActionType = "schedule_meeting"
	ActionNoOp            ActionType = "no_op"
	ActionUnknown         ActionType = "unknown"
)

// Valid reports whether a is one of the declared action types.
func (a ActionType) Valid() bool {
	switch a {
	case ActionEmailReply, ActionScheduleMeeting, ActionNoOp, ActionUnknown:
		return true
	default:
		return false
	}
}

// Mode selects how the receive step acquires its message.
type Mode string

const (
	ModeGmail Mode = "gmail"
	ModeCLI   Mode = "cli"
	ModeSlack Mode = "slack"
	ModeMock  Mode = "mock"
)

// ParseMode normalizes a mode name.
func ParseMode(value string) (Mode, error) {
	switch mode := Mode(value); mode {
	case ModeGmail, ModeCLI, ModeSlack, ModeMock:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, value)
	}
}

// Message is one inbound unit of work. It is built once by the message source
// and not modified afterwards.
type Message struct {
	Sender    string    `json:"sender,omitempty"`
	Recipient string    `json:"recipient,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	Timestamp string    `json:"timestamp,omitempty"`
	InputType InputType `json:"input_type"`
	Source    string    `json:"source"`
	MessageID string    `json:"message_id,omitempty"`
}

// Sanitize replaces invalid UTF-8 in every text field with U+FFFD so the
// message survives a JSON round trip unchanged.
func (m *Message) Sanitize() *Message {
	if m == nil {
		return nil
	}
	for _, field := range m.textFields() {
		*field.value = strings.ToValidUTF8(*field.value, string(utf8.RuneError))
	}
	return m
}

type textField struct {
	name  string
	value *string
}

func (m *Message) textFields() []textField {
	return []textField{
		{"sender", &m.Sender},
		{"recipient", &m.Recipient},
		{"subject", &m.Subject},
		{"body", &m.Body},
		{"timestamp", &m.Timestamp},
		{"source", &m.Source},
		{"message_id", &m.MessageID},
	}
}

// State is the record threaded through every step of a run.
type State struct {
	InputMode        Mode       `json:"input_mode,omitempty"`
	Command          string     `json:"cli_command,omitempty"`
	InputMessage     *Message   `json:"input_message,omitempty"`
	ActionType       ActionType `json:"action_type,omitempty"`
	ActionConfidence *float64   `json:"action_confidence,omitempty"`
	Tool             string     `json:"tool,omitempty"`
	RetrievedContext []string   `json:"retrieved_context"`
	DraftReply       string     `json:"draft_reply,omitempty"`
	Result           *Result    `json:"result,omitempty"`
}

// NewState returns the initial record for a run in the given mode.
func NewState(mode Mode, command string) State {
	return State{InputMode: mode, Command: command}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	if s.InputMessage != nil {
		msg := *s.InputMessage
		out.InputMessage = &msg
	}
	if s.ActionConfidence != nil {
		confidence := *s.ActionConfidence
		out.ActionConfidence = &confidence
	}
	if s.RetrievedContext != nil {
		out.RetrievedContext = slices.Clone(s.RetrievedContext)
	}
	if s.Result != nil {
		result := s.Result.clone()
		out.Result = &result
	}
	return out
}

// Confidence returns the action confidence, or zero when unset.
func (s State) Confidence() float64 {
	if s.ActionConfidence == nil {
		return 0
	}
	return *s.ActionConfidence
}

// Validate rejects records that no sequence of steps could have produced.
func (s State) Validate() error {
	if s.InputMode != "" {
		if _, err := ParseMode(string(s.InputMode)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
	}

	if msg := s.InputMessage; msg != nil {
		switch msg.InputType {
		case InputEmail, InputCommand:
		default:
			return fmt.Errorf("%w: input_type %q", ErrInvalidState, msg.InputType)
		}
		for _, field := range msg.textFields() {
			if !utf8.ValidString(*field.value) {
				return fmt.Errorf("%w: message %s is not valid UTF-8", ErrInvalidState, field.name)
			}
		}
	}

	if s.ActionType != "" {
		if !s.ActionType.Valid() {
			return fmt.Errorf("%w: action_type %q", ErrInvalidState, s.ActionType)
		}
		if s.InputMessage == nil {
			return fmt.Errorf("%w: action_type set without input message", ErrInvalidState)
		}
	}

	if c := s.ActionConfidence; c != nil && (*c < 0 || *c > 1) {
		return fmt.Errorf("%w: action_confidence %v outside [0,1]", ErrInvalidState, *c)
	}

	if s.ActionType == ActionNoOp && len(s.RetrievedContext) > 0 {
		return fmt.Errorf("%w: retrieved_context populated for no_op", ErrInvalidState)
	}

	if s.Result != nil {
		if err := s.Result.validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
	}

	return nil
}

// EncodeState validates and serializes s.
func EncodeState(s State) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// DecodeState parses and validates a serialized record. Unknown fields are
// rejected.
func DecodeState(data []byte) (State, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var s State
	if err := decoder.Decode(&s); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if err := s.Validate(); err != nil {
		return State{}, err
	}
	return s, nil
}

func float64Ptr(value float64) *float64 {
	return &value
}
