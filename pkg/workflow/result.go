package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ResultType tags the variant held by a Result.
type ResultType string

const (
	ResultEmail   ResultType = "email"
	ResultMeeting ResultType = "meeting"
	ResultNoOp    ResultType = "no_op"
)

// EmailDraft is a generated reply to an inbound email.
type EmailDraft struct {
	To                string `json:"to"`
	Subject           string `json:"subject"`
	Body              string `json:"body"`
	OriginalMessageID string `json:"original_message_id,omitempty"`
}

// MeetingDraft is a generated meeting invitation.
type MeetingDraft struct {
	Title        string   `json:"title"`
	Participants []string `json:"participants"`
	ProposedTime string   `json:"proposed_time,omitempty"`
	Duration     string   `json:"duration"`
	Description  string   `json:"description"`
	Location     string   `json:"location"`
}

// NoOpOutcome records why no draft was produced.
type NoOpOutcome struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

// Result is the outcome of a run. Exactly one variant is set; on the wire it
// is a flat object discriminated by "type".
type Result struct {
	Email   *EmailDraft
	Meeting *MeetingDraft
	NoOp    *NoOpOutcome
}

func NewEmailResult(draft EmailDraft) *Result {
	return &Result{Email: &draft}
}

func NewMeetingResult(draft MeetingDraft) *Result {
	return &Result{Meeting: &draft}
}

func NewNoOpResult(outcome NoOpOutcome) *Result {
	return &Result{NoOp: &outcome}
}

// Type returns the tag of the populated variant, or "" when none is set.
func (r Result) Type() ResultType {
	switch {
	case r.Email != nil:
		return ResultEmail
	case r.Meeting != nil:
		return ResultMeeting
	case r.NoOp != nil:
		return ResultNoOp
	default:
		return ""
	}
}

func (r Result) validate() error {
	set := 0
	for _, populated := range []bool{r.Email != nil, r.Meeting != nil, r.NoOp != nil} {
		if populated {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("result must hold exactly one variant, has %d", set)
	}
	return nil
}

func (r Result) clone() Result {
	var out Result
	if r.Email != nil {
		email := *r.Email
		out.Email = &email
	}
	if r.Meeting != nil {
		meeting := *r.Meeting
		if r.Meeting.Participants != nil {
			meeting.Participants = slices.Clone(r.Meeting.Participants)
		}
		out.Meeting = &meeting
	}
	if r.NoOp != nil {
		noOp := *r.NoOp
		out.NoOp = &noOp
	}
	return out
}

type emailWire struct {
	Type ResultType `json:"type"`
	*EmailDraft
}

type meetingWire struct {
	Type ResultType `json:"type"`
	*MeetingDraft
}

type noOpWire struct {
	Type ResultType `json:"type"`
	*NoOpOutcome
}

func (r Result) MarshalJSON() ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	switch r.Type() {
	case ResultEmail:
		return json.Marshal(emailWire{Type: ResultEmail, EmailDraft: r.Email})
	case ResultMeeting:
		return json.Marshal(meetingWire{Type: ResultMeeting, MeetingDraft: r.Meeting})
	default:
		return json.Marshal(noOpWire{Type: ResultNoOp, NoOpOutcome: r.NoOp})
	}
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type ResultType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	*r = Result{}
	switch probe.Type {
	case ResultEmail:
		wire := emailWire{EmailDraft: &EmailDraft{}}
		if err := strictUnmarshal(data, &wire); err != nil {
			return err
		}
		r.Email = wire.EmailDraft
	case ResultMeeting:
		wire := meetingWire{MeetingDraft: &MeetingDraft{}}
		if err := strictUnmarshal(data, &wire); err != nil {
			return err
		}
		r.Meeting = wire.MeetingDraft
	case ResultNoOp:
		wire := noOpWire{NoOpOutcome: &NoOpOutcome{}}
		if err := strictUnmarshal(data, &wire); err != nil {
			return err
		}
		r.NoOp = wire.NoOpOutcome
	case "":
		return errors.New("result type is required")
	default:
		return fmt.Errorf("unknown result type %q", probe.Type)
	}

	return nil
}

func strictUnmarshal(data []byte, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}
