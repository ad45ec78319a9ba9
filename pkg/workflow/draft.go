package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	ToolGmail    = "gmail"
	ToolCalendar = "calendar"

	defaultMeetingTitle    = "Meeting"
	defaultMeetingLocation = "TBD"

	summaryTimeLayout = "2006-01-02 15:04:05"
)

// GmailDraft generates a reply to the inbound email.
func (st *Steps) GmailDraft(ctx context.Context, s State) (State, error) {
	if s.InputMessage == nil {
		return s, ErrMissingInput
	}
	if s.Result != nil {
		return s, ErrResultConflict
	}

	msg := *s.InputMessage
	body, err := st.generate(ctx, StepGmailDraft, emailReplyPrompt(msg, s.RetrievedContext))
	if err != nil {
		return s, err
	}

	s.DraftReply = body
	s.Result = NewEmailResult(EmailDraft{
		To:                msg.Sender,
		Subject:           "Re: " + msg.Subject,
		Body:              body,
		OriginalMessageID: msg.MessageID,
	})
	s.Tool = ToolGmail
	st.log.Info("Generated email draft", "to", msg.Sender)

	return s, nil
}

// MeetingDraft generates a meeting invitation from the request text.
func (st *Steps) MeetingDraft(ctx context.Context, s State) (State, error) {
	if s.InputMessage == nil {
		return s, ErrMissingInput
	}
	if s.Result != nil {
		return s, ErrResultConflict
	}

	msg := *s.InputMessage
	details := ExtractMeetingDetails(msg.Body)

	description, err := st.generate(ctx, StepMeetingDraft, meetingPrompt(msg, s.RetrievedContext, details))
	if err != nil {
		return s, err
	}

	title := details.Topic
	if title == "" {
		title = defaultMeetingTitle
	}
	participants := details.Participants
	if participants == nil {
		participants = []string{}
	}

	s.DraftReply = description
	s.Result = NewMeetingResult(MeetingDraft{
		Title:        title,
		Participants: participants,
		ProposedTime: details.Time,
		Duration:     details.Duration,
		Description:  description,
		Location:     defaultMeetingLocation,
	})
	s.Tool = ToolCalendar
	st.log.Info("Generated meeting draft", "title", title, "participants", len(participants))

	return s, nil
}

// DraftSummary renders a result as the plain-text block printed by the
// persist step.
func DraftSummary(result Result, at time.Time) string {
	rule := strings.Repeat("=", 80)
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\nDRAFT GENERATED\n%s\n", rule, rule)
	switch result.Type() {
	case ResultEmail:
		d := result.Email
		fmt.Fprintf(&b, "Type: Gmail Email Reply\nTo: %s\nSubject: %s\n", d.To, d.Subject)
		fmt.Fprintf(&b, "Generated: %s\n%s\nBody:\n%s\n", at.Format(summaryTimeLayout), strings.Repeat("-", 80), d.Body)
	case ResultMeeting:
		d := result.Meeting
		fmt.Fprintf(&b, "Type: Meeting Invitation\nTitle: %s\nParticipants: %s\n", d.Title, strings.Join(d.Participants, ", "))
		fmt.Fprintf(&b, "Duration: %s\nTime: %s\n", d.Duration, orTBD(d.ProposedTime))
		fmt.Fprintf(&b, "Generated: %s\n%s\nDescription:\n%s\n", at.Format(summaryTimeLayout), strings.Repeat("-", 80), d.Description)
	case ResultNoOp:
		d := result.NoOp
		fmt.Fprintf(&b, "Type: No Action Required\nReason: %s\nMessage: %s\n", d.Reason, d.Message)
	}
	fmt.Fprintf(&b, "%s\n", rule)

	return b.String()
}

func orTBD(value string) string {
	if strings.TrimSpace(value) == "" {
		return "TBD"
	}
	return value
}
