package workflow

import (
	"fmt"
	"strings"
)

func classifyEmailPrompt(msg Message) string {
	return fmt.Sprintf(`Analyze this email and classify the required action.
Return only the action type and confidence score.

EMAIL:
From: %s
Subject: %s
Body: %s

ACTIONS:
- EMAIL_REPLY: Email requires a substantive response
- NO_OP: Newsletters, notifications, spam, or emails that don't need replies

Return format: ACTION_TYPE:CONFIDENCE_SCORE
Example: EMAIL_REPLY:0.95
Response:`, msg.Sender, msg.Subject, msg.Body)
}

func classifyCommandPrompt(msg Message) string {
	return fmt.Sprintf(`Analyze this command and classify the required action.
Return only the action type and confidence score.

Command:
%s

ACTIONS:
- SETUP_CALENDAR_INVITE: Setup calendar invite
- NO_OP: None of the other actions

Return format: ACTION_TYPE:CONFIDENCE_SCORE
Example: SETUP_CALENDAR_INVITE:0.95
Response:`, msg.Body)
}

func emailReplyPrompt(msg Message, snippets []string) string {
	return fmt.Sprintf(`You are a professional customer support representative. Generate a polite, formal email reply.

ORIGINAL MESSAGE:
From: %s
Subject: %s
Body: %s

RELEVANT CONTEXT:
%s

Instructions:
- Be professional and empathetic
- Address the customer's concerns directly
- Use the context information to provide accurate details
- Keep the tone formal but friendly
- End with an offer for further assistance
- Do not include email headers (To:, From:, Subject:)

Generate only the email body:`, msg.Sender, msg.Subject, msg.Body, strings.Join(snippets, "\n"))
}

func meetingPrompt(msg Message, snippets []string, details MeetingDetails) string {
	participants := "Not specified"
	if len(details.Participants) > 0 {
		participants = strings.Join(details.Participants, ", ")
	}

	return fmt.Sprintf(`Based on this meeting request, generate a structured meeting invitation.

REQUEST: %s

CONTEXT:
%s

EXTRACTED DETAILS:
- Participants: %s
- Topic: %s
- Duration: %s
- Proposed Time: %s

Generate:
1. Meeting title
2. Description/agenda
3. Recommended duration
4. Any preparation notes

Format as professional meeting invitation content:`,
		msg.Body,
		strings.Join(snippets, "\n"),
		participants,
		orDefault(details.Topic, "Not specified"),
		details.Duration,
		orDefault(details.Time, "Not specified"),
	)
}

func orDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
