package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"draftflow/pkg/store"
	"draftflow/pkg/workflow"
)

func gmailRun() store.Run {
	confidence := 0.9
	state := workflow.NewState(workflow.ModeGmail, "")
	state.InputMessage = &workflow.Message{
		Sender:    "alice@example.com",
		Subject:   "Refund request",
		Body:      "Please refund order 42.",
		InputType: workflow.InputEmail,
		Source:    "gmail",
	}
	state.ActionType = workflow.ActionEmailReply
	state.ActionConfidence = &confidence
	state.Tool = workflow.ToolGmail
	state.RetrievedContext = []string{"a", "b", "c"}
	state.Result = workflow.NewEmailResult(workflow.EmailDraft{To: "alice@example.com", Subject: "Re: Refund request", Body: "Dear Alice"})

	return store.Run{ID: "run-1", Mode: workflow.ModeGmail, Status: store.RunCompleted, State: &state}
}

func TestPlainMatchesSummaryLayout(t *testing.T) {
	want := "==================================================\n" +
		"WORKFLOW SUMMARY\n" +
		"==================================================\n" +
		"Input type: email\n" +
		"Source: gmail\n" +
		"From: alice@example.com\n" +
		"Subject: Refund request\n" +
		"Action: email_reply\n" +
		"Confidence: 0.90\n" +
		"Tool: gmail\n" +
		"Context items: 3\n" +
		"Generated: email draft\n" +
		"==================================================\n"

	assert.Equal(t, want, Plain(gmailRun()))
}

func TestFieldsOmitUnsetValues(t *testing.T) {
	state := workflow.NewState(workflow.ModeCLI, "hello")
	state.InputMessage = &workflow.Message{Body: "hello", InputType: workflow.InputCommand, Source: "cli"}
	state.ActionType = workflow.ActionNoOp
	state.RetrievedContext = []string{}
	state.Result = workflow.NewNoOpResult(workflow.NoOpOutcome{Reason: "r", Message: "m"})

	fields := Fields(store.Run{State: &state})
	assert.Equal(t, []Field{
		{Label: "Input type", Value: "command"},
		{Label: "Source", Value: "cli"},
		{Label: "Action", Value: "no_op"},
		{Label: "Generated", Value: "no_op draft"},
	}, fields)
}

func TestFieldsForFailedRunWithoutState(t *testing.T) {
	run := store.Run{Status: store.RunFailed, Error: errors.New("step receive: imap down").Error()}
	assert.Equal(t, []Field{{Label: "Error", Value: "step receive: imap down"}}, Fields(run))
}

func TestReplyIncludesDraft(t *testing.T) {
	reply := Reply(gmailRun())
	assert.Contains(t, reply, "WORKFLOW SUMMARY")
	assert.Contains(t, reply, "Subject: Re: Refund request\n\nDear Alice\n")
}

func TestReplyForHaltedRun(t *testing.T) {
	state := workflow.NewState(workflow.ModeGmail, "")
	reply := Reply(store.Run{Status: store.RunHalted, State: &state})
	assert.Contains(t, reply, "No new messages.")
}

func TestCardListsFields(t *testing.T) {
	card := Card(gmailRun())
	assert.Contains(t, card, "WORKFLOW SUMMARY")
	assert.Contains(t, card, "run-1")
	assert.Contains(t, card, "Refund request")
	assert.Contains(t, card, "0.90")
}
