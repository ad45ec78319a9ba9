// Package report renders run summaries for operator channels.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"draftflow/pkg/store"
	"draftflow/pkg/workflow"
)

const ruleWidth = 50

// Field is one labelled summary line.
type Field struct {
	Label string
	Value string
}

// Fields lists the summary lines for run. Lines whose value the run never
// produced are omitted.
func Fields(run store.Run) []Field {
	fields := make([]Field, 0, 10)
	add := func(label, value string) {
		fields = append(fields, Field{Label: label, Value: value})
	}

	if run.State == nil {
		if run.Error != "" {
			add("Error", run.Error)
		}
		return fields
	}
	s := run.State

	if msg := s.InputMessage; msg != nil {
		add("Input type", orUnknown(string(msg.InputType)))
		add("Source", orUnknown(msg.Source))
		if msg.Sender != "" {
			add("From", msg.Sender)
		}
		if msg.Subject != "" {
			add("Subject", msg.Subject)
		}
	}

	if s.ActionType != "" {
		add("Action", string(s.ActionType))
		if confidence := s.Confidence(); confidence > 0 {
			add("Confidence", strconv.FormatFloat(confidence, 'f', 2, 64))
		}
	}
	if s.Tool != "" {
		add("Tool", s.Tool)
	}
	if len(s.RetrievedContext) > 0 {
		add("Context items", strconv.Itoa(len(s.RetrievedContext)))
	}
	if s.Result != nil {
		add("Generated", string(s.Result.Type())+" draft")
	}
	if run.Error != "" {
		add("Error", run.Error)
	}

	return fields
}

// Plain renders the summary as a ruled text block.
func Plain(run store.Run) string {
	rule := strings.Repeat("=", ruleWidth)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nWORKFLOW SUMMARY\n%s\n", rule, rule)
	for _, field := range Fields(run) {
		fmt.Fprintf(&b, "%s: %s\n", field.Label, field.Value)
	}
	b.WriteString(rule + "\n")
	return b.String()
}

// Reply is the text sent back to a chat channel: the summary followed by the
// draft, when one was generated.
func Reply(run store.Run) string {
	out := Plain(run)
	if run.State != nil && run.State.Result != nil && run.State.Result.Type() != workflow.ResultNoOp {
		out += draftText(*run.State.Result)
	}
	if run.Status == store.RunHalted {
		out += "No new messages.\n"
	}
	return out
}

func draftText(result workflow.Result) string {
	switch result.Type() {
	case workflow.ResultEmail:
		return fmt.Sprintf("\nTo: %s\nSubject: %s\n\n%s\n", result.Email.To, result.Email.Subject, result.Email.Body)
	case workflow.ResultMeeting:
		d := result.Meeting
		return fmt.Sprintf("\n%s (%s)\nParticipants: %s\n\n%s\n", d.Title, d.Duration, strings.Join(d.Participants, ", "), d.Description)
	default:
		return ""
	}
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

type theme struct {
	box      lipgloss.Style
	failBox  lipgloss.Style
	title    lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	statusOK lipgloss.Style
	status   lipgloss.Style
}

func defaultTheme() theme {
	return theme{
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("44")).
			Padding(0, 1),
		failBox: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("203")).
			Padding(0, 1),
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("44")).
			Padding(0, 1),
		label: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")),
		value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		statusOK: lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")).
			Bold(true),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")).
			Bold(true),
	}
}

// Card renders the summary as a bordered terminal card.
func Card(run store.Run) string {
	t := defaultTheme()

	statusStyle := t.status
	if run.Status == store.RunCompleted {
		statusStyle = t.statusOK
	}

	lines := []string{
		t.title.Render("WORKFLOW SUMMARY") + " " + statusStyle.Render(string(run.Status)),
	}
	if run.ID != "" {
		lines = append(lines, t.label.Render("Run: ")+t.value.Render(run.ID))
	}
	for _, field := range Fields(run) {
		lines = append(lines, t.label.Render(field.Label+": ")+t.value.Render(field.Value))
	}

	box := t.box
	if run.Status == store.RunFailed {
		box = t.failBox
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
