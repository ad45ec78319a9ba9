package console

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftflow/pkg/bus"
	"draftflow/pkg/store"
	"draftflow/pkg/workflow"
)

func completedRun(id string, result *workflow.Result) store.Run {
	state := workflow.NewState(workflow.ModeCLI, "reply to dana")
	state.InputMessage = &workflow.Message{Body: "reply to dana", InputType: workflow.InputCommand, Source: "cli"}
	state.ActionType = workflow.ActionNoOp
	state.Result = result
	return store.Run{ID: id, Mode: workflow.ModeCLI, Status: store.RunCompleted, State: &state}
}

func TestHandleViewportMouseWheelUpDisablesFollowLog(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), nil, nil, Info{})
	m.viewport.Width = 40
	m.viewport.Height = 5
	m.viewport.SetContent(strings.Repeat("line\n", 40))
	m.viewport.GotoBottom()
	m.followLog = true

	previousOffset := m.viewport.YOffset
	require.True(t, m.handleViewportMouse(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp}))
	assert.False(t, m.followLog)
	assert.Less(t, m.viewport.YOffset, previousOffset)
}

func TestHandleViewportMouseWheelDownAtBottomEnablesFollowLog(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), nil, nil, Info{})
	m.viewport.Width = 40
	m.viewport.Height = 5
	m.viewport.SetContent(strings.Repeat("line\n", 40))
	m.viewport.GotoBottom()

	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	m.viewport.SetYOffset(max(0, maxOffset-1))
	m.followLog = false

	require.True(t, m.handleViewportMouse(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown}))
	assert.True(t, m.viewport.AtBottom())
	assert.True(t, m.followLog)
}

func TestHandleViewportMouseIgnoresNonWheelEvents(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), nil, nil, Info{})
	assert.False(t, m.handleViewportMouse(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}))
}

func TestSubmitInputStartsRun(t *testing.T) {
	t.Parallel()

	var submitted []string
	submit := func(_ context.Context, command string) (store.Run, error) {
		submitted = append(submitted, command)
		return completedRun("run-1", workflow.NewEmailResult(workflow.EmailDraft{To: "dana@example.com", Body: "Hi Dana"})), nil
	}

	m := newModel(context.Background(), submit, nil, Info{})
	m.input.SetValue("  reply to dana  ")

	cmd := m.submitInput()
	require.NotNil(t, cmd)
	assert.True(t, m.isLoading)
	assert.Empty(t, m.input.Value())
	require.Len(t, m.entries, 1)
	assert.Equal(t, entryCommand, m.entries[0].kind)

	// A second enter while loading is ignored.
	m.input.SetValue("again")
	assert.Nil(t, m.submitInput())

	msg := submitCmd(context.Background(), submit, "reply to dana")()
	m.Update(msg)

	assert.Equal(t, []string{"reply to dana"}, submitted)
	assert.False(t, m.isLoading)
	assert.Equal(t, 1, m.runs)
	assert.Equal(t, 1, m.drafts)
	require.Len(t, m.entries, 2)
	assert.Equal(t, entryRun, m.entries[1].kind)
	assert.Contains(t, m.renderEntry(m.entries[1]), "Hi Dana")
}

func TestSubmitInputExitCommandQuits(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), nil, nil, Info{})
	for _, word := range []string{"exit", "QUIT", "stop"} {
		m.input.SetValue(word)
		cmd := m.submitInput()
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
	assert.Empty(t, m.entries)
}

func TestRecordResultWithoutRunShowsError(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), nil, nil, Info{})
	m.recordResult(store.Run{}, errors.New("trigger queue is closed"))

	assert.Equal(t, "trigger queue is closed", m.lastErr)
	require.Len(t, m.entries, 1)
	assert.Equal(t, entryError, m.entries[0].kind)
	assert.Zero(t, m.runs)
}

func TestRecordResultFailedRunShowsCard(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), nil, nil, Info{})
	run := store.Run{ID: "run-9", Status: store.RunFailed, Error: "receive: imap down"}
	m.recordResult(run, errors.New("run run-9: receive: imap down"))

	require.Len(t, m.entries, 1)
	assert.Equal(t, entryRun, m.entries[0].kind)
	assert.Equal(t, 1, m.runs)
	assert.Zero(t, m.drafts)
	assert.Contains(t, m.renderEntry(m.entries[0]), "imap down")
}

func TestEventsFromOtherChannelsAreShown(t *testing.T) {
	t.Parallel()

	events := make(chan bus.Event, 3)
	m := newModel(context.Background(), nil, events, Info{})

	_, cmd := m.Update(eventMsg{event: bus.Event{Type: bus.EventRunStarted, Channel: "gmail_poll"}})
	require.NotNil(t, cmd)
	m.Update(eventMsg{event: bus.Event{Type: bus.EventRunCompleted, Channel: ChannelName}})
	m.Update(eventMsg{event: bus.Event{Type: bus.EventRunCompleted, Channel: "gmail_poll", Result: "email", Summary: "Subject: Database outage"}})

	require.Len(t, m.entries, 1)
	assert.Equal(t, 1, m.runs)
	assert.Equal(t, 1, m.drafts)
	assert.Contains(t, m.renderEntry(m.entries[0]), "Database outage")

	m.Update(eventsClosedMsg{})
	assert.Nil(t, m.events)
}

func TestWaitForEventReportsClose(t *testing.T) {
	t.Parallel()

	assert.Nil(t, waitForEvent(nil))

	events := make(chan bus.Event, 1)
	events <- bus.Event{RunID: "r1"}
	close(events)

	cmd := waitForEvent(events)
	assert.Equal(t, eventMsg{event: bus.Event{RunID: "r1"}}, cmd())
	assert.Equal(t, eventsClosedMsg{}, cmd())
}

func TestViewShowsHeaderAndStatus(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), nil, nil, Info{Provider: "mock", DraftsDir: "drafts", Polling: true})
	view := m.View()
	assert.Contains(t, view, "draftflow operator console")
	assert.Contains(t, view, "provider:mock")
	assert.Contains(t, view, "gmail polling:on")
	assert.Contains(t, view, "model:n/a")

	m.lastErr = "boom"
	assert.Contains(t, m.View(), "last run failed: boom")
}
