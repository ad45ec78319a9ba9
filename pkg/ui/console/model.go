package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"draftflow/pkg/bus"
	"draftflow/pkg/report"
	"draftflow/pkg/store"
	"draftflow/pkg/workflow"
)

type entryKind int

const (
	entryCommand entryKind = iota
	entryRun
	entryEvent
	entryError
)

type entry struct {
	kind    entryKind
	content string
	run     store.Run
	event   bus.Event
}

type runResultMsg struct {
	run store.Run
	err error
}

type eventMsg struct {
	event bus.Event
}

type eventsClosedMsg struct{}

type model struct {
	ctx    context.Context
	submit SubmitFunc
	events <-chan bus.Event
	info   Info

	theme     theme
	spinner   spinner.Model
	input     textinput.Model
	viewport  viewport.Model
	entries   []entry
	width     int
	height    int
	isReady   bool
	isLoading bool
	lastErr   string
	followLog bool

	runs   int
	drafts int
}

func newModel(ctx context.Context, submit SubmitFunc, events <-chan bus.Event, info Info) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("44"))

	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "reply to the outage email, schedule q1 planning with sarah..."
	in.Focus()

	return &model{
		ctx:       ctx,
		submit:    submit,
		events:    events,
		info:      info,
		theme:     defaultTheme(),
		spinner:   spin,
		input:     in,
		viewport:  viewport.New(80, 12),
		width:     100,
		height:    28,
		followLog: true,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeComponents()
		m.refreshViewport(false)
		m.isReady = true
		return m, nil
	case tea.MouseMsg:
		m.handleViewportMouse(typed)
		return m, nil
	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m, m.submitInput()
		}
		if m.handleViewportKey(typed) {
			return m, nil
		}
	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case runResultMsg:
		m.isLoading = false
		m.recordResult(typed.run, typed.err)
		m.refreshViewport(false)
		return m, nil
	case eventMsg:
		if m.showEvent(typed.event) {
			m.entries = append(m.entries, entry{kind: entryEvent, event: typed.event})
			m.refreshViewport(false)
		}
		return m, waitForEvent(m.events)
	case eventsClosedMsg:
		m.events = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) submitInput() tea.Cmd {
	if m.isLoading {
		return nil
	}

	command := strings.TrimSpace(m.input.Value())
	if command == "" {
		return nil
	}
	if isExitCommand(command) {
		return tea.Quit
	}

	m.lastErr = ""
	m.entries = append(m.entries, entry{kind: entryCommand, content: command})
	m.input.SetValue("")
	m.isLoading = true
	m.followLog = true
	m.refreshViewport(true)
	return tea.Batch(m.spinner.Tick, submitCmd(m.ctx, m.submit, command))
}

func (m *model) recordResult(run store.Run, err error) {
	if run.ID != "" {
		m.runs++
		if hasDraft(run) {
			m.drafts++
		}
		m.entries = append(m.entries, entry{kind: entryRun, run: run})
	}

	if err != nil {
		m.lastErr = err.Error()
		if run.ID == "" {
			m.entries = append(m.entries, entry{kind: entryError, content: err.Error()})
		}
		return
	}
	m.lastErr = ""
}

// showEvent keeps terminal events for runs the console did not start itself.
func (m *model) showEvent(event bus.Event) bool {
	if !event.Terminal() || event.Channel == ChannelName {
		return false
	}

	m.runs++
	if event.Result == string(workflow.ResultEmail) || event.Result == string(workflow.ResultMeeting) {
		m.drafts++
	}
	return true
}

func (m *model) finished() int {
	return m.runs
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport(false)
	}

	header := m.theme.header.Width(m.width - 2).Render("draftflow operator console")
	meta := m.theme.headerMeta.Render(fmt.Sprintf(
		"provider:%s · model:%s · gmail polling:%s · runs:%d · drafts:%d · drafts dir:%s",
		displayOrNA(m.info.Provider),
		displayOrNA(m.info.Model),
		onOff(m.info.Polling),
		m.runs,
		m.drafts,
		displayOrNA(m.info.DraftsDir),
	))
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	status := m.theme.status.Render("Enter run  ·  PgUp/PgDn scroll  ·  End jump latest  ·  Ctrl+C/Esc quit")
	if m.isLoading {
		status = m.theme.statusBusy.Render(m.spinner.View() + " running workflow...")
	}
	if m.lastErr != "" {
		status = m.theme.statusErr.Render("last run failed: " + m.lastErr)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		meta,
		line,
		m.theme.viewport.Width(m.width-2).Render(m.viewport.View()),
		status,
		m.theme.inputLabel.Render("Command")+" "+m.theme.hint.Render("(type exit, quit or stop)"),
		m.theme.input.Width(m.width-2).Render(m.input.View()),
	)
}

func (m *model) resizeComponents() {
	w := max(50, m.width-6)
	h := max(8, m.height-10)

	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 2
}

func (m *model) refreshViewport(forceBottom bool) {
	previousOffset := m.viewport.YOffset

	sections := make([]string, 0, len(m.entries))
	for _, item := range m.entries {
		sections = append(sections, m.renderEntry(item))
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
	if m.followLog || forceBottom {
		m.viewport.GotoBottom()
		m.followLog = true
		return
	}

	maxOffset := max(0, m.viewport.TotalLineCount()-m.viewport.Height)
	m.viewport.SetYOffset(min(previousOffset, maxOffset))
}

func (m *model) renderEntry(item entry) string {
	switch item.kind {
	case entryCommand:
		return lipgloss.JoinVertical(lipgloss.Left,
			m.theme.commandTitle.Render("COMMAND"),
			m.theme.commandBox.Width(m.viewport.Width).Render(item.content),
		)
	case entryRun:
		card := report.Card(item.run)
		if text := draftPreview(item.run); text != "" {
			card = lipgloss.JoinVertical(lipgloss.Left, card, m.theme.draftBox.Render(text))
		}
		return card
	case entryEvent:
		body := strings.TrimSpace(item.event.Summary)
		if body == "" {
			body = fmt.Sprintf("run %s %s", item.event.RunID, item.event.Type)
		}
		if item.event.Error != "" {
			body += "\n" + m.theme.statusErr.Render(item.event.Error)
		}
		return lipgloss.JoinVertical(lipgloss.Left,
			m.theme.eventTitle.Render(strings.ToUpper(displayOrNA(item.event.Channel))+" · "+string(item.event.Type)),
			m.theme.eventBody.Width(m.viewport.Width).Render(body),
		)
	default:
		return lipgloss.JoinVertical(lipgloss.Left,
			m.theme.errorTitle.Render("ERROR"),
			m.theme.errorBox.Width(m.viewport.Width).Render(item.content),
		)
	}
}

func (m *model) handleViewportKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "pgup", "ctrl+b":
		m.viewport.PageUp()
		m.followLog = false
		return true
	case "pgdown", "ctrl+f":
		m.viewport.PageDown()
		m.followLog = m.viewport.AtBottom()
		return true
	case "home":
		m.viewport.GotoTop()
		m.followLog = false
		return true
	case "end":
		m.viewport.GotoBottom()
		m.followLog = true
		return true
	default:
		return false
	}
}

func (m *model) handleViewportMouse(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress {
		return false
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.viewport.ScrollUp(3)
		m.followLog = false
		return true
	case tea.MouseButtonWheelDown:
		m.viewport.ScrollDown(3)
		m.followLog = m.viewport.AtBottom()
		return true
	default:
		return false
	}
}

func submitCmd(ctx context.Context, submit SubmitFunc, command string) tea.Cmd {
	return func() tea.Msg {
		run, err := submit(ctx, command)
		return runResultMsg{run: run, err: err}
	}
}

func waitForEvent(events <-chan bus.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: event}
	}
}

func hasDraft(run store.Run) bool {
	if run.State == nil || run.State.Result == nil {
		return false
	}
	return run.State.Result.NoOp == nil
}

func draftPreview(run store.Run) string {
	if !hasDraft(run) {
		return ""
	}

	result := run.State.Result
	if result.Email != nil {
		return strings.TrimSpace(result.Email.Body)
	}
	return strings.TrimSpace(result.Meeting.Description)
}

func displayOrNA(value string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return "n/a"
}

func onOff(value bool) string {
	if value {
		return "on"
	}
	return "off"
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit", "stop", ":q":
		return true
	default:
		return false
	}
}
