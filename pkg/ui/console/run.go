// Package console is the interactive operator console: typed commands start
// cli runs and finished runs render as summary cards.
package console

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"draftflow/pkg/bus"
	"draftflow/pkg/store"
)

// ChannelName identifies triggers raised from the console.
const ChannelName = "console"

// SubmitFunc starts one cli run for command and waits for it.
type SubmitFunc func(ctx context.Context, command string) (store.Run, error)

// Info is shown in the console header.
type Info struct {
	Provider  string
	Model     string
	DraftsDir string
	Polling   bool
}

// Run blocks until the operator quits or ctx is done. Runs started elsewhere
// (the Gmail poller) stream in through events; events may be nil.
func Run(ctx context.Context, submit SubmitFunc, events <-chan bus.Event, info Info, out io.Writer) error {
	m := newModel(ctx, submit, events, info)
	program := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return err
	}

	fmt.Fprintln(out, renderGoodbyeBanner(m.finished()))
	return nil
}

func renderGoodbyeBanner(runs int) string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("16")).
		Background(lipgloss.Color("44")).
		Padding(1, 2)

	return style.Render(fmt.Sprintf("draftflow console closed after %d run(s)", runs))
}
