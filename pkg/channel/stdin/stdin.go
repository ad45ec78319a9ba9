// Package stdin reads operator commands from standard input.
package stdin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"draftflow/pkg/bus"
	"draftflow/pkg/channel"
	"draftflow/pkg/workflow"
)

// ChannelName identifies triggers raised from standard input.
const ChannelName = "stdin"

const prompt = "> "

// maxLineSize bounds a single pasted command.
const maxLineSize = 4 << 20

var stopWords = map[string]struct{}{
	"quit": {},
	"exit": {},
	"stop": {},
}

// Adapter turns each non-empty input line into a cli run.
type Adapter struct {
	in  io.Reader
	out io.Writer
	log *slog.Logger
}

func NewAdapter(in io.Reader, out io.Writer, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{in: in, out: out, log: log.With("component", "channel.stdin")}
}

func (a *Adapter) Name() string {
	return ChannelName
}

// Run reads lines until input ends, ctx is done or the operator types a stop
// word, in which case it returns channel.ErrStopRequested.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		scanner := bufio.NewScanner(a.in)
		scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stopped:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	fmt.Fprintln(a.out, "Type a command to start a run, or quit to stop.")
	fmt.Fprint(a.out, prompt)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			a.log.Info("Standard input closed")
			return nil
		case line := <-lines:
			command := strings.TrimSpace(line)
			if command == "" {
				fmt.Fprint(a.out, prompt)
				continue
			}
			if _, ok := stopWords[strings.ToLower(command)]; ok {
				a.log.Info("Stop requested", "command", command)
				return channel.ErrStopRequested
			}

			reply, err := handler(ctx, bus.Trigger{
				Mode:    string(workflow.ModeCLI),
				Command: command,
				Channel: ChannelName,
				ChatID:  "local",
			})
			if err != nil {
				a.log.Error("Run failed", "command", command, "error", err)
				if reply.Content == "" {
					reply.Content = "Error: " + err.Error()
				}
			}

			fmt.Fprintln(a.out, strings.TrimRight(reply.Content, "\n"))
			fmt.Fprint(a.out, prompt)
		}
	}
}
