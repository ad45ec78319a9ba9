package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"draftflow/pkg/bus"
	"draftflow/pkg/report"
	"draftflow/pkg/workflow"
)

var onceMode string

var onceCmd = &cobra.Command{
	Use:   "once [command]",
	Short: "Execute a single workflow run and print its summary",
	Long: "Executes one workflow run in the given mode (gmail, cli, slack or mock) and prints the " +
		"draft and run summary. In cli mode the arguments are the operator command.",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := workflow.ParseMode(strings.ToLower(strings.TrimSpace(onceMode)))
		if err != nil {
			return err
		}
		command := strings.TrimSpace(strings.Join(args, " "))
		if mode == workflow.ModeCLI && command == "" {
			return errors.New("cli mode needs a command")
		}

		log := slog.Default().With("component", "cmd.once")
		out := cmd.OutOrStdout()

		a, err := newApp(cfg, out, slog.Default())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		run, err := a.instance.Execute(ctx, bus.Trigger{Mode: string(mode), Command: command, Channel: "once"})
		if run.ID != "" {
			fmt.Fprintln(out, report.Card(run))
		}
		if err != nil {
			log.Error("Run failed", "mode", string(mode), "command", command, "error", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(onceCmd)
	onceCmd.Flags().StringVarP(&onceMode, "mode", "m", string(workflow.ModeMock), "input mode: gmail, cli, slack or mock")
}

// signalContext is shared by the long-running commands.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
