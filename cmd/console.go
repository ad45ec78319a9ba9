package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"draftflow/pkg/bus"
	"draftflow/pkg/config"
	"draftflow/pkg/logger"
	"draftflow/pkg/store"
	"draftflow/pkg/ui/console"
	"draftflow/pkg/workflow"
)

var consoleLogFile string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the interactive operator console",
	Long: "Opens a terminal console where each command starts a cli run. Runs raised by the " +
		"Gmail poller appear as they finish.",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyIntervalFlag(cmd, cfg)

		// Log lines would tear the full-screen UI, so they go to a file.
		logFile, err := os.OpenFile(consoleLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open console log: %w", err)
		}
		defer logFile.Close()
		if _, err := logger.Install(cfg.Logging, logFile); err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}

		a, err := newApp(cfg, nil, slog.Default())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		bgCtx, cancel := context.WithCancel(ctx)
		var wg sync.WaitGroup
		defer func() {
			cancel()
			wg.Wait()
		}()

		events, unsubscribe := a.bus.SubscribeEvents(bgCtx, 64)
		defer unsubscribe()

		wg.Go(func() {
			if err := a.instance.Run(bgCtx); err != nil {
				slog.Default().Error("Worker loop failed", "error", err)
			}
		})

		polling := pollingEnabled(cfg)
		if polling {
			wg.Go(func() {
				_ = a.instance.PollGmail(bgCtx, time.Duration(cfg.Gmail.PollIntervalSeconds)*time.Second)
			})
		}

		submit := func(ctx context.Context, command string) (store.Run, error) {
			return a.instance.Submit(ctx, bus.Trigger{
				Mode:    string(workflow.ModeCLI),
				Command: command,
				Channel: console.ChannelName,
			})
		}

		return console.Run(ctx, submit, events, console.Info{
			Provider:  a.providerName(),
			Model:     cfg.LLM.Model,
			DraftsDir: a.draftsDir(),
			Polling:   polling,
		}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().IntVar(&gmailInterval, "gmail-interval", config.DefaultPollIntervalSeconds, "seconds between Gmail checks, 0 disables polling")
	consoleCmd.Flags().StringVar(&consoleLogFile, "log-file", "draftflow-console.log", "file receiving log output while the console is open")
}
