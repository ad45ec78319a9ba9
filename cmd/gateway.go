package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"draftflow/pkg/channel"
	"draftflow/pkg/channel/stdin"
	"draftflow/pkg/channel/telegram"
	"draftflow/pkg/config"
	"draftflow/pkg/gateway"
	"draftflow/pkg/report"
)

var gmailInterval int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the draft daemon with an operator prompt",
	Long: "Polls Gmail on an interval, reads operator commands from standard input and, when enabled, " +
		"Telegram, and serves run status over HTTP. Type quit, exit or stop to end the daemon.",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyIntervalFlag(cmd, cfg)
		return runDaemon(cmd, true)
	},
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the draft daemon without a terminal",
	Long:  "Runs the Gmail poller, the Telegram channel and the status server without reading standard input.",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyIntervalFlag(cmd, cfg)
		return runDaemon(cmd, false)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(gatewayCmd)

	for _, c := range []*cobra.Command{runCmd, gatewayCmd} {
		c.Flags().IntVar(&gmailInterval, "gmail-interval", config.DefaultPollIntervalSeconds, "seconds between Gmail checks, 0 disables polling")
	}
}

// applyIntervalFlag lets --gmail-interval override gmail.poll_interval_seconds.
func applyIntervalFlag(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("gmail-interval") {
		cfg.Gmail.PollIntervalSeconds = max(0, gmailInterval)
	}
}

func runDaemon(cmd *cobra.Command, interactive bool) error {
	log := slog.Default().With("component", "cmd.gateway")

	adapters, err := enabledAdapters(cfg, log)
	if err != nil {
		return err
	}
	if interactive {
		adapters = append([]channel.Adapter{stdin.NewAdapter(cmd.InOrStdin(), cmd.OutOrStdout(), log)}, adapters...)
	}
	if len(adapters) == 0 && !pollingEnabled(cfg) {
		return errors.New("nothing to run: no channels are enabled and Gmail polling is off")
	}

	a, err := newApp(cfg, cmd.OutOrStdout(), slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := gateway.NewService(cfg, a.instance, a.generator, adapters, log)
	if err != nil {
		return fmt.Errorf("initialize gateway service: %w", err)
	}
	svc.SetRenderer(stdin.ChannelName, report.Card)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	log.Info("Daemon starting",
		"channels", enabledChannelNames(adapters),
		"provider", a.providerName(),
		"gmail_interval_seconds", cfg.Gmail.PollIntervalSeconds,
		"drafts_dir", a.draftsDir(),
	)
	if err := svc.Run(ctx); err != nil {
		log.Error("Daemon failed", "error", err)
		return err
	}
	log.Info("Daemon stopped")
	return nil
}

func pollingEnabled(cfg *config.Config) bool {
	return cfg.Gmail.PollIntervalSeconds > 0 && cfg.Gmail.HasCredentials()
}

func enabledAdapters(cfg *config.Config, log *slog.Logger) ([]channel.Adapter, error) {
	adapters := make([]channel.Adapter, 0, 1)

	if cfg.Channels.Telegram.Enabled {
		adapter, err := telegram.NewAdapter(cfg.Channels.Telegram, log)
		if err != nil {
			return nil, fmt.Errorf("configure %s channel: %w", telegram.ChannelName, err)
		}
		adapters = append(adapters, adapter)
	}

	return adapters, nil
}

func enabledChannelNames(adapters []channel.Adapter) string {
	names := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		names = append(names, adapter.Name())
	}

	return strings.Join(names, ",")
}

