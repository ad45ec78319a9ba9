package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"draftflow/pkg/agent"
	"draftflow/pkg/bus"
	"draftflow/pkg/config"
	"draftflow/pkg/corpus"
	"draftflow/pkg/provider"
	"draftflow/pkg/report"
	"draftflow/pkg/source"
	"draftflow/pkg/store"
	"draftflow/pkg/workflow"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg       *config.Config
	generator *provider.Generator
	files     *store.FileSink
	history   *store.SQLite
	graph     *workflow.Graph
	bus       *bus.MessageBus
	instance  *agent.Instance
}

// newApp wires the workflow. Draft summaries from the persist step go to
// draftReport, which may be nil.
func newApp(cfg *config.Config, draftReport io.Writer, log *slog.Logger) (*app, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	a := &app{
		cfg:       cfg,
		generator: provider.NewGenerator(cfg),
		bus:       bus.NewMessageBus(),
	}

	var sinks store.Multi
	if !cfg.Storage.DisableFiles {
		files, err := store.NewFileSink(cfg.Storage.DraftsDir)
		if err != nil {
			return nil, fmt.Errorf("open drafts directory: %w", err)
		}
		a.files = files
		sinks = append(sinks, files)
	}
	if !cfg.Storage.DisableHistory {
		history, err := store.NewSQLite(cfg.Storage.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open run history: %w", err)
		}
		a.history = history
		sinks = append(sinks, history)
	}

	graph, err := workflow.New(workflow.Deps{
		Source:       source.New(cfg.Gmail),
		LLM:          a.generator,
		Corpus:       corpus.New(),
		Sink:         sinks,
		Report:       draftReport,
		FallbackText: cfg.LLM.FallbackText,
		Logger:       log,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build workflow: %w", err)
	}
	a.graph = graph

	opts := []agent.Option{
		agent.WithBus(a.bus),
		agent.WithSummarizer(report.Plain),
		agent.WithLogger(log),
	}
	if a.history != nil {
		opts = append(opts, agent.WithHistory(a.history))
	}
	a.instance = agent.New(graph, opts...)

	return a, nil
}

func (a *app) draftsDir() string {
	if a.files == nil {
		return ""
	}
	return a.files.Dir()
}

func (a *app) providerName() string {
	if name := strings.TrimSpace(a.cfg.LLM.Provider); name != "" {
		return name
	}
	return config.DefaultProvider
}

func (a *app) Close() {
	a.bus.Close()
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			slog.Default().Warn("Failed to close run history", "error", err)
		}
	}
}
