// Package agent executes workflow runs for triggers raised by operator
// channels and the mailbox poller.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"draftflow/pkg/bus"
	"draftflow/pkg/logger"
	"draftflow/pkg/store"
	"draftflow/pkg/workflow"
)

// DefaultMaxConcurrentRuns bounds how many runs the worker loop executes at once.
const DefaultMaxConcurrentRuns = 4

// ErrBusClosed is returned when a trigger cannot be queued.
var ErrBusClosed = errors.New("trigger queue is closed")

// Summarizer renders a finished run for run events.
type Summarizer func(store.Run) string

// Instance executes workflow runs. Each run gets its own id and State; runs
// may execute concurrently.
type Instance struct {
	graph         *workflow.Graph
	bus           *bus.MessageBus
	history       store.History
	recent        *Memory
	summarize     Summarizer
	maxConcurrent int
	newID         func() string
	now           func() time.Time
	log           *slog.Logger

	mu      sync.Mutex
	waiters map[string]chan runResult

	looping atomic.Bool
	active  atomic.Int64
}

type runResult struct {
	run store.Run
	err error
}

// Option configures an Instance.
type Option func(*Instance)

// WithBus routes Submit through the trigger queue and publishes run events.
func WithBus(mb *bus.MessageBus) Option {
	return func(i *Instance) {
		i.bus = mb
	}
}

// WithHistory records every run in history in addition to the in-process ring.
func WithHistory(history store.History) Option {
	return func(i *Instance) {
		i.history = history
	}
}

// WithSummarizer attaches a rendered summary to terminal run events.
func WithSummarizer(summarize Summarizer) Option {
	return func(i *Instance) {
		i.summarize = summarize
	}
}

// WithMaxConcurrentRuns bounds the worker loop.
func WithMaxConcurrentRuns(n int) Option {
	return func(i *Instance) {
		if n > 0 {
			i.maxConcurrent = n
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(i *Instance) {
		if log != nil {
			i.log = log
		}
	}
}

func New(graph *workflow.Graph, opts ...Option) *Instance {
	i := &Instance{
		graph:         graph,
		recent:        NewMemory(DefaultMemoryLimit),
		maxConcurrent: DefaultMaxConcurrentRuns,
		newID:         uuid.NewString,
		now:           time.Now,
		log:           slog.Default(),
		waiters:       make(map[string]chan runResult),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.log = i.log.With(logger.KeyComponent, "agent.instance")
	return i
}

// Recent returns the in-process ring of finished and in-flight runs.
func (i *Instance) Recent() *Memory {
	return i.recent
}

// History returns the store runs are recorded in: the configured history,
// or the in-process ring.
func (i *Instance) History() store.History {
	if i.history != nil {
		return i.history
	}
	return i.recent
}

// Active returns the number of runs currently executing.
func (i *Instance) Active() int {
	return int(i.active.Load())
}

// Execute runs the workflow once for trigger. The returned Run always
// describes the run, including on failure.
func (i *Instance) Execute(ctx context.Context, trigger bus.Trigger) (store.Run, error) {
	mode, err := workflow.ParseMode(strings.TrimSpace(trigger.Mode))
	if err != nil {
		return store.Run{}, err
	}

	runID := i.newID()
	run := store.Run{
		ID:        runID,
		Mode:      mode,
		Command:   trigger.Command,
		Trigger:   trigger.Channel,
		Status:    store.RunRunning,
		StartedAt: i.now().UTC(),
	}

	log := i.log.With(logger.KeyRunID, runID, "mode", string(mode), "trigger", trigger.Channel)
	log.Info("Run started", "command", trigger.Command)

	i.active.Add(1)
	defer i.active.Add(-1)

	// Bookkeeping outlives cancellation of the run itself.
	persistCtx := context.WithoutCancel(ctx)
	i.record(persistCtx, log, run)
	i.publish(persistCtx, trigger, run, bus.EventRunStarted)

	runCtx := store.WithRunID(ctx, runID)
	runCtx = workflow.ContextWithLogger(runCtx, slog.Default().With(logger.KeyRunID, runID))
	outcome, runErr := workflow.Run(runCtx, i.graph, mode, trigger.Command)

	state := outcome.State
	run.State = &state
	run.FinishedAt = i.now().UTC()
	duration := run.FinishedAt.Sub(run.StartedAt).Milliseconds()

	eventType := bus.EventRunCompleted
	switch {
	case runErr != nil:
		run.Status = store.RunFailed
		run.Error = runErr.Error()
		eventType = bus.EventRunFailed
		log.Error("Run failed", "error", runErr, "command", trigger.Command, "chat_id", trigger.ChatID, "duration_ms", duration)
	case outcome.Halted:
		run.Status = store.RunHalted
		eventType = bus.EventRunHalted
		log.Info("Run halted", "halted_at", string(outcome.HaltedAt), "duration_ms", duration)
	default:
		run.Status = store.RunCompleted
		log.Info("Run completed", "result", resultType(run), "duration_ms", duration)
	}

	i.record(persistCtx, log, run)
	i.publish(persistCtx, trigger, run, eventType)

	if runErr != nil {
		return run, fmt.Errorf("run %s: %w", runID, runErr)
	}
	return run, nil
}

// Submit executes trigger and waits for its run. With a bus the trigger is
// queued for the worker loop; otherwise it executes on the caller's goroutine.
// Cancelling ctx stops the wait, not a queued run.
func (i *Instance) Submit(ctx context.Context, trigger bus.Trigger) (store.Run, error) {
	if i.bus == nil {
		return i.Execute(ctx, trigger)
	}

	if trigger.ID == "" {
		trigger.ID = i.newID()
	}

	resultCh := make(chan runResult, 1)
	i.mu.Lock()
	i.waiters[trigger.ID] = resultCh
	i.mu.Unlock()

	if !i.bus.PublishTrigger(ctx, trigger) {
		i.dropWaiter(trigger.ID)
		if err := ctx.Err(); err != nil {
			return store.Run{}, err
		}
		return store.Run{}, ErrBusClosed
	}

	select {
	case <-ctx.Done():
		i.dropWaiter(trigger.ID)
		return store.Run{}, ctx.Err()
	case result := <-resultCh:
		return result.run, result.err
	}
}

// Enqueue queues trigger without waiting for its run.
func (i *Instance) Enqueue(ctx context.Context, trigger bus.Trigger) error {
	if i.bus == nil {
		return errors.New("no trigger queue configured")
	}
	if trigger.ID == "" {
		trigger.ID = i.newID()
	}
	if !i.bus.PublishTrigger(ctx, trigger) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrBusClosed
	}
	return nil
}

func (i *Instance) deliver(triggerID string, result runResult) {
	i.mu.Lock()
	resultCh, ok := i.waiters[triggerID]
	delete(i.waiters, triggerID)
	i.mu.Unlock()

	if ok {
		resultCh <- result
	}
}

func (i *Instance) dropWaiter(triggerID string) {
	i.mu.Lock()
	delete(i.waiters, triggerID)
	i.mu.Unlock()
}

func (i *Instance) record(ctx context.Context, log *slog.Logger, run store.Run) {
	if err := i.recent.RecordRun(ctx, run); err != nil {
		log.Warn("Failed to record run in memory", "error", err)
	}
	if i.history == nil {
		return
	}
	if err := i.history.RecordRun(ctx, run); err != nil {
		log.Warn("Failed to record run history", "status", string(run.Status), "error", err)
	}
}

func (i *Instance) publish(ctx context.Context, trigger bus.Trigger, run store.Run, eventType bus.EventType) {
	if i.bus == nil {
		return
	}

	event := bus.Event{
		Type:      eventType,
		RunID:     run.ID,
		TriggerID: trigger.ID,
		Mode:      string(run.Mode),
		Channel:   trigger.Channel,
		ChatID:    trigger.ChatID,
		Result:    resultType(run),
		Error:     run.Error,
	}
	if event.Terminal() && i.summarize != nil {
		event.Summary = i.summarize(run)
	}

	i.bus.PublishEvent(ctx, event)
}

func resultType(run store.Run) string {
	if run.State == nil || run.State.Result == nil {
		return ""
	}
	return string(run.State.Result.Type())
}
