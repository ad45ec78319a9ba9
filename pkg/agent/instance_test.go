package agent

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftflow/pkg/bus"
	"draftflow/pkg/store"
	"draftflow/pkg/workflow"
)

var fixedStart = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// stepGraph builds a single-step graph around step.
func stepGraph(step workflow.StepFunc) *workflow.Graph {
	return workflow.NewGraph(workflow.StepReceive).AddStep(workflow.StepReceive, step, workflow.END)
}

func draftStep(_ context.Context, s workflow.State) (workflow.State, error) {
	s.Result = workflow.NewEmailResult(workflow.EmailDraft{To: "customer@example.com", Subject: "Re: outage", Body: s.Command})
	return s, nil
}

func newTestInstance(graph *workflow.Graph, opts ...Option) *Instance {
	inst := New(graph, opts...)
	var seq atomic.Int64
	inst.newID = func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }
	inst.now = func() time.Time { return fixedStart }
	return inst
}

type recordingHistory struct {
	runs []store.Run
	err  error
}

func (h *recordingHistory) RecordRun(_ context.Context, run store.Run) error {
	h.runs = append(h.runs, run)
	return h.err
}

func (h *recordingHistory) GetRun(context.Context, string) (*store.Run, error) {
	return nil, store.ErrNotFound
}

func (h *recordingHistory) ListRuns(context.Context, int) ([]store.Run, error) {
	return h.runs, nil
}

func TestExecuteCompletesRun(t *testing.T) {
	history := &recordingHistory{}
	inst := newTestInstance(stepGraph(draftStep), WithHistory(history))

	run, err := inst.Execute(context.Background(), bus.Trigger{Mode: "cli", Command: "reply to the customer", Channel: "stdin"})
	require.NoError(t, err)

	assert.Equal(t, "id-1", run.ID)
	assert.Equal(t, store.RunCompleted, run.Status)
	assert.Equal(t, workflow.ModeCLI, run.Mode)
	assert.Equal(t, "stdin", run.Trigger)
	require.NotNil(t, run.State)
	require.NotNil(t, run.State.Result)
	assert.Equal(t, "reply to the customer", run.State.Result.Email.Body)
	assert.Equal(t, fixedStart, run.FinishedAt)

	require.Len(t, history.runs, 2)
	assert.Equal(t, store.RunRunning, history.runs[0].Status)
	assert.Equal(t, store.RunCompleted, history.runs[1].Status)

	recent, err := inst.Recent().GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RunCompleted, recent.Status)
}

func TestExecuteTagsContextWithRunID(t *testing.T) {
	var seen string
	inst := newTestInstance(stepGraph(func(ctx context.Context, s workflow.State) (workflow.State, error) {
		seen = store.RunIDFromContext(ctx)
		return s, nil
	}))

	run, err := inst.Execute(context.Background(), bus.Trigger{Mode: "mock"})
	require.NoError(t, err)
	assert.Equal(t, run.ID, seen)
}

func TestExecuteRecordsHalt(t *testing.T) {
	inst := newTestInstance(stepGraph(func(_ context.Context, s workflow.State) (workflow.State, error) {
		return s, workflow.ErrHalt
	}))

	run, err := inst.Execute(context.Background(), bus.Trigger{Mode: "gmail"})
	require.NoError(t, err)
	assert.Equal(t, store.RunHalted, run.Status)
	assert.Empty(t, run.Error)
}

func TestExecuteRecordsFailure(t *testing.T) {
	boom := errors.New("imap down")
	inst := newTestInstance(stepGraph(func(_ context.Context, s workflow.State) (workflow.State, error) {
		return s, boom
	}))

	run, err := inst.Execute(context.Background(), bus.Trigger{Mode: "gmail"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, store.RunFailed, run.Status)
	assert.Contains(t, run.Error, "imap down")

	recent := inst.Recent().List(0)
	require.Len(t, recent, 1)
	assert.Equal(t, store.RunFailed, recent[0].Status)
}

func TestExecuteRejectsUnknownMode(t *testing.T) {
	inst := newTestInstance(stepGraph(draftStep))

	_, err := inst.Execute(context.Background(), bus.Trigger{Mode: "fax"})
	require.ErrorIs(t, err, workflow.ErrUnknownMode)
	assert.Empty(t, inst.Recent().List(0))
}

func TestExecuteHistoryFailureDoesNotFailRun(t *testing.T) {
	inst := newTestInstance(stepGraph(draftStep), WithHistory(&recordingHistory{err: errors.New("disk full")}))

	run, err := inst.Execute(context.Background(), bus.Trigger{Mode: "cli", Command: "hello"})
	require.NoError(t, err)
	assert.Equal(t, store.RunCompleted, run.Status)
}

func TestExecutePublishesLifecycleEvents(t *testing.T) {
	mb := bus.NewMessageBus()
	defer mb.Close()

	events, unsubscribe := mb.SubscribeEvents(context.Background(), 8)
	defer unsubscribe()

	inst := newTestInstance(stepGraph(draftStep),
		WithBus(mb),
		WithSummarizer(func(run store.Run) string { return "summary of " + run.ID }),
	)

	run, err := inst.Execute(context.Background(), bus.Trigger{ID: "t-1", Mode: "cli", Command: "hi", Channel: "telegram", ChatID: "42"})
	require.NoError(t, err)

	started := <-events
	assert.Equal(t, bus.EventRunStarted, started.Type)
	assert.Equal(t, run.ID, started.RunID)
	assert.Empty(t, started.Summary)

	finished := <-events
	assert.Equal(t, bus.EventRunCompleted, finished.Type)
	assert.Equal(t, "t-1", finished.TriggerID)
	assert.Equal(t, "42", finished.ChatID)
	assert.Equal(t, string(workflow.ResultEmail), finished.Result)
	assert.Equal(t, "summary of "+run.ID, finished.Summary)
}

func TestExecuteCancelledRunStillRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inst := newTestInstance(stepGraph(func(ctx context.Context, s workflow.State) (workflow.State, error) {
		cancel()
		return s, ctx.Err()
	}))

	run, err := inst.Execute(ctx, bus.Trigger{Mode: "cli", Command: "x"})
	require.ErrorIs(t, err, context.Canceled)

	recent, getErr := inst.Recent().GetRun(context.Background(), run.ID)
	require.NoError(t, getErr)
	assert.Equal(t, store.RunFailed, recent.Status)
}

func TestSubmitWithoutBusExecutesDirectly(t *testing.T) {
	inst := newTestInstance(stepGraph(draftStep))

	run, err := inst.Submit(context.Background(), bus.Trigger{Mode: "cli", Command: "direct"})
	require.NoError(t, err)
	assert.Equal(t, store.RunCompleted, run.Status)
}

func TestEnqueueRequiresBus(t *testing.T) {
	inst := newTestInstance(stepGraph(draftStep))
	assert.Error(t, inst.Enqueue(context.Background(), bus.Trigger{Mode: "cli"}))
}

func TestSubmitOnClosedBus(t *testing.T) {
	mb := bus.NewMessageBus()
	mb.Close()

	inst := newTestInstance(stepGraph(draftStep), WithBus(mb))
	_, err := inst.Submit(context.Background(), bus.Trigger{Mode: "cli"})
	assert.ErrorIs(t, err, ErrBusClosed)
}
