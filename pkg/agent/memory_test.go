package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftflow/pkg/store"
	"draftflow/pkg/workflow"
)

func TestMemoryRecordAndGet(t *testing.T) {
	mem := NewMemory(10)
	ctx := context.Background()

	state := workflow.NewState(workflow.ModeCLI, "schedule a meeting")
	require.NoError(t, mem.RecordRun(ctx, store.Run{ID: "r1", Status: store.RunRunning, State: &state}))
	require.NoError(t, mem.RecordRun(ctx, store.Run{ID: "r1", Status: store.RunCompleted, State: &state}))

	got, err := mem.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, store.RunCompleted, got.Status)
	assert.Len(t, mem.List(0), 1)

	// Returned runs are copies.
	got.State.Command = "changed"
	again, err := mem.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "schedule a meeting", again.State.Command)
}

func TestMemoryGetUnknownRun(t *testing.T) {
	_, err := NewMemory(0).GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryRequiresID(t *testing.T) {
	assert.Error(t, NewMemory(0).RecordRun(context.Background(), store.Run{}))
}

func TestMemoryEvictsOldestAndListsNewestFirst(t *testing.T) {
	mem := NewMemory(3)
	ctx := context.Background()
	for i := range 5 {
		require.NoError(t, mem.RecordRun(ctx, store.Run{ID: fmt.Sprintf("r%d", i)}))
	}

	runs, err := mem.ListRuns(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(runs))
	for _, run := range runs {
		ids = append(ids, run.ID)
	}
	assert.Equal(t, []string{"r4", "r3", "r2"}, ids)

	assert.Len(t, mem.List(2), 2)

	mem.Clear()
	assert.Empty(t, mem.List(0))
}
