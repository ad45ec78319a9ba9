// Package store persists finished drafts and run history.
package store

import (
	"context"
	"errors"
	"time"

	"draftflow/pkg/workflow"
)

// ErrNotFound is returned when a run or draft id is unknown.
var ErrNotFound = errors.New("not found")

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunHalted    RunStatus = "halted"
	RunFailed    RunStatus = "failed"
)

// Run is one recorded workflow execution.
type Run struct {
	ID         string          `json:"id"`
	Mode       workflow.Mode   `json:"mode"`
	Command    string          `json:"command,omitempty"`
	Trigger    string          `json:"trigger,omitempty"`
	Status     RunStatus       `json:"status"`
	State      *workflow.State `json:"state,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at,omitzero"`
}

// Draft is one persisted result.
type Draft struct {
	ID        string              `json:"id"`
	RunID     string              `json:"run_id,omitempty"`
	Type      workflow.ResultType `json:"type"`
	Result    workflow.Result     `json:"result"`
	CreatedAt time.Time           `json:"created_at"`
}

// History records runs and serves them back to status endpoints.
type History interface {
	RecordRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

type runIDKey struct{}

// WithRunID tags ctx with the id of the run saving drafts through it.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run id set by WithRunID.
func RunIDFromContext(ctx context.Context) string {
	runID, _ := ctx.Value(runIDKey{}).(string)
	return runID
}
