package agent

import (
	"context"
	"errors"
	"slices"
	"sync"

	"draftflow/pkg/store"
)

// DefaultMemoryLimit is how many runs Memory keeps.
const DefaultMemoryLimit = 100

// Memory keeps the most recent runs in process. It satisfies store.History
// and backs the status endpoints when SQLite history is disabled.
type Memory struct {
	mu    sync.RWMutex
	limit int
	runs  []store.Run
}

func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &Memory{limit: limit}
}

// RecordRun stores run, replacing an earlier record with the same id. The
// oldest run is evicted once the limit is reached.
func (m *Memory) RecordRun(_ context.Context, run store.Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	run = cloneRun(run)

	m.mu.Lock()
	defer m.mu.Unlock()

	if idx := slices.IndexFunc(m.runs, func(r store.Run) bool { return r.ID == run.ID }); idx >= 0 {
		m.runs[idx] = run
		return nil
	}

	m.runs = append(m.runs, run)
	if over := len(m.runs) - m.limit; over > 0 {
		m.runs = slices.Delete(m.runs, 0, over)
	}
	return nil
}

func (m *Memory) GetRun(_ context.Context, id string) (*store.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, run := range m.runs {
		if run.ID == id {
			out := cloneRun(run)
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

// ListRuns returns up to limit runs, newest first.
func (m *Memory) ListRuns(_ context.Context, limit int) ([]store.Run, error) {
	return m.List(limit), nil
}

// List returns up to limit runs, newest first. A non-positive limit returns all.
func (m *Memory) List(limit int) []store.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.runs) {
		limit = len(m.runs)
	}

	out := make([]store.Run, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, cloneRun(m.runs[i]))
	}
	return out
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = nil
}

func cloneRun(run store.Run) store.Run {
	if run.State != nil {
		state := run.State.Clone()
		run.State = &state
	}
	return run
}
