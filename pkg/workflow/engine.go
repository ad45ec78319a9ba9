package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// StepID names a step in the graph.
type StepID string

const (
	StepReceive         StepID = "receive"
	StepClassify        StepID = "classify"
	StepRetrieveContext StepID = "retrieve_context"
	StepGmailDraft      StepID = "gmail_draft"
	StepMeetingDraft    StepID = "meeting_draft"
	StepNoOp            StepID = "no_op"
	StepPersist         StepID = "persist"

	// END is the successor of terminal steps.
	END StepID = "__end__"
)

const defaultStepLimit = 64

// StepFunc transforms the state. Returning ErrHalt stops the run.
type StepFunc func(ctx context.Context, s State) (State, error)

// RouterFunc picks the next step from the state a step returned.
type RouterFunc func(s State) (StepID, error)

type node struct {
	step   StepFunc
	next   StepID
	router RouterFunc
	routes []StepID
}

// Graph is a statically declared set of steps and their successors.
type Graph struct {
	entry StepID
	nodes map[StepID]node
	limit int
	log   *slog.Logger
}

// Outcome is what Execute returns for a run that did not fault.
type Outcome struct {
	State    State
	Halted   bool
	HaltedAt StepID
	Visited  []StepID
}

// NewGraph creates an empty graph that starts at entry.
func NewGraph(entry StepID) *Graph {
	return &Graph{
		entry: entry,
		nodes: make(map[StepID]node),
		limit: defaultStepLimit,
		log:   slog.Default().With("component", "workflow.engine"),
	}
}

// WithLogger replaces the graph's logger.
func (g *Graph) WithLogger(log *slog.Logger) *Graph {
	if log != nil {
		g.log = log.With("component", "workflow.engine")
	}
	return g
}

// AddStep declares a step with a single static successor.
func (g *Graph) AddStep(id StepID, step StepFunc, next StepID) *Graph {
	g.nodes[id] = node{step: step, next: next}
	return g
}

// AddRoutedStep declares a step whose successor is chosen by router among routes.
func (g *Graph) AddRoutedStep(id StepID, step StepFunc, router RouterFunc, routes ...StepID) *Graph {
	g.nodes[id] = node{step: step, router: router, routes: routes}
	return g
}

// Entry returns the entry step.
func (g *Graph) Entry() StepID {
	return g.entry
}

// Validate checks that every declared successor exists.
func (g *Graph) Validate() error {
	if _, ok := g.nodes[g.entry]; !ok {
		return fmt.Errorf("%w: entry step %q is not declared", ErrInvalidGraph, g.entry)
	}

	for id, n := range g.nodes {
		if n.step == nil {
			return fmt.Errorf("%w: step %q has no function", ErrInvalidGraph, id)
		}

		successors := []StepID{n.next}
		if n.router != nil {
			if len(n.routes) == 0 {
				return fmt.Errorf("%w: step %q has a router but no routes", ErrInvalidGraph, id)
			}
			successors = n.routes
		}

		for _, next := range successors {
			if next == END {
				continue
			}
			if _, ok := g.nodes[next]; !ok {
				return fmt.Errorf("%w: step %q leads to undeclared step %q", ErrInvalidGraph, id, next)
			}
		}
	}

	return nil
}

// Execute runs the graph from its entry step. Step faults are returned as
// *StepError; a halt is reported through Outcome.Halted with a nil error.
func (g *Graph) Execute(ctx context.Context, initial State) (Outcome, error) {
	var visited []StepID
	state := initial
	current := g.entry
	runLog := g.log
	if log, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && log != nil {
		runLog = log.With("component", "workflow.engine")
	}

	for current != END {
		if len(visited) >= g.limit {
			return Outcome{State: state, Visited: visited}, fmt.Errorf("%w: %d steps", ErrStepLimit, g.limit)
		}

		n, ok := g.nodes[current]
		if !ok {
			return Outcome{State: state, Visited: visited}, fmt.Errorf("%w: %s", ErrUnknownStep, current)
		}
		visited = append(visited, current)

		log := runLog.With("step", string(current))
		startedAt := time.Now()
		log.Debug("step started")

		next, err := n.step(ctx, state)
		if errors.Is(err, ErrHalt) {
			log.Info("Workflow halted", "duration_ms", time.Since(startedAt).Milliseconds())
			return Outcome{State: state, Halted: true, HaltedAt: current, Visited: visited}, nil
		}
		if err != nil {
			log.Debug("step failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
			return Outcome{State: state, Visited: visited}, &StepError{Step: current, Err: err}
		}
		log.Debug("step completed", "duration_ms", time.Since(startedAt).Milliseconds())
		state = next

		if n.router == nil {
			current = n.next
			continue
		}

		label, err := n.router(state)
		if err != nil {
			return Outcome{State: state, Visited: visited}, &StepError{Step: current, Err: err}
		}
		if !slices.Contains(n.routes, label) {
			return Outcome{State: state, Visited: visited}, &StepError{
				Step: current,
				Err:  fmt.Errorf("%w: %q", ErrUnknownRoute, label),
			}
		}
		log.Debug("step routed", "next", string(label))
		current = label
	}

	return Outcome{State: state, Visited: visited}, nil
}

type loggerKey struct{}

// ContextWithLogger attaches a run-scoped logger (typically carrying run_id)
// used for step logs.
func ContextWithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}
