// Package workflow implements the draft pipeline: a statically declared graph
// of named steps threading one State record from message intake to a
// persisted draft.
//
// Steps are plain functions over State. Routers inspect the State a step
// returned and pick the next step from the candidates declared for it.
// External systems (message source, LLM backend, context corpus, draft
// storage) are reached only through the interfaces in deps.go.
package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrHalt is returned by a step that has nothing to process. It stops the
	// run without invoking any further step and is not reported as a failure.
	ErrHalt = errors.New("workflow halted: no further processing")

	ErrMissingInput   = errors.New("no input message in state")
	ErrMissingAction  = errors.New("no action type in state")
	ErrMissingResult  = errors.New("no result to save")
	ErrUnknownStep    = errors.New("unknown step")
	ErrUnknownRoute   = errors.New("router returned undeclared route")
	ErrUnknownAction  = errors.New("unknown action type")
	ErrUnknownMode    = errors.New("unknown input mode")
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrInvalidState   = errors.New("invalid state record")
	ErrInvalidGraph   = errors.New("invalid workflow graph")
	ErrResultConflict = errors.New("result already set")
)

// StepError wraps a fault raised by a step or its router.
type StepError struct {
	Step StepID
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
