package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Source acquires the message for a run. A nil message with a nil error means
// nothing is available.
type Source interface {
	Fetch(ctx context.Context, mode Mode, command string) (*Message, error)
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Corpus returns reference snippets relevant to a query.
type Corpus interface {
	Search(query string, hint ActionType) []string
}

// Sink stores a finished draft.
type Sink interface {
	Save(ctx context.Context, result Result, at time.Time) error
}

// Deps bundles the collaborators used by the steps.
type Deps struct {
	Source Source
	LLM    Generator
	Corpus Corpus

	// Sink and Report are optional.
	Sink   Sink
	Report io.Writer

	// FallbackText replaces generated text when the LLM call fails.
	FallbackText string
	Now          func() time.Time
	Logger       *slog.Logger
}

// Steps holds the step functions of the pipeline.
type Steps struct {
	deps Deps
	log  *slog.Logger
}

// NewSteps validates deps and returns the step set.
func NewSteps(deps Deps) (*Steps, error) {
	if deps.Source == nil {
		return nil, errors.New("message source is required")
	}
	if deps.LLM == nil {
		return nil, errors.New("llm generator is required")
	}
	if deps.Corpus == nil {
		return nil, errors.New("context corpus is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if strings.TrimSpace(deps.FallbackText) == "" {
		deps.FallbackText = DefaultFallbackText
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Steps{deps: deps, log: log.With("component", "workflow.steps")}, nil
}

// DefaultFallbackText is substituted for generated text when no backend answers.
const DefaultFallbackText = "Dear John,\n\n" +
	"Thank you for reaching out regarding the system outage that occurred last Tuesday.\n" +
	"Best regards,\n" +
	"Technical Support Team"

// generate calls the LLM and substitutes the fallback text on failure.
// Cancellation of ctx is returned as a fault.
func (st *Steps) generate(ctx context.Context, step StepID, prompt string) (string, error) {
	text, err := st.deps.LLM.Generate(ctx, prompt)
	if err == nil {
		return text, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	st.log.Warn("LLM generation failed, using fallback text", "step", string(step), "error", err)
	return st.deps.FallbackText, nil
}
