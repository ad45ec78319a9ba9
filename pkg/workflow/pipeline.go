package workflow

import "context"

// New declares the draft pipeline over deps:
//
//	receive -> classify -> retrieve_context -> gmail_draft   -> persist -> END
//	                                        -> meeting_draft -> persist -> END
//	                                        -> no_op -> END
//	receive (no message) -> no_op -> END
func New(deps Deps) (*Graph, error) {
	steps, err := NewSteps(deps)
	if err != nil {
		return nil, err
	}

	graph := NewGraph(StepReceive).WithLogger(deps.Logger)
	graph.AddRoutedStep(StepReceive, steps.Receive, RouteAfterReceive, StepClassify, StepNoOp)
	graph.AddStep(StepClassify, steps.Classify, StepRetrieveContext)
	graph.AddRoutedStep(StepRetrieveContext, steps.RetrieveContext, RouteAfterRetrieve, StepGmailDraft, StepMeetingDraft, StepNoOp)
	graph.AddStep(StepGmailDraft, steps.GmailDraft, StepPersist)
	graph.AddStep(StepMeetingDraft, steps.MeetingDraft, StepPersist)
	graph.AddStep(StepNoOp, steps.NoOp, END)
	graph.AddStep(StepPersist, steps.Persist, END)

	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return graph, nil
}

// Run executes one run of g for the given mode and command.
func Run(ctx context.Context, g *Graph, mode Mode, command string) (Outcome, error) {
	return g.Execute(ctx, NewState(mode, command))
}
