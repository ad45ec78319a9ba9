package workflow

import "fmt"

// RouteAfterReceive continues to classification when a message arrived.
func RouteAfterReceive(s State) (StepID, error) {
	if s.InputMessage == nil {
		return StepNoOp, nil
	}
	return StepClassify, nil
}

// RouteAfterRetrieve selects the draft step for the classified action.
func RouteAfterRetrieve(s State) (StepID, error) {
	switch s.ActionType {
	case ActionEmailReply:
		return StepGmailDraft, nil
	case ActionScheduleMeeting:
		return StepMeetingDraft, nil
	case ActionNoOp, ActionUnknown:
		return StepNoOp, nil
	case "":
		return "", ErrMissingAction
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s.ActionType)
	}
}
