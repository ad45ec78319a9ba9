package workflow

import (
	"context"
	"fmt"
	"strings"
)

const (
	emailReplyConfidence = 0.9
	defaultConfidence    = 1.0

	noOpMessage = "No action required for this input"
	noOpReason  = "Not classified as any action"

	contentPreviewLimit = 100
)

// Receive asks the message source for the run's input. An empty gmail
// mailbox halts the run; other modes without a message continue with no input.
func (st *Steps) Receive(ctx context.Context, s State) (State, error) {
	mode := s.InputMode
	if mode == "" {
		mode = ModeMock
	}

	msg, err := st.deps.Source.Fetch(ctx, mode, s.Command)
	if err != nil {
		return s, fmt.Errorf("fetch %s message: %w", mode, err)
	}
	if msg == nil {
		if mode == ModeGmail {
			st.log.Info("No new messages found", "mode", string(mode))
			return s, ErrHalt
		}
		st.log.Info("No input message received", "mode", string(mode))
		return s, nil
	}

	received := *msg
	s.InputMessage = &received
	st.log.Info("Received message",
		"input_type", string(received.InputType),
		"source", received.Source,
		"sender", received.Sender,
		"subject", received.Subject,
		"content", preview(received.Body, contentPreviewLimit),
	)

	return s, nil
}

// Classify sets the action type from the message origin. LLM failures fall
// back to no_op and are never returned.
func (st *Steps) Classify(ctx context.Context, s State) (State, error) {
	if s.InputMessage == nil {
		return s, ErrMissingInput
	}

	msg := *s.InputMessage
	var (
		action     ActionType
		confidence float64
	)

	switch Mode(msg.Source) {
	case ModeGmail:
		action, confidence = st.classifyEmail(ctx, msg)
	case ModeCLI:
		action, confidence = st.classifyCommand(ctx, msg)
	default:
		action, confidence = ActionNoOp, defaultConfidence
	}

	s.ActionType = action
	s.ActionConfidence = float64Ptr(confidence)
	st.log.Info("Classified message", "source", msg.Source, "action", string(action), "confidence", confidence)

	return s, nil
}

func (st *Steps) classifyEmail(ctx context.Context, msg Message) (ActionType, float64) {
	response, err := st.deps.LLM.Generate(ctx, classifyEmailPrompt(msg))
	if err != nil {
		st.log.Warn("LLM classification failed, falling back to no_op", "error", err)
		return ActionNoOp, defaultConfidence
	}

	if strings.Contains(strings.ToUpper(response), "EMAIL_REPLY") {
		return ActionEmailReply, emailReplyConfidence
	}
	return ActionNoOp, defaultConfidence
}

// classifyCommand consults the LLM but does not yet act on its answer;
// operator commands resolve to no_op until calendar setup is supported.
func (st *Steps) classifyCommand(ctx context.Context, msg Message) (ActionType, float64) {
	response, err := st.deps.LLM.Generate(ctx, classifyCommandPrompt(msg))
	if err != nil {
		st.log.Warn("LLM classification failed, falling back to no_op", "error", err)
		return ActionNoOp, defaultConfidence
	}

	st.log.Debug("Command classification response ignored", "response", preview(response, contentPreviewLimit))
	return ActionNoOp, defaultConfidence
}

// RetrieveContext fills retrieved_context from the corpus. no_op runs get an
// empty context without a search.
func (st *Steps) RetrieveContext(_ context.Context, s State) (State, error) {
	if s.InputMessage == nil {
		return s, ErrMissingInput
	}
	if s.ActionType == "" {
		return s, ErrMissingAction
	}

	if s.ActionType == ActionNoOp {
		s.RetrievedContext = []string{}
		st.log.Debug("Skipping context retrieval for no_op")
		return s, nil
	}

	query := s.InputMessage.Body
	if s.ActionType == ActionEmailReply {
		query = s.InputMessage.Subject + " " + s.InputMessage.Body
	}

	s.RetrievedContext = dedupe(st.deps.Corpus.Search(query, s.ActionType))
	st.log.Info("Retrieved context", "action", string(s.ActionType), "items", len(s.RetrievedContext))

	return s, nil
}

// NoOp records that the input needs no action.
func (st *Steps) NoOp(_ context.Context, s State) (State, error) {
	if s.Result != nil {
		return s, ErrResultConflict
	}

	s.RetrievedContext = []string{}
	s.Result = NewNoOpResult(NoOpOutcome{Message: noOpMessage, Reason: noOpReason})
	st.log.Info("No action required")

	return s, nil
}

// Persist reports the draft and hands it to the sink. Sink failures are logged
// and do not fail the run.
func (st *Steps) Persist(ctx context.Context, s State) (State, error) {
	if s.Result == nil {
		return s, ErrMissingResult
	}

	at := st.deps.Now()
	if st.deps.Report != nil {
		if _, err := fmt.Fprint(st.deps.Report, DraftSummary(*s.Result, at)); err != nil {
			st.log.Warn("Failed to write draft summary", "error", err)
		}
	}

	if st.deps.Sink == nil {
		return s, nil
	}
	if err := st.deps.Sink.Save(ctx, *s.Result, at); err != nil {
		st.log.Warn("Failed to persist draft", "result_type", string(s.Result.Type()), "error", err)
		return s, nil
	}
	st.log.Info("Draft persisted", "result_type", string(s.Result.Type()))

	return s, nil
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func preview(text string, limit int) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "..."
}
