package workflow

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeSource struct {
	mu    sync.Mutex
	msg   *Message
	err   error
	modes []Mode
}

func (f *fakeSource) Fetch(_ context.Context, mode Mode, command string) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes = append(f.modes, mode)
	if f.err != nil {
		return nil, f.err
	}
	if f.msg == nil {
		return nil, nil
	}
	msg := *f.msg
	if mode == ModeCLI {
		msg.Body = command
	}
	return &msg, nil
}

type fakeLLM struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeCorpus struct {
	snippets []string
	queries  []string
	hints    []ActionType
}

func (f *fakeCorpus) Search(query string, hint ActionType) []string {
	f.queries = append(f.queries, query)
	f.hints = append(f.hints, hint)
	return f.snippets
}

type fakeSink struct {
	err   error
	saved []Result
	at    []time.Time
}

func (f *fakeSink) Save(_ context.Context, result Result, at time.Time) error {
	f.saved = append(f.saved, result)
	f.at = append(f.at, at)
	return f.err
}

var errBackend = errors.New("backend unavailable")

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestSteps(source Source, llm Generator, corpus Corpus, sink Sink) *Steps {
	steps, err := NewSteps(Deps{
		Source: source,
		LLM:    llm,
		Corpus: corpus,
		Sink:   sink,
		Now:    func() time.Time { return fixedNow },
	})
	if err != nil {
		panic(err)
	}
	return steps
}

func gmailMessage(subject string, body string) *Message {
	return &Message{
		Sender:    "customer@example.com",
		Recipient: "support@company.com",
		Subject:   subject,
		Body:      body,
		Timestamp: "2026-03-14T09:00:00Z",
		InputType: InputEmail,
		Source:    string(ModeGmail),
		MessageID: "<abc123@mail.example.com>",
	}
}
