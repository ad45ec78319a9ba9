// Package source acquires the inbound message for a run according to the
// input mode.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"draftflow/pkg/config"
	"draftflow/pkg/source/gmail"
	"draftflow/pkg/workflow"
)

// MailFetcher returns the newest unread mailbox message, or nil when none.
type MailFetcher interface {
	Latest(ctx context.Context) (*workflow.Message, error)
}

const (
	slackSender    = "john.smith"
	slackRecipient = "ai-agent"
	slackSubject   = "Direct message"
	slackBody      = "Hey, can you send a quick status update to the #engineering channel about the deployment we did yesterday?\n\n" +
		"Let them know everything went smoothly and the new features are live."

	mockSender    = "support@example.com"
	mockRecipient = "agent@company.com"
	mockSubject   = "System outage follow-up"
	mockBody      = "Please provide an update on the root cause analysis for last week's outage."
)

// Mux dispatches Fetch to the producer for each mode.
type Mux struct {
	mail MailFetcher
	now  func() time.Time
	log  *slog.Logger
}

// Option configures a Mux.
type Option func(*Mux)

// WithMailFetcher replaces the IMAP poller used in gmail mode.
func WithMailFetcher(fetcher MailFetcher) Option {
	return func(m *Mux) {
		m.mail = fetcher
	}
}

// WithClock sets the time source for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Mux) {
		if now != nil {
			m.now = now
		}
	}
}

// New returns a Mux whose gmail mode polls the mailbox in cfg.
func New(cfg config.GmailConfig, opts ...Option) *Mux {
	m := &Mux{
		mail: gmail.New(cfg),
		now:  time.Now,
		log:  slog.Default().With("component", "source.mux"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fetch implements workflow.Source.
func (m *Mux) Fetch(ctx context.Context, mode workflow.Mode, command string) (*workflow.Message, error) {
	m.log.Debug("Fetching message", "mode", string(mode))

	switch mode {
	case workflow.ModeGmail:
		if m.mail == nil {
			return nil, gmail.ErrMissingCredentials
		}
		msg, err := m.mail.Latest(ctx)
		if err != nil {
			return nil, err
		}
		return msg.Sanitize(), nil
	case workflow.ModeCLI:
		msg := &workflow.Message{
			Body:      command,
			Timestamp: m.timestamp(),
			InputType: workflow.InputCommand,
			Source:    string(workflow.ModeCLI),
		}
		return msg.Sanitize(), nil
	case workflow.ModeSlack:
		return &workflow.Message{
			Sender:    slackSender,
			Recipient: slackRecipient,
			Subject:   slackSubject,
			Body:      slackBody,
			Timestamp: m.timestamp(),
			InputType: workflow.InputCommand,
			Source:    string(workflow.ModeSlack),
		}, nil
	case workflow.ModeMock:
		return &workflow.Message{
			Sender:    mockSender,
			Recipient: mockRecipient,
			Subject:   mockSubject,
			Body:      mockBody,
			Timestamp: m.timestamp(),
			InputType: workflow.InputEmail,
			Source:    string(workflow.ModeMock),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", workflow.ErrUnknownMode, mode)
	}
}

func (m *Mux) timestamp() string {
	return m.now().UTC().Format(time.RFC3339)
}
