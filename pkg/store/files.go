package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"draftflow/pkg/workflow"
	"draftflow/pkg/workspace"
)

const (
	fileTimeLayout      = "2006-01-02_15-04-05"
	generatedTimeLayout = "2006-01-02 15:04:05"
	maxNameAttempts     = 100
)

var fileRule = strings.Repeat("-", 40)

// FileSink writes each draft as a human-readable text file.
type FileSink struct {
	guard *workspace.Guard
	log   *slog.Logger
}

// NewFileSink writes drafts below dir, creating it when missing.
func NewFileSink(dir string) (*FileSink, error) {
	guard, err := workspace.NewGuard(dir)
	if err != nil {
		return nil, fmt.Errorf("open drafts dir: %w", err)
	}

	return &FileSink{
		guard: guard,
		log:   slog.Default().With("component", "store.files", "dir", guard.Root()),
	}, nil
}

// Dir returns the absolute drafts directory.
func (s *FileSink) Dir() string {
	return s.guard.Root()
}

// Save implements workflow.Sink. No-op results are skipped.
func (s *FileSink) Save(ctx context.Context, result workflow.Result, at time.Time) error {
	var (
		prefix  string
		content string
	)
	switch result.Type() {
	case workflow.ResultEmail:
		prefix, content = "email_draft", FormatEmail(*result.Email, at)
	case workflow.ResultMeeting:
		prefix, content = "meeting_draft", FormatMeeting(*result.Meeting, at)
	default:
		return nil
	}

	stamp := at.Format(fileTimeLayout)
	for attempt := range maxNameAttempts {
		name := fmt.Sprintf("%s_%s.txt", prefix, stamp)
		if attempt > 0 {
			name = fmt.Sprintf("%s_%s_%d.txt", prefix, stamp, attempt)
		}

		path, err := s.guard.WriteFile(ctx, name, []byte(content), true)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}

		s.log.Info("Draft saved to file", "path", s.guard.RelPath(path), "run_id", RunIDFromContext(ctx))
		return nil
	}

	return fmt.Errorf("no free file name for %s_%s", prefix, stamp)
}

// FormatEmail renders an email draft file.
func FormatEmail(d workflow.EmailDraft, at time.Time) string {
	var b strings.Builder
	b.WriteString("Type: Gmail Email\n")
	fmt.Fprintf(&b, "To: %s\n", d.To)
	fmt.Fprintf(&b, "Subject: %s\n", d.Subject)
	fmt.Fprintf(&b, "Generated: %s\n", at.Format(generatedTimeLayout))
	b.WriteString(fileRule + "\n")
	b.WriteString(d.Body)
	return b.String()
}

// FormatMeeting renders a meeting invitation file.
func FormatMeeting(d workflow.MeetingDraft, at time.Time) string {
	var b strings.Builder
	b.WriteString("Type: Meeting Invitation\n")
	fmt.Fprintf(&b, "Title: %s\n", d.Title)
	fmt.Fprintf(&b, "Participants: %s\n", strings.Join(d.Participants, ", "))
	fmt.Fprintf(&b, "Duration: %s\n", orTBD(d.Duration))
	fmt.Fprintf(&b, "Proposed Time: %s\n", orTBD(d.ProposedTime))
	fmt.Fprintf(&b, "Location: %s\n", orTBD(d.Location))
	fmt.Fprintf(&b, "Generated: %s\n", at.Format(generatedTimeLayout))
	b.WriteString(fileRule + "\n")
	b.WriteString(d.Description)
	return b.String()
}

func orTBD(value string) string {
	if strings.TrimSpace(value) == "" {
		return "TBD"
	}
	return value
}
