// Package gmail reads the newest unread INBOX message over IMAP using an
// account address and app password.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"draftflow/pkg/config"
	"draftflow/pkg/workflow"
)

const inbox = "INBOX"

// ErrMissingCredentials is returned when the address or app password is unset.
var ErrMissingCredentials = errors.New("gmail address and app password are required")

// mailbox is the subset of the IMAP client used by Poller.
type mailbox interface {
	Login(username, password string) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Logout() error
}

// DialFunc opens an IMAP session to addr.
type DialFunc func(addr string) (mailbox, error)

func dialTLS(addr string) (mailbox, error) {
	return client.DialTLS(addr, nil)
}

// Poller fetches the latest unread message received within the lookback window.
type Poller struct {
	address  string
	password string
	addr     string
	lookback time.Duration
	dial     DialFunc
	now      func() time.Time
	log      *slog.Logger
}

// New builds a Poller from the gmail config section. Missing credentials are
// reported by Latest, not here.
func New(cfg config.GmailConfig) *Poller {
	addr := strings.TrimSpace(cfg.IMAPAddr)
	if addr == "" {
		addr = config.DefaultIMAPAddr
	}
	lookback := cfg.LookbackMinutes
	if lookback <= 0 {
		lookback = config.DefaultLookbackMinutes
	}

	return &Poller{
		address:  strings.TrimSpace(cfg.Address),
		password: strings.TrimSpace(cfg.AppPassword),
		addr:     addr,
		lookback: time.Duration(lookback) * time.Minute,
		dial:     dialTLS,
		now:      time.Now,
		log:      slog.Default().With("component", "source.gmail"),
	}
}

// Latest returns the newest unread message, or nil when the mailbox holds
// nothing new. Fetching the body marks the message as seen.
func (p *Poller) Latest(ctx context.Context) (*workflow.Message, error) {
	if p.address == "" || p.password == "" {
		return nil, ErrMissingCredentials
	}

	type fetchResult struct {
		msg *workflow.Message
		err error
	}

	done := make(chan fetchResult, 1)
	go func() {
		msg, err := p.fetch()
		done <- fetchResult{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.msg, res.err
	}
}

func (p *Poller) fetch() (*workflow.Message, error) {
	startedAt := time.Now()
	since := p.now().Add(-p.lookback)

	conn, err := p.dial(p.addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", p.addr, err)
	}
	defer func() {
		if err := conn.Logout(); err != nil {
			p.log.Debug("IMAP logout failed", "error", err)
		}
	}()

	if err := conn.Login(p.address, p.password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if _, err := conn.Select(inbox, false); err != nil {
		return nil, fmt.Errorf("select %s: %w", inbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = since

	uids, err := conn.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search unread: %w", err)
	}
	p.log.Debug("Searched mailbox", "since", since.Format(time.DateOnly), "unread", len(uids))
	if len(uids) == 0 {
		return nil, nil
	}

	latest := slices.Max(uids)
	seqset := new(imap.SeqSet)
	seqset.AddNum(latest)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}
	messages := make(chan *imap.Message, 1)
	fetchErr := make(chan error, 1)
	go func() {
		fetchErr <- conn.UidFetch(seqset, items, messages)
	}()

	var fetched *imap.Message
	for msg := range messages {
		if fetched == nil {
			fetched = msg
		}
	}
	if err := <-fetchErr; err != nil {
		return nil, fmt.Errorf("fetch uid %d: %w", latest, err)
	}
	if fetched == nil {
		return nil, nil
	}

	msg, err := parseMessage(fetched, section, p.now)
	if err != nil {
		return nil, fmt.Errorf("parse uid %d: %w", latest, err)
	}

	if received, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil && received.Before(since) {
		p.log.Debug("Latest unread message is outside lookback window", "uid", latest, "received", msg.Timestamp)
		return nil, nil
	}

	p.log.Info("Fetched unread message",
		"uid", latest,
		"sender", msg.Sender,
		"subject", msg.Subject,
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)
	return msg, nil
}

func parseMessage(fetched *imap.Message, section *imap.BodySectionName, now func() time.Time) (*workflow.Message, error) {
	body := fetched.GetBody(section)
	if body == nil {
		return nil, errors.New("server returned no message body")
	}

	reader, err := mail.CreateReader(body)
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	defer reader.Close()

	msg := &workflow.Message{
		InputType: workflow.InputEmail,
		Source:    string(workflow.ModeGmail),
		Timestamp: now().UTC().Format(time.RFC3339),
	}

	header := reader.Header
	if subject, err := header.Subject(); err == nil {
		msg.Subject = subject
	}
	if from, err := header.AddressList("From"); err == nil {
		msg.Sender = joinAddresses(from)
	}
	if to, err := header.AddressList("To"); err == nil {
		msg.Recipient = joinAddresses(to)
	}
	if date, err := header.Date(); err == nil && !date.IsZero() {
		msg.Timestamp = date.UTC().Format(time.RFC3339)
	}
	if id, err := header.MessageID(); err == nil && id != "" {
		msg.MessageID = "<" + id + ">"
	}

	if envelope := fetched.Envelope; envelope != nil {
		if msg.Subject == "" {
			msg.Subject = envelope.Subject
		}
		if msg.MessageID == "" {
			msg.MessageID = envelope.MessageId
		}
	}

	text, err := plainText(reader)
	if err != nil {
		return nil, err
	}
	msg.Body = strings.TrimSpace(text)

	return msg.Sanitize(), nil
}

// plainText returns the first text/plain part of the message.
func plainText(reader *mail.Reader) (string, error) {
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("read part: %w", err)
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := inline.ContentType()
		if err != nil || contentType != "text/plain" {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return "", fmt.Errorf("read text part: %w", err)
		}
		return string(data), nil
	}
}

func joinAddresses(addresses []*mail.Address) string {
	parts := make([]string, 0, len(addresses))
	for _, address := range addresses {
		if address.Name != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", address.Name, address.Address))
			continue
		}
		parts = append(parts, address.Address)
	}
	return strings.Join(parts, ", ")
}
