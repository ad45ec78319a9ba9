package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"draftflow/pkg/bus"
	"draftflow/pkg/channel"
	"draftflow/pkg/config"
	"draftflow/pkg/workflow"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// ChannelName identifies triggers raised from Telegram.
const ChannelName = "telegram"

const (
	messagePreviewLimit   = 240
	typingRefreshInterval = 4 * time.Second

	// Telegram rejects longer messages.
	maxMessageLength = 4096
)

// Adapter starts a cli run for every text message from an allowed sender and
// replies with the run summary.
type Adapter struct {
	cfg       config.TelegramConfig
	allowFrom map[string]struct{}
	log       *slog.Logger
}

// NewAdapter validates the bot token.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("channels.telegram.token is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:       cfg,
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "channel.telegram"),
	}, nil
}

func (a *Adapter) Name() string {
	return ChannelName
}

// Run long-polls for updates until ctx is done. Messages are handled one at a
// time; a failed run is reported to the chat and polling continues.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	bot, err := telego.NewBot(strings.TrimSpace(a.cfg.Token))
	if err != nil {
		return fmt.Errorf("initialize telegram bot: %w", err)
	}

	updates, err := bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			message := update.Message
			if message == nil {
				continue
			}

			command := commandText(message.Text)
			if command == "" {
				continue
			}
			if message.From == nil {
				a.log.Debug("Ignoring message without sender")
				continue
			}

			senderID := strconv.FormatInt(message.From.ID, 10)
			if !a.senderAllowed(senderID) {
				a.log.Debug("Ignoring message from unauthorized sender", "sender_id", senderID)
				continue
			}

			trigger := newTrigger(update.UpdateID, message.Chat.ID, senderID, command)
			a.log.Info("Received command", "chat_id", trigger.ChatID, "sender_id", senderID, "command", previewText(command))

			stopTyping := a.startTypingIndicator(ctx, bot, message.Chat.ID)
			reply, err := handler(ctx, trigger)
			stopTyping()
			if err != nil {
				a.log.Error("Run failed", "chat_id", trigger.ChatID, "command", previewText(command), "error", err)
			}

			responseText := replyText(reply, err)
			if responseText == "" {
				continue
			}
			a.log.Info("Sending reply", "chat_id", trigger.ChatID, "run_id", reply.RunID, "content", previewText(responseText))

			if _, err := bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), responseText)); err != nil {
				a.log.Error("Failed to send telegram message", "error", err)
			}
		}
	}
}

// senderAllowed reports whether senderID is on the allow list. An empty list
// accepts everyone.
func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}

	_, ok := a.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

func newTrigger(updateID int, chatID int64, senderID string, command string) bus.Trigger {
	return bus.Trigger{
		Mode:     string(workflow.ModeCLI),
		Command:  command,
		Channel:  ChannelName,
		ChatID:   strconv.FormatInt(chatID, 10),
		SenderID: senderID,
		Metadata: map[string]string{
			"update_id": strconv.Itoa(updateID),
		},
	}
}

// commandText strips a leading bot command such as /draft, so "/draft reply
// to sarah" and "reply to sarah" start the same run.
func commandText(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}

	name, rest, _ := strings.Cut(text, " ")
	name, _, _ = strings.Cut(name, "@")
	switch name {
	case "/draft", "/run":
		return strings.TrimSpace(rest)
	default:
		return ""
	}
}

func replyText(reply bus.Reply, err error) string {
	text := strings.TrimSpace(reply.Content)
	if text == "" {
		text = strings.TrimSpace(reply.Error)
	}
	if text == "" && err != nil {
		text = "Run failed: " + err.Error()
	}
	if len(text) > maxMessageLength {
		text = text[:maxMessageLength-3] + "..."
	}
	return text
}

func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}

// startTypingIndicator keeps the chat's typing action alive until the returned
// func is called.
func (a *Adapter) startTypingIndicator(ctx context.Context, bot *telego.Bot, chatID int64) context.CancelFunc {
	typingCtx, cancel := context.WithCancel(ctx)

	sendTyping := func() {
		if err := bot.SendChatAction(typingCtx, tu.ChatAction(tu.ID(chatID), telego.ChatActionTyping)); err != nil && typingCtx.Err() == nil {
			a.log.Debug("Failed to send typing indicator", "chat_id", chatID, "error", err)
		}
	}

	sendTyping()

	go func() {
		ticker := time.NewTicker(typingRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-typingCtx.Done():
				return
			case <-ticker.C:
				sendTyping()
			}
		}
	}()

	return cancel
}
