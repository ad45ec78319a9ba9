package telegram

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftflow/pkg/bus"
	"draftflow/pkg/config"
)

func TestNewAdapterRequiresToken(t *testing.T) {
	_, err := NewAdapter(config.TelegramConfig{Token: "  "}, nil)
	assert.Error(t, err)

	adapter, err := NewAdapter(config.TelegramConfig{Token: "123:abc", AllowFrom: []string{"7"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, ChannelName, adapter.Name())
	assert.True(t, adapter.senderAllowed("7"))
}

func TestAllowFromSet(t *testing.T) {
	allowed := allowFromSet([]string{" 123 ", "", "456", "123"})
	assert.Len(t, allowed, 2)
	assert.Contains(t, allowed, "123")
	assert.Contains(t, allowed, "456")

	assert.Nil(t, allowFromSet([]string{" ", ""}))
}

func TestSenderAllowed(t *testing.T) {
	adapter := &Adapter{allowFrom: map[string]struct{}{"1": {}}}
	assert.True(t, adapter.senderAllowed("1"))
	assert.False(t, adapter.senderAllowed("2"))

	adapter.allowFrom = nil
	assert.True(t, adapter.senderAllowed("any"))
}

func TestNewTrigger(t *testing.T) {
	trigger := newTrigger(991, -100123, "42", "schedule q1 planning with sarah")

	assert.Equal(t, "cli", trigger.Mode)
	assert.Equal(t, ChannelName, trigger.Channel)
	assert.Equal(t, "-100123", trigger.ChatID)
	assert.Equal(t, "42", trigger.SenderID)
	assert.Equal(t, "schedule q1 planning with sarah", trigger.Command)
	assert.Equal(t, "991", trigger.Metadata["update_id"])
}

func TestCommandText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "  reply to the outage email ", want: "reply to the outage email"},
		{input: "/draft reply to sarah", want: "reply to sarah"},
		{input: "/run@draftflow_bot meet monday", want: "meet monday"},
		{input: "/draft", want: ""},
		{input: "/start", want: ""},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, commandText(tt.input))
		})
	}
}

func TestReplyText(t *testing.T) {
	assert.Equal(t, "summary", replyText(bus.Reply{Content: " summary \n"}, nil))
	assert.Equal(t, "bad input", replyText(bus.Reply{Error: "bad input"}, errors.New("ignored")))
	assert.Equal(t, "Run failed: boom", replyText(bus.Reply{}, errors.New("boom")))
	assert.Empty(t, replyText(bus.Reply{}, nil))

	long := replyText(bus.Reply{Content: strings.Repeat("x", maxMessageLength+10)}, nil)
	assert.Len(t, long, maxMessageLength)
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestPreviewText(t *testing.T) {
	assert.Equal(t, "hello", previewText(" hello "))

	got := previewText(strings.Repeat("a", messagePreviewLimit+20))
	assert.Len(t, got, messagePreviewLimit+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}
