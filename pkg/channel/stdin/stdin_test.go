package stdin

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftflow/pkg/bus"
	"draftflow/pkg/channel"
)

func echoHandler(triggers *[]bus.Trigger) channel.Handler {
	return func(_ context.Context, trigger bus.Trigger) (bus.Reply, error) {
		*triggers = append(*triggers, trigger)
		return bus.Reply{Channel: trigger.Channel, Content: "drafted: " + trigger.Command + "\n"}, nil
	}
}

func TestRunStartsCLIRunPerLine(t *testing.T) {
	var out bytes.Buffer
	var triggers []bus.Trigger
	adapter := NewAdapter(strings.NewReader("  reply to sarah \n\nschedule standup\n"), &out, nil)

	err := adapter.Run(context.Background(), echoHandler(&triggers))
	require.NoError(t, err)

	require.Len(t, triggers, 2)
	assert.Equal(t, "reply to sarah", triggers[0].Command)
	assert.Equal(t, "cli", triggers[0].Mode)
	assert.Equal(t, ChannelName, triggers[0].Channel)
	assert.Equal(t, "schedule standup", triggers[1].Command)
	assert.Contains(t, out.String(), "drafted: reply to sarah\n> ")
}

func TestRunStopsOnStopWord(t *testing.T) {
	for _, word := range []string{"quit", "EXIT", " stop "} {
		t.Run(word, func(t *testing.T) {
			var triggers []bus.Trigger
			adapter := NewAdapter(strings.NewReader("first\n"+word+"\nnever\n"), io.Discard, nil)

			err := adapter.Run(context.Background(), echoHandler(&triggers))
			assert.ErrorIs(t, err, channel.ErrStopRequested)
			require.Len(t, triggers, 1)
			assert.Equal(t, "first", triggers[0].Command)
		})
	}
}

func TestRunPrintsHandlerErrors(t *testing.T) {
	var out bytes.Buffer
	adapter := NewAdapter(strings.NewReader("break\n"), &out, nil)

	err := adapter.Run(context.Background(), func(context.Context, bus.Trigger) (bus.Reply, error) {
		return bus.Reply{}, errors.New("receive: imap down")
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Error: receive: imap down")
}

func TestRunReturnsOnCancel(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewAdapter(reader, io.Discard, nil).Run(ctx, func(context.Context, bus.Trigger) (bus.Reply, error) {
			return bus.Reply{}, nil
		})
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunRequiresHandler(t *testing.T) {
	assert.Error(t, NewAdapter(strings.NewReader(""), io.Discard, nil).Run(context.Background(), nil))
}

func TestRunAcceptsLongPastedCommand(t *testing.T) {
	long := strings.Repeat("please summarize the thread ", 10_000)
	var triggers []bus.Trigger
	adapter := NewAdapter(strings.NewReader(long+"\nnext\n"), io.Discard, nil)

	err := adapter.Run(context.Background(), echoHandler(&triggers))
	require.NoError(t, err)

	require.Len(t, triggers, 2)
	assert.Equal(t, strings.TrimSpace(long), triggers[0].Command)
	assert.Equal(t, "next", triggers[1].Command)
}
