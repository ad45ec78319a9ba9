package provider

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftflow/pkg/config"
	provideranthropic "draftflow/pkg/provider/anthropic"
	providermock "draftflow/pkg/provider/mock"
	provideropenai "draftflow/pkg/provider/openai"
	provideropencode "draftflow/pkg/provider/opencode"
	providertypes "draftflow/pkg/provider/types"
)

func TestNewDefaultsToMockProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = ""

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &providermock.Client{}, client)
}

func TestNewReturnsErrorForUnsupportedProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "unknown"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestNewSelectsBackend(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	tests := []struct {
		provider string
		want     any
	}{
		{provider: "openai", want: &provideropenai.Client{}},
		{provider: "OpenAI", want: &provideropenai.Client{}},
		{provider: "anthropic", want: &provideranthropic.Client{}},
		{provider: "opencode", want: &provideropencode.Client{}},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := config.Default()
			cfg.LLM.Provider = tt.provider
			cfg.LLM.Model = ""
			cfg.Providers.OpenCode.BaseURL = "http://127.0.0.1:4096"

			client, err := New(context.Background(), cfg)
			require.NoError(t, err)
			assert.IsType(t, tt.want, client)
		})
	}
}

func TestNewOpenAIWithoutKeyFails(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := config.Default()
	cfg.LLM.Provider = OpenAI

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

type stubClient struct {
	text      string
	err       error
	healthErr error
	usage     *providertypes.TokenUsage
	calls     int
}

func (s *stubClient) Health(context.Context) error {
	return s.healthErr
}

func (s *stubClient) Generate(_ context.Context, _ string) (providertypes.GenerateResult, error) {
	s.calls++
	if s.err != nil {
		return providertypes.GenerateResult{}, s.err
	}
	return providertypes.GenerateResult{
		Text:     s.text,
		Metadata: providertypes.GenerateMetadata{Provider: "stub", Usage: s.usage},
	}, nil
}

func TestGeneratorBuildsBackendOnce(t *testing.T) {
	builds := 0
	stub := &stubClient{text: "email_reply"}
	gen := NewGeneratorWithFactory("stub", func(context.Context) (Client, error) {
		builds++
		return stub, nil
	})

	for range 3 {
		text, err := gen.Generate(context.Background(), "prompt")
		require.NoError(t, err)
		assert.Equal(t, "email_reply", text)
	}

	assert.Equal(t, 1, builds)
	assert.Equal(t, 3, stub.calls)

	status := gen.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, int64(3), status.Calls)
	assert.Zero(t, status.Failures)
}

func TestGeneratorReportsUnavailableBackend(t *testing.T) {
	builds := 0
	gen := NewGeneratorWithFactory("openai", func(context.Context) (Client, error) {
		builds++
		return nil, errors.New("OPENAI_API_KEY must be set")
	})

	_, err := gen.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = gen.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, builds)

	require.ErrorIs(t, gen.Health(context.Background()), ErrUnavailable)

	status := gen.Status()
	assert.False(t, status.Ready)
	assert.Equal(t, int64(2), status.Failures)
	assert.Contains(t, status.LastError, "OPENAI_API_KEY")
}

func TestGeneratorRetriesBuildInterruptedByContext(t *testing.T) {
	builds := 0
	stub := &stubClient{text: "hello"}
	gen := NewGeneratorWithFactory("gemini", func(ctx context.Context) (Client, error) {
		builds++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return stub, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := gen.Health(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, gen.Status().Ready)

	text, err := gen.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, 2, builds)
	assert.True(t, gen.Status().Ready)
}

func TestGeneratorPassesThroughCallErrors(t *testing.T) {
	stub := &stubClient{err: errors.New("rate limited")}
	gen := NewGeneratorWithFactory("stub", func(context.Context) (Client, error) {
		return stub, nil
	})

	_, err := gen.Generate(context.Background(), "prompt")
	require.EqualError(t, err, "rate limited")
	assert.Equal(t, "rate limited", gen.Status().LastError)
}

func TestGeneratorRejectsCancelledContext(t *testing.T) {
	stub := &stubClient{text: "ok"}
	gen := NewGeneratorWithFactory("stub", func(context.Context) (Client, error) {
		return stub, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, "prompt")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stub.calls)
}

func TestGeneratorAccumulatesUsage(t *testing.T) {
	stub := &stubClient{text: "ok", usage: &providertypes.TokenUsage{InputTokens: 10, OutputTokens: 4, TotalTokens: 14}}
	gen := NewGeneratorWithFactory("stub", func(context.Context) (Client, error) {
		return stub, nil
	})

	for range 2 {
		_, err := gen.Generate(context.Background(), "prompt")
		require.NoError(t, err)
	}

	usage := gen.Status().Usage
	assert.Equal(t, int64(20), usage.InputTokens)
	assert.Equal(t, int64(28), usage.TotalTokens)
}

func TestGeneratorHealthUsesBackend(t *testing.T) {
	stub := &stubClient{healthErr: errors.New("down")}
	gen := NewGeneratorWithFactory("", func(context.Context) (Client, error) {
		return stub, nil
	})

	require.EqualError(t, gen.Health(context.Background()), "down")
	assert.Equal(t, Mock, gen.Status().Provider)

	stub.healthErr = nil
	require.NoError(t, gen.Health(context.Background()))
	assert.Empty(t, gen.Status().LastError)
	assert.False(t, gen.Status().LastOKAt.IsZero())
}

func TestGeneratorSerializesConcurrentCalls(t *testing.T) {
	stub := &stubClient{text: "ok"}
	gen := NewGeneratorWithFactory("stub", func(context.Context) (Client, error) {
		return stub, nil
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			_, _ = gen.Generate(context.Background(), "prompt")
		})
	}
	wg.Wait()

	assert.Equal(t, 8, stub.calls)
	assert.Equal(t, int64(8), gen.Status().Calls)
}

func TestNewGeneratorUsesMockByDefault(t *testing.T) {
	gen := NewGenerator(config.Default())

	text, err := gen.Generate(context.Background(), "classify this")
	require.NoError(t, err)
	assert.Equal(t, providermock.Reply, text)
}
