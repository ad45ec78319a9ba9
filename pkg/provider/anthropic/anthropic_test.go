package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftflow/pkg/config"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := New(config.Default())
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	client, err := New(config.Default())
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, client.Model())
	assert.Equal(t, int64(config.DefaultMaxTokens), client.maxTokens)
}

func TestNewModelPrefix(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-ant-test")

	tests := []struct {
		model   string
		want    string
		wantErr bool
	}{
		{model: "claude-3-haiku-20240307", want: "claude-3-haiku-20240307"},
		{model: "anthropic/claude-3-opus-20240229", want: "claude-3-opus-20240229"},
		{model: "openai/gpt-4o", wantErr: true},
		{model: "anthropic/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			cfg := config.Default()
			cfg.Providers.Anthropic.APIKeyEnv = "TEST_ANTHROPIC_KEY"
			cfg.LLM.Model = tt.model

			client, err := New(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, client.Model())
		})
	}
}
