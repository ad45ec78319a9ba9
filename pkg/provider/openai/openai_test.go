package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftflow/pkg/config"
)

func TestNewAPIKeyResolution(t *testing.T) {
	tests := []struct {
		name       string
		defaultKey string
		customKey  string
		keyEnv     string
		wantErr    bool
	}{
		{name: "no key anywhere", wantErr: true},
		{name: "configured env var", customKey: "sk-custom", keyEnv: "DRAFTFLOW_TEST_OPENAI_KEY"},
		{name: "configured env var empty falls back", defaultKey: "sk-default", keyEnv: "DRAFTFLOW_TEST_OPENAI_KEY"},
		{name: "default env var", defaultKey: "sk-default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", tt.defaultKey)
			t.Setenv("DRAFTFLOW_TEST_OPENAI_KEY", tt.customKey)

			cfg := config.Default()
			cfg.Providers.OpenAI.APIKeyEnv = tt.keyEnv

			client, err := New(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultModel, client.Model())
			assert.Equal(t, int64(config.DefaultMaxTokens), client.maxTokens)
		})
	}
}

func TestNewStripsProviderPrefix(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := config.Default()
	cfg.LLM.Model = "openai/gpt-4o-mini"
	client, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", client.Model())

	cfg.LLM.Model = "anthropic/claude"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestGenerateRejectsBlankPrompt(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	client, err := New(config.Default())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), " \n\t")
	assert.EqualError(t, err, "prompt is required")
}

func TestNormalizeModel(t *testing.T) {
	tests := map[string]struct {
		want    string
		wantErr bool
	}{
		"gpt-3.5-turbo":    {want: "gpt-3.5-turbo"},
		" openai/gpt-4o ":  {want: "gpt-4o"},
		"anthropic/claude": {wantErr: true},
		"openai/":          {wantErr: true},
		"":                 {wantErr: true},
	}

	for input, tt := range tests {
		got, err := normalizeModel(input)
		if tt.wantErr {
			assert.Error(t, err, input)
			continue
		}
		require.NoError(t, err, input)
		assert.Equal(t, tt.want, got, input)
	}
}
