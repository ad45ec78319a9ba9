package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"draftflow/pkg/config"
	provideranthropic "draftflow/pkg/provider/anthropic"
	providerfantasy "draftflow/pkg/provider/fantasy"
	providergemini "draftflow/pkg/provider/gemini"
	providermock "draftflow/pkg/provider/mock"
	provideropenai "draftflow/pkg/provider/openai"
	"draftflow/pkg/provider/opencode"
	providertypes "draftflow/pkg/provider/types"
)

// Provider identifiers accepted in llm.provider and LLM_PROVIDER.
const (
	Mock      = "mock"
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Gemini    = "gemini"
	Fantasy   = "fantasy"
	OpenCode  = "opencode"
)

type Client interface {
	Health(ctx context.Context) error
	Generate(ctx context.Context, prompt string) (providertypes.GenerateResult, error)
}

// New builds the backend selected by cfg.LLM.Provider.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	providerID := strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if providerID == "" {
		providerID = Mock
	}

	slog.Default().With("component", "provider.factory").Debug("Resolving provider client", "provider", providerID)

	switch providerID {
	case Mock:
		return providermock.New(cfg.LLM.FallbackText), nil
	case OpenAI:
		return provideropenai.New(cfg)
	case Anthropic:
		return provideranthropic.New(cfg)
	case Gemini:
		return providergemini.New(ctx, cfg)
	case Fantasy:
		return providerfantasy.New(cfg)
	case OpenCode:
		return opencode.New(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerID)
	}
}
