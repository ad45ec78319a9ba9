package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"draftflow/pkg/config"
	providertypes "draftflow/pkg/provider/types"
)

// DefaultModel is used when llm.model is empty.
const DefaultModel = "claude-3-sonnet-20240229"

const defaultAPIKeyEnv = "ANTHROPIC_API_KEY"

type Client struct {
	client         anthropic.Client
	model          string
	maxTokens      int64
	temperature    float64
	requestTimeout time.Duration
}

func New(cfg *config.Config) (*Client, error) {
	providerCfg := cfg.Providers.Anthropic
	apiKey := resolveAPIKey(providerCfg)
	if apiKey == "" {
		return nil, errors.New("providers.anthropic.api_key_env is required or ANTHROPIC_API_KEY must be set")
	}

	model := strings.TrimSpace(cfg.LLM.Model)
	if model == "" {
		model = DefaultModel
	}
	if providerID, modelID, found := strings.Cut(model, "/"); found {
		if strings.TrimSpace(providerID) != "anthropic" || strings.TrimSpace(modelID) == "" {
			return nil, fmt.Errorf("model %q is not supported by anthropic provider", model)
		}
		model = strings.TrimSpace(modelID)
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(providerCfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	maxTokens := int64(cfg.LLM.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = config.DefaultMaxTokens
	}

	return &Client{
		client:         anthropic.NewClient(opts...),
		model:          model,
		maxTokens:      maxTokens,
		temperature:    cfg.LLM.Temperature,
		requestTimeout: time.Duration(cfg.LLM.RequestTimeoutSeconds) * time.Second,
	}, nil
}

// Model returns the resolved model id.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := providerLogger().With("operation", "health")
	startedAt := time.Now()
	log.Debug("provider request started")

	if _, err := c.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds())

	return nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (providertypes.GenerateResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := providerLogger().With("operation", "generate")
	startedAt := time.Now()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return providertypes.GenerateResult{}, errors.New("prompt is required")
	}
	log.Debug("provider request started", "model", c.model, "prompt_length", len(prompt))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(c.temperature)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return providertypes.GenerateResult{}, fmt.Errorf("generate failed: %w", err)
	}

	var parts []string
	for _, block := range message.Content {
		if block.Type != "text" {
			continue
		}
		if text := strings.TrimSpace(block.Text); text != "" {
			parts = append(parts, text)
		}
	}
	text := strings.Join(parts, "\n")
	if text == "" {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "no text blocks")
		return providertypes.GenerateResult{}, errors.New("generate succeeded but returned no text blocks")
	}
	log.Debug("provider request completed",
		"duration_ms", time.Since(startedAt).Milliseconds(),
		"response_length", len(text),
		"stop_reason", string(message.StopReason),
	)

	usage := providertypes.TokenUsage{
		InputTokens:         message.Usage.InputTokens,
		OutputTokens:        message.Usage.OutputTokens,
		TotalTokens:         message.Usage.InputTokens + message.Usage.OutputTokens,
		CacheCreationTokens: message.Usage.CacheCreationInputTokens,
		CacheReadTokens:     message.Usage.CacheReadInputTokens,
	}

	return providertypes.GenerateResult{
		Text: text,
		Metadata: providertypes.GenerateMetadata{
			Provider: "anthropic",
			Model:    c.model,
			Usage:    providertypes.UsagePtr(usage),
		},
	}, nil
}

func providerLogger() *slog.Logger {
	return slog.Default().With("component", "provider.anthropic")
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func resolveAPIKey(cfg config.AnthropicProviderConfig) string {
	if apiKeyEnv := strings.TrimSpace(cfg.APIKeyEnv); apiKeyEnv != "" {
		if apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv)); apiKey != "" {
			return apiKey
		}
	}

	return strings.TrimSpace(os.Getenv(defaultAPIKeyEnv))
}
