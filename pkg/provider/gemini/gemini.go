package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"draftflow/pkg/config"
	providertypes "draftflow/pkg/provider/types"
)

// DefaultModel is used when llm.model is empty.
const DefaultModel = "gemini-2.5-flash"

const defaultAPIKeyEnv = "GEMINI_API_KEY"

type Client struct {
	client         *genai.Client
	model          string
	maxTokens      int32
	temperature    float64
	requestTimeout time.Duration
}

func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	apiKey := resolveAPIKey(cfg.Providers.Gemini)
	if apiKey == "" {
		return nil, errors.New("providers.gemini.api_key_env is required or GEMINI_API_KEY must be set")
	}

	model, err := normalizeModel(cfg.LLM.Model)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	maxTokens := int32(cfg.LLM.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = config.DefaultMaxTokens
	}

	return &Client{
		client:         client,
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

	if _, err := c.client.Models.Get(ctx, c.model, nil); err != nil {
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

	generateCfg := &genai.GenerateContentConfig{MaxOutputTokens: c.maxTokens}
	if c.temperature > 0 {
		temp := float32(c.temperature)
		generateCfg.Temperature = &temp
	}

	res, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), generateCfg)
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return providertypes.GenerateResult{}, fmt.Errorf("generate failed: %w", err)
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "empty text")
		return providertypes.GenerateResult{}, errors.New("generate succeeded but returned no text")
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "response_length", len(text))

	var usage providertypes.TokenUsage
	if meta := res.UsageMetadata; meta != nil {
		usage = providertypes.TokenUsage{
			InputTokens:     int64(meta.PromptTokenCount),
			OutputTokens:    int64(meta.CandidatesTokenCount),
			TotalTokens:     int64(meta.TotalTokenCount),
			ReasoningTokens: int64(meta.ThoughtsTokenCount),
			CacheReadTokens: int64(meta.CachedContentTokenCount),
		}
	}

	return providertypes.GenerateResult{
		Text: text,
		Metadata: providertypes.GenerateMetadata{
			Provider: "gemini",
			Model:    c.model,
			Usage:    providertypes.UsagePtr(usage),
		},
	}, nil
}

func providerLogger() *slog.Logger {
	return slog.Default().With("component", "provider.gemini")
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func resolveAPIKey(cfg config.GeminiProviderConfig) string {
	if apiKeyEnv := strings.TrimSpace(cfg.APIKeyEnv); apiKeyEnv != "" {
		if apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv)); apiKey != "" {
			return apiKey
		}
	}

	return strings.TrimSpace(os.Getenv(defaultAPIKeyEnv))
}

func normalizeModel(model string) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return DefaultModel, nil
	}

	providerID, modelID, found := strings.Cut(model, "/")
	if !found {
		return model, nil
	}
	providerID = strings.TrimSpace(providerID)
	modelID = strings.TrimSpace(modelID)
	if (providerID != "gemini" && providerID != "google") || modelID == "" {
		return "", fmt.Errorf("model %q is not supported by gemini provider", model)
	}

	return modelID, nil
}
