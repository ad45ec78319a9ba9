package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	envConfigPath        = "DRAFTFLOW_CONFIG"
	envDraftsDir         = "DRAFTFLOW_DRAFTS_DIR"
	envDBPath            = "DRAFTFLOW_DB_PATH"
	envLLMProvider       = "LLM_PROVIDER"
	envGmailAddress      = "GMAIL_EMAIL"
	envGmailAppPassword  = "GMAIL_APP_PASSWORD"
	envTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramAllowFrom = "TELEGRAM_ALLOW_FROM"
)

// Defaults applied before config.json is read.
const (
	DefaultProvider            = "mock"
	DefaultMaxTokens           = 500
	DefaultIMAPAddr            = "imap.gmail.com:993"
	DefaultLookbackMinutes     = 60
	DefaultPollIntervalSeconds = 60
	DefaultDBPath              = "data/draftflow.db"
	DefaultDraftsDir           = "drafts"
	DefaultGatewayHost         = "127.0.0.1"
	DefaultGatewayPort         = 18790
)

// ErrNotFound is returned by FindConfigPath when no config.json exists.
var ErrNotFound = errors.New("config.json not found")

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Providers ProvidersConfig `json:"providers"`
	Gmail     GmailConfig     `json:"gmail"`
	Storage   StorageConfig   `json:"storage"`
	Channels  ChannelsConfig  `json:"channels"`
	Gateway   GatewayConfig   `json:"gateway"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// LLMConfig selects the text-generation backend used by the workflow.
type LLMConfig struct {
	Provider              string  `json:"provider"`
	Model                 string  `json:"model"`
	MaxTokens             int     `json:"max_tokens"`
	Temperature           float64 `json:"temperature"`
	FallbackText          string  `json:"fallback_text,omitempty"`
	RequestTimeoutSeconds int     `json:"request_timeout_seconds"`
}

// ProvidersConfig stores per-provider connection settings.
type ProvidersConfig struct {
	OpenAI    OpenAIProviderConfig    `json:"openai"`
	Anthropic AnthropicProviderConfig `json:"anthropic"`
	Gemini    GeminiProviderConfig    `json:"gemini"`
	OpenCode  OpenCodeProviderConfig  `json:"opencode"`
}

// OpenAIProviderConfig configures the OpenAI provider client.
type OpenAIProviderConfig struct {
	APIKeyEnv    string `json:"api_key_env"`
	BaseURL      string `json:"base_url"`
	Organization string `json:"organization"`
	Project      string `json:"project"`
}

// AnthropicProviderConfig configures the Anthropic provider client.
type AnthropicProviderConfig struct {
	APIKeyEnv string `json:"api_key_env"`
	BaseURL   string `json:"base_url"`
}

// GeminiProviderConfig configures the Gemini provider client.
type GeminiProviderConfig struct {
	APIKeyEnv string `json:"api_key_env"`
}

// OpenCodeProviderConfig configures the OpenCode provider client.
type OpenCodeProviderConfig struct {
	BaseURL     string `json:"base_url"`
	Username    string `json:"username"`
	PasswordEnv string `json:"password_env"`
}

// GmailConfig configures the IMAP mailbox used in gmail mode.
type GmailConfig struct {
	Address             string `json:"address"`
	AppPasswordEnv      string `json:"app_password_env"`
	IMAPAddr            string `json:"imap_addr"`
	LookbackMinutes     int    `json:"lookback_minutes"`
	PollIntervalSeconds int    `json:"poll_interval_seconds"`

	// AppPassword is resolved from the environment only.
	AppPassword string `json:"-"`
}

// HasCredentials reports whether both address and app password are set.
func (g GmailConfig) HasCredentials() bool {
	return strings.TrimSpace(g.Address) != "" && strings.TrimSpace(g.AppPassword) != ""
}

// StorageConfig configures draft files and run history.
type StorageConfig struct {
	DBPath         string `json:"db_path"`
	DraftsDir      string `json:"drafts_dir"`
	DisableFiles   bool   `json:"disable_files,omitempty"`
	DisableHistory bool   `json:"disable_history,omitempty"`
}

// ChannelsConfig stores operator channel settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

// TelegramConfig configures Telegram channel integration.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allow_from"`
}

// GatewayConfig configures the status HTTP server bind settings.
type GatewayConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

// Default returns the configuration used when no config.json is present.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  DefaultProvider,
			MaxTokens: DefaultMaxTokens,
		},
		Gmail: GmailConfig{
			IMAPAddr:            DefaultIMAPAddr,
			LookbackMinutes:     DefaultLookbackMinutes,
			PollIntervalSeconds: DefaultPollIntervalSeconds,
		},
		Storage: StorageConfig{
			DBPath:    DefaultDBPath,
			DraftsDir: DefaultDraftsDir,
		},
		Gateway: GatewayConfig{
			Enabled: true,
			Host:    DefaultGatewayHost,
			Port:    DefaultGatewayPort,
		},
	}
}

// LoadConfig resolves config.json over the defaults and applies environment overrides.
// A missing config.json is not an error unless DRAFTFLOW_CONFIG names one.
func LoadConfig() (*Config, error) {
	cfg := Default()

	configPath, err := FindConfigPath()
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	default:
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyFloors(cfg)

	return cfg, nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if provider := strings.TrimSpace(os.Getenv(envLLMProvider)); provider != "" {
		cfg.LLM.Provider = strings.ToLower(provider)
	}

	if address := strings.TrimSpace(os.Getenv(envGmailAddress)); address != "" {
		cfg.Gmail.Address = address
	}
	passwordEnv := strings.TrimSpace(cfg.Gmail.AppPasswordEnv)
	if passwordEnv == "" {
		passwordEnv = envGmailAppPassword
	}
	cfg.Gmail.AppPassword = strings.TrimSpace(os.Getenv(passwordEnv))

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Channels.Telegram.AllowFrom = parseCSV(rawAllowFrom)
	}

	if dir := strings.TrimSpace(os.Getenv(envDraftsDir)); dir != "" {
		cfg.Storage.DraftsDir = dir
	}
	if path := strings.TrimSpace(os.Getenv(envDBPath)); path != "" {
		cfg.Storage.DBPath = path
	}
}

// applyFloors restores defaults for values a config file zeroed out.
func applyFloors(cfg *Config) {
	if strings.TrimSpace(cfg.LLM.Provider) == "" {
		cfg.LLM.Provider = DefaultProvider
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = DefaultMaxTokens
	}
	if strings.TrimSpace(cfg.Gmail.IMAPAddr) == "" {
		cfg.Gmail.IMAPAddr = DefaultIMAPAddr
	}
	if cfg.Gmail.LookbackMinutes <= 0 {
		cfg.Gmail.LookbackMinutes = DefaultLookbackMinutes
	}
	if strings.TrimSpace(cfg.Storage.DraftsDir) == "" {
		cfg.Storage.DraftsDir = DefaultDraftsDir
	}
	if strings.TrimSpace(cfg.Storage.DBPath) == "" {
		cfg.Storage.DBPath = DefaultDBPath
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// FindConfigPath resolves the active config file location.
//
// Precedence is DRAFTFLOW_CONFIG first, then cwd-local fallback paths.
func FindConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w (checked %s and %s)", ErrNotFound, candidates[0], candidates[1])
}
