package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chris/phoenix/internal/llm"
	"github.com/joho/godotenv"
)

type Config struct {
	LLMProvider      string // gemini, anthropic, openai, ollama
	GeminiKey        string
	AnthropicKey     string // API key (X-Api-Key header)
	AnthropicToken   string // OAuth token (Authorization: Bearer header)
	OpenAIKey        string
	LLMModel         string
	OllamaBaseURL    string
	LLMTimeout       time.Duration
	MaxContextTokens int

	StoreDSN  string
	StoreName string

	DiscordToken   string
	DiscordWebhook string
	DiscordUserID  string
	NudgeCron      string

	LogLevel string
}

// ConfigDir returns ~/.phoenix.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".phoenix"
	}
	return filepath.Join(home, ".phoenix")
}

// ConfigFile returns the path of the user-level env file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config")
}

// Load reads the environment. Values already set win over ./.env, which
// wins over ~/.phoenix/config.
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore error if no .env
	_ = godotenv.Load(ConfigFile())

	timeout, err := time.ParseDuration(envOr("LLM_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("LLM_TIMEOUT: %w", err)
	}
	maxTokens, err := strconv.Atoi(envOr("MAX_CONTEXT_TOKENS", "32000"))
	if err != nil {
		return nil, fmt.Errorf("MAX_CONTEXT_TOKENS: %w", err)
	}

	return &Config{
		LLMProvider:      envOr("LLM_PROVIDER", llm.ProviderGemini),
		GeminiKey:        os.Getenv("GEMINI_API_KEY"),
		AnthropicKey:     os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicToken:   os.Getenv("ANTHROPIC_AUTH_TOKEN"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		LLMModel:         os.Getenv("LLM_MODEL"),
		OllamaBaseURL:    envOr("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
		LLMTimeout:       timeout,
		MaxContextTokens: maxTokens,
		StoreDSN:         envOr("STORE_DSN", "./agent_phoenix_memory.json"),
		StoreName:        envOr("STORE_NAME", "default"),
		DiscordToken:     os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordWebhook:   os.Getenv("DISCORD_WEBHOOK_URL"),
		DiscordUserID:    os.Getenv("DISCORD_USER_ID"),
		NudgeCron:        envOr("NUDGE_CRON", "0 20 * * *"),
		LogLevel:         envOr("LOG_LEVEL", "warn"),
	}, nil
}

// Validate checks the settings every command needs: a known provider with
// its credential, and sane limits.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLMProvider {
	case llm.ProviderGemini:
		if c.GeminiKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case llm.ProviderAnthropic:
		if c.AnthropicKey == "" && c.AnthropicToken == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY or ANTHROPIC_AUTH_TOKEN is required for the anthropic provider"))
		}
	case llm.ProviderOpenAI:
		if c.OpenAIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	case llm.ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT must be positive"))
	}
	if c.MaxContextTokens < 2000 {
		errs = append(errs, errors.New("MAX_CONTEXT_TOKENS must be at least 2000"))
	}
	if c.StoreDSN == "" {
		errs = append(errs, errors.New("STORE_DSN is required"))
	}
	return errors.Join(errs...)
}

// Provider returns the settings for llm.NewClient.
func (c *Config) Provider() llm.ProviderConfig {
	pc := llm.ProviderConfig{Provider: c.LLMProvider, Model: c.LLMModel}
	switch c.LLMProvider {
	case llm.ProviderGemini:
		pc.APIKey = c.GeminiKey
	case llm.ProviderAnthropic:
		pc.APIKey = c.AnthropicKey
		pc.AuthToken = c.AnthropicToken
	case llm.ProviderOpenAI:
		pc.APIKey = c.OpenAIKey
	case llm.ProviderOllama:
		pc.BaseURL = c.OllamaBaseURL
	}
	return pc
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
