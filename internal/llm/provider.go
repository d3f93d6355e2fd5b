package llm

import (
	"context"
	"errors"
	"fmt"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// DefaultModels is the model used when none is configured.
var DefaultModels = map[string]string{
	ProviderGemini:    "gemini-2.5-flash",
	ProviderAnthropic: "claude-sonnet-4-20250514",
	ProviderOpenAI:    "gpt-4o",
	ProviderOllama:    "llama3.1",
}

type ProviderConfig struct {
	Provider  string
	APIKey    string
	AuthToken string // OAuth token (Bearer auth), anthropic only
	Model     string
	BaseURL   string
}

// InvocationError wraps any failure to get a reply from a provider,
// including timeouts and cancellation.
type InvocationError struct {
	Provider string
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s invocation failed: %v", e.Provider, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Timeout reports whether the call ran out of time.
func (e *InvocationError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

func NewClient(ctx context.Context, cfg ProviderConfig) (Client, error) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderGemini
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModels[cfg.Provider]
	}

	var c Client
	switch cfg.Provider {
	case ProviderGemini:
		g, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		c = g
	case ProviderAnthropic:
		c = NewAnthropicClient(cfg.APIKey, cfg.AuthToken, cfg.Model)
	case ProviderOpenAI:
		c = NewOpenAIClient(cfg.APIKey, cfg.Model, "")
	case ProviderOllama:
		base := cfg.BaseURL
		if base == "" {
			base = "http://localhost:11434/v1"
		}
		c = NewOpenAIClient("ollama", cfg.Model, base)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
	return WithInvocationErrors(cfg.Provider, c), nil
}

// WithInvocationErrors wraps every error returned by c in an *InvocationError.
func WithInvocationErrors(provider string, c Client) Client {
	return &invoker{provider: provider, next: c}
}

type invoker struct {
	provider string
	next     Client
}

func (i *invoker) Chat(ctx context.Context, systemPrompt string, messages []Message, tools []Tool) (*Response, error) {
	resp, err := i.next.Chat(ctx, systemPrompt, messages, tools)
	if err != nil {
		var ie *InvocationError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, &InvocationError{Provider: i.provider, Err: err}
	}
	if resp == nil {
		return nil, &InvocationError{Provider: i.provider, Err: errors.New("empty response")}
	}
	return resp, nil
}
