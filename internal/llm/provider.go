// Package llm provides a provider-agnostic client for the generative
// language service used by enrichment and entity consolidation.
// Uses net/http directly.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider is the interface for model completions.
type Provider interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error)
	// Name returns a human-readable provider name (e.g. "google/gemini-2.5-flash").
	Name() string
}

// CompletionOpts configures a single completion request.
type CompletionOpts struct {
	MaxTokens   int     // max tokens to generate (0 = provider default)
	Temperature float64 // 0.0-2.0 (0 = deterministic)
	Format      string  // "json" for structured output, empty for plain text
	System      string  // system prompt (optional)
}

// Config selects and configures a provider.
type Config struct {
	Provider string // "google", "openrouter"
	Model    string // e.g. "gemini-2.5-flash", "openai/gpt-4o-mini"
	APIKey   string // empty = read from env
	BaseURL  string // optional URL override
}

// ErrNoCredential reports that no API key is available for the selected
// provider. Callers treat this as a feature flag: the primary extraction
// path is disabled and every document takes the local fallback. It is
// never a fatal initialization error.
type ErrNoCredential struct {
	Provider string
	EnvVars  []string
}

func (e *ErrNoCredential) Error() string {
	return fmt.Sprintf("no API key for %s provider (set %s)", e.Provider, strings.Join(e.EnvVars, " or "))
}

// NewProvider creates a provider from the given config. A missing API
// key returns *ErrNoCredential; any other configuration problem is a
// plain error.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "google":
		key := firstKey(cfg.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
		if key == "" {
			return nil, &ErrNoCredential{Provider: "google", EnvVars: []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}}
		}
		model := cfg.Model
		if model == "" {
			model = "gemini-2.5-flash"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://generativelanguage.googleapis.com/v1beta"
		}
		return &googleProvider{apiKey: key, model: model, baseURL: baseURL}, nil

	case "openrouter":
		key := firstKey(cfg.APIKey, "OPENROUTER_API_KEY")
		if key == "" {
			return nil, &ErrNoCredential{Provider: "openrouter", EnvVars: []string{"OPENROUTER_API_KEY"}}
		}
		model := cfg.Model
		if model == "" {
			model = "openai/gpt-4o-mini"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://openrouter.ai/api/v1"
		}
		return &openrouterProvider{apiKey: key, model: model, baseURL: baseURL}, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: google, openrouter)", cfg.Provider)
	}
}

// ParseModelFlag parses a --llm flag value into a Config.
// Format: "provider/model", e.g. "google/gemini-2.5-flash",
// "openrouter/openai/gpt-4o-mini". Empty selects the google default.
func ParseModelFlag(flag string) (Config, error) {
	if strings.TrimSpace(flag) == "" {
		return Config{Provider: "google", Model: "gemini-2.5-flash"}, nil
	}
	parts := strings.SplitN(flag, "/", 2)
	if len(parts) < 2 {
		return Config{}, fmt.Errorf("invalid --llm format %q: expected provider/model", flag)
	}
	provider := strings.ToLower(parts[0])
	switch provider {
	case "google", "openrouter":
		return Config{Provider: provider, Model: parts[1]}, nil
	default:
		return Config{}, fmt.Errorf("unknown provider %q in --llm flag (supported: google, openrouter)", provider)
	}
}

func firstKey(explicit string, envVars ...string) string {
	if strings.TrimSpace(explicit) != "" {
		return strings.TrimSpace(explicit)
	}
	for _, env := range envVars {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return ""
}
