package llm

import "fmt"

// Provider identifies a supported model provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	ProviderOllama    Provider = "ollama"
	ProviderMock      Provider = "mock"
)

// ClientOptions configures client construction.
type ClientOptions struct {
	Provider Provider
	Model    string
	APIKey   string
	HostURL  string // Ollama only
}

// NewClient constructs a provider client wrapped with the default retry
// policy.
func NewClient(opts ClientOptions) (Client, error) {
	var raw Client

	switch opts.Provider {
	case ProviderAnthropic:
		raw = NewClaudeClient(opts.APIKey, opts.Model)
	case ProviderOpenAI:
		raw = NewOpenAIClient(opts.APIKey, opts.Model)
	case ProviderGoogle:
		raw = NewGeminiClient(opts.APIKey, opts.Model)
	case ProviderOllama:
		host := opts.HostURL
		if host == "" {
			host = "http://localhost:11434"
		}
		raw = NewOllamaClient(host, opts.Model)
	case ProviderMock:
		return ScriptedClient("mock response"), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", opts.Provider)
	}

	return NewResilientClient(raw), nil
}
