package factory

import (
	"fmt"

	"qnagen-be/pkg/llm"
	"qnagen-be/pkg/llm/ollama"
	"qnagen-be/pkg/llm/openai"
)

type Config struct {
	Provider string
	Model    string
	// BaseURL is the Ollama host or an OpenAI-compatible API root.
	BaseURL string
	APIKey  string
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama", "":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	case "openai":
		return openai.NewProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
