package oracle

import (
	"fmt"
	"os"

	"github.com/ChamsBouzaiene/tally/internal/engine"
)

const geminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// NewClientFromEnv creates an engine.LLMClient based on environment
// variables. TALLY_PROVIDER selects the provider (gemini is the default);
// the matching *_API_KEY must be set and the *_MODEL can override the
// default model.
func NewClientFromEnv() (engine.LLMClient, string, error) {
	provider := os.Getenv("TALLY_PROVIDER")
	if provider == "" {
		provider = "gemini"
	}

	switch provider {
	case "gemini":
		// Gemini through its OpenAI-compatible endpoint.
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return nil, "", fmt.Errorf("GEMINI_API_KEY not set")
		}
		modelName := os.Getenv("GEMINI_MODEL")
		if modelName == "" {
			modelName = "gemini-2.0-flash"
		}
		return NewOpenAIClient(apiKey, geminiOpenAIBaseURL), modelName, nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, "", fmt.Errorf("OPENAI_API_KEY not set")
		}
		modelName := os.Getenv("OPENAI_MODEL")
		if modelName == "" {
			modelName = "gpt-4o-mini"
		}
		baseURL := os.Getenv("OPENAI_BASE_URL") // for OpenAI-compatible APIs
		return NewOpenAIClient(apiKey, baseURL), modelName, nil

	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, "", fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		modelName := os.Getenv("ANTHROPIC_MODEL")
		if modelName == "" {
			modelName = "claude-3-5-sonnet-20241022"
		}
		return NewAnthropicClient(apiKey), modelName, nil

	default:
		return nil, "", fmt.Errorf("unknown TALLY_PROVIDER: %s (supported: gemini, openai, anthropic)", provider)
	}
}
