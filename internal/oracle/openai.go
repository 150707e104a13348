// Package oracle holds the LLM transports behind engine.LLMClient. Each
// client does one non-streaming chat round-trip; the workflow owns all
// control flow, so transports stay thin.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/ChamsBouzaiene/tally/internal/engine"
)

// OpenAIClient implements engine.LLMClient over any OpenAI-compatible
// endpoint. Gemini is reached through its OpenAI-compatibility base URL, so
// one transport covers both providers.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient builds a client for the given key and optional base URL.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(config)}
}

// Chat implements engine.LLMClient.Chat.
func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []engine.ChatMessage, schemas []engine.ToolSchema, opts engine.ChatOptions) (engine.LLMResponse, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	tools, err := openAITools(schemas)
	if err != nil {
		return engine.LLMResponse{}, err
	}

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}
	if opts.MaxOutputTokens > 0 {
		req.MaxTokens = opts.MaxOutputTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = &opts.Temperature
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return engine.LLMResponse{}, engine.Errorf(engine.KindOracleUnavailable, "oracle request failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return engine.LLMResponse{}, engine.Errorf(engine.KindOracleUnavailable, "oracle returned no choices")
	}

	choice := resp.Choices[0]
	out := engine.LLMResponse{
		Text: choice.Message.Content,
		Usage: engine.Usage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		args := make(map[string]any)
		if tc.Function.Arguments != "" {
			// Malformed argument JSON is not a transport failure; the
			// decision layer rejects the empty args against the schema.
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		out.Calls = append(out.Calls, engine.FunctionCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}

	out.FinishReason = "stop"
	switch {
	case len(out.Calls) > 0:
		out.FinishReason = "tool_calls"
	case choice.FinishReason == openai.FinishReasonLength:
		out.FinishReason = "length"
	case choice.FinishReason == openai.FinishReasonContentFilter:
		out.FinishReason = "content_filter"
	}
	return out, nil
}

func openAITools(schemas []engine.ToolSchema) ([]openai.Tool, error) {
	var tools []openai.Tool
	for _, ts := range schemas {
		var schemaObj map[string]any
		if err := json.Unmarshal([]byte(ts.JSONSchema), &schemaObj); err != nil {
			return nil, fmt.Errorf("invalid tool schema JSON for %s: %w", ts.Name, err)
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ts.Name,
				Description: ts.Description,
				Parameters:  schemaObj,
			},
		})
	}
	return tools, nil
}
