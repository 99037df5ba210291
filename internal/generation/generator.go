// Package generation produces answers from a prompt with a chat completion service.
package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hyperjump/kokoro/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when the service answers with no choices.
var ErrEmptyResponse = errors.New("generation returned no choices")

// Generator turns a prompt into an answer. Each call is a single stateless user turn.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// OpenAIGenerator calls an OpenAI-compatible /chat/completions endpoint.
type OpenAIGenerator struct {
	client *openai.Client
}

// NewOpenAIGenerator creates a generator for baseURL. httpClient may be nil.
func NewOpenAIGenerator(apiKey, baseURL string, httpClient *http.Client) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIGenerator{client: openai.NewClientWithConfig(cfg)}
}

// Generate sends prompt as the only user message and returns the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt, model string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: blank content (finish reason %q)", ErrEmptyResponse, resp.Choices[0].FinishReason)
	}
	return content, nil
}

// MockGenerator answers offline by quoting the first line of the prompt's context.
type MockGenerator struct{}

// Generate returns a deterministic answer derived from the prompt.
func (MockGenerator) Generate(ctx context.Context, prompt, model string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	excerpt := prompt
	if _, after, ok := strings.Cut(prompt, "---------------------\n"); ok {
		excerpt, _, _ = strings.Cut(after, "\n---------------------")
	}
	excerpt = utils.Truncate(strings.TrimSpace(excerpt), 200)
	return fmt.Sprintf("[%s] Based on the context: %s", model, excerpt), nil
}
