// Package llm wraps the two external language-model providers behind narrow
// interfaces: an OpenAI-compatible chat-completion client (Groq) used to
// generate conversation replies, and a Gemini client used for message
// criticality assessment. Nothing outside this package knows which vendor
// backs which concern.
package llm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hearu/hearu-backend/internal/chat"
)

// ErrEmptyCompletion is returned when the provider answers without any
// choices or with blank content.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// GroqClient generates conversation replies through Groq's OpenAI-compatible
// chat-completion endpoint. It implements chat.Generator.
type GroqClient struct {
	client *openai.Client
	model  string
}

// NewGroqClient builds a client for an OpenAI-compatible endpoint. baseURL
// should point at the API root including the version prefix (e.g.
// "https://api.groq.com/openai/v1"); when empty, the upstream OpenAI default
// is used.
func NewGroqClient(apiKey, baseURL, model string) *GroqClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &GroqClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Generate sends the assembled conversation to the completion endpoint and
// returns the assistant's reply text.
func (c *GroqClient) Generate(ctx context.Context, msgs []chat.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAIMessages(msgs),
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

func toOpenAIMessages(msgs []chat.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case chat.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case chat.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}
