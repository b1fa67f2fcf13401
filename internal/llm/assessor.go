package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiAssessor runs single-shot prompts against a Gemini model. The safety
// gate uses it to score user messages; the assessor itself carries no safety
// semantics, it just returns raw model text.
type GeminiAssessor struct {
	client *genai.Client
	model  string
}

// NewGeminiAssessor creates a Gemini-backed assessor.
func NewGeminiAssessor(ctx context.Context, apiKey, model string) (*GeminiAssessor, error) {
	if apiKey == "" {
		return nil, errors.New("llm: gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}
	return &GeminiAssessor{client: client, model: model}, nil
}

// Assess sends the prompt as a single user turn and returns the concatenated
// text of the response.
func (a *GeminiAssessor) Assess(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	result, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("llm: gemini generate: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
