package assistant

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

// GeminiResponder generates replies with the Gemini API.
type GeminiResponder struct {
	client *genai.Client
	model  string
}

func NewGeminiResponder(ctx context.Context, apiKey, model string) (*GeminiResponder, error) {
	if apiKey == "" {
		return nil, errors.New("genai api key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiResponder{client: client, model: model}, nil
}

func (g *GeminiResponder) Reply(ctx context.Context, system, message string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(message), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}
