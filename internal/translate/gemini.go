package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// NewGeminiClient opens a Gemini API client. One client can back several
// models; the caller closes it.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

// Gemini translates with a Gemini generative model.
type Gemini struct {
	model *genai.GenerativeModel
	name  string
}

// NewGemini wraps the named model of client. An empty name selects
// DefaultGeminiModel.
func NewGemini(client *genai.Client, modelName string) *Gemini {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &Gemini{
		model: client.GenerativeModel(modelName),
		name:  modelName,
	}
}

// Name returns the backend label stored with translations.
func (g *Gemini) Name() string {
	return "gemini:" + g.name
}

// Generate sends prompt to the model and concatenates the text parts of the
// first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// Translate implements Translator.
func (g *Gemini) Translate(ctx context.Context, text string) (string, error) {
	return translateWith(ctx, g, text)
}
