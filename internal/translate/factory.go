package translate

import (
	"context"
	"fmt"
	"io"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"

	"patwa/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the configured translator. The returned closer releases any
// API client the translator holds.
func New(ctx context.Context, cfg config.TranslationConfig, log zerolog.Logger) (Translator, io.Closer, error) {
	var (
		base     Translator
		reviewer Generator
		closer   io.Closer = nopCloser{}
		gclient  *genai.Client
	)

	geminiClient := func() (*genai.Client, error) {
		if gclient != nil {
			return gclient, nil
		}
		c, err := NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		gclient = c
		closer = c
		return c, nil
	}

	switch cfg.Provider {
	case "gemini":
		c, err := geminiClient()
		if err != nil {
			return nil, nil, err
		}
		base = NewGemini(c, cfg.Model)
	case "openai":
		o, err := NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model)
		if err != nil {
			return nil, nil, err
		}
		base = o
	case "local":
		m, err := NewLocalModel(cfg.LocalEndpoint, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		base = m
	default:
		return nil, nil, fmt.Errorf("unknown translation provider: %s", cfg.Provider)
	}

	if !cfg.Review {
		return base, closer, nil
	}

	// The reviewer is a Gemini model when a key is available, otherwise the
	// OpenAI-compatible backend.
	switch {
	case cfg.GeminiAPIKey != "":
		c, err := geminiClient()
		if err != nil {
			closer.Close()
			return nil, nil, err
		}
		reviewer = NewGemini(c, cfg.ReviewModel)
	case cfg.OpenAIAPIKey != "":
		o, err := NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, "")
		if err != nil {
			closer.Close()
			return nil, nil, err
		}
		reviewer = o
	default:
		closer.Close()
		return nil, nil, fmt.Errorf("review requires GEMINI_API_KEY or OPENAI_API_KEY")
	}

	return NewReview(base, reviewer, log), closer, nil
}
