package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GenerationParams are the decoding settings the fine-tuned model was
// evaluated with.
type GenerationParams struct {
	MaxLength     int  `json:"max_length"`
	NumBeams      int  `json:"num_beams"`
	EarlyStopping bool `json:"early_stopping"`
}

// DefaultGenerationParams matches single-phrase translation.
var DefaultGenerationParams = GenerationParams{MaxLength: 50, NumBeams: 5, EarlyStopping: true}

// LocalModel calls an HTTP inference server hosting the fine-tuned
// sequence-to-sequence model.
type LocalModel struct {
	endpoint   string
	params     GenerationParams
	httpClient *http.Client
}

// NewLocalModel creates a client for the inference endpoint.
func NewLocalModel(endpoint string, timeout time.Duration) (*LocalModel, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("local model endpoint is not set")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LocalModel{
		endpoint:   endpoint,
		params:     DefaultGenerationParams,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// WithParams returns a copy using different decoding settings.
func (m *LocalModel) WithParams(p GenerationParams) *LocalModel {
	cp := *m
	cp.params = p
	return &cp
}

// Name returns the backend label stored with translations.
func (m *LocalModel) Name() string {
	return "local"
}

type localRequest struct {
	Inputs     string           `json:"inputs"`
	Parameters GenerationParams `json:"parameters"`
}

type localGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// Translate implements Translator.
func (m *LocalModel) Translate(ctx context.Context, text string) (string, error) {
	text, err := normalizeInput(text)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(localRequest{Inputs: TrainingPrompt(text), Parameters: m.params})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("local model request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("local model returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	out, err := decodeGeneration(data)
	if err != nil {
		return "", err
	}
	out = CleanOutput(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// decodeGeneration accepts either a list of generations or a single object.
func decodeGeneration(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []localGeneration
		if err := json.Unmarshal(data, &list); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if len(list) == 0 {
			return "", ErrEmptyResponse
		}
		return list[0].GeneratedText, nil
	}
	var single localGeneration
	if err := json.Unmarshal(data, &single); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return single.GeneratedText, nil
}
