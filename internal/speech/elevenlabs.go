package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	ElevenLabsEndpoint     = "https://api.elevenlabs.io/v1"
	ElevenLabsDefaultVoice = "21m00Tcm4TlvDq8ikWAM" // Rachel
	ElevenLabsDefaultModel = "eleven_multilingual_v2"
)

// ElevenLabs synthesizes speech with the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	apiKey     string
	voiceID    string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewElevenLabs creates a client. Empty voice and model select Rachel on
// eleven_multilingual_v2.
func NewElevenLabs(apiKey, voiceID, model string) (*ElevenLabs, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is not set")
	}
	if voiceID == "" {
		voiceID = ElevenLabsDefaultVoice
	}
	if model == "" {
		model = ElevenLabsDefaultModel
	}
	return &ElevenLabs{
		apiKey:     apiKey,
		voiceID:    voiceID,
		model:      model,
		endpoint:   ElevenLabsEndpoint,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// WithEndpoint points the client at a different API base URL.
func (e *ElevenLabs) WithEndpoint(endpoint string) *ElevenLabs {
	cp := *e
	cp.endpoint = strings.TrimRight(endpoint, "/")
	return &cp
}

// Name implements Synthesizer.
func (e *ElevenLabs) Name() string {
	return "elevenlabs:" + e.model
}

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize implements Synthesizer.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(elevenLabsRequest{Text: text, ModelID: e.model})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	u := e.endpoint + "/text-to-speech/" + url.PathEscape(e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", ContentType)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("elevenlabs returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp.Body, nil
}
