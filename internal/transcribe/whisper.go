package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"patwa/internal/media"
)

// Whisper transcribes with the OpenAI audio transcription endpoint.
type Whisper struct {
	client   *openai.Client
	language string

	// extractAudio reduces video input to 16 kHz mono WAV so uploads stay
	// under the size limit.
	extractAudio func(ctx context.Context, in, out string) error
}

// NewWhisper creates a Whisper transcriber.
func NewWhisper(apiKey, baseURL, language string) (*Whisper, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Whisper{
		client:       openai.NewClientWithConfig(cfg),
		language:     language,
		extractAudio: media.ExtractAudio,
	}, nil
}

// Name implements Transcriber.
func (w *Whisper) Name() string {
	return "whisper"
}

// AudioOnly implements AudioOnly.
func (w *Whisper) AudioOnly() bool { return true }

// Transcribe implements Transcriber.
func (w *Whisper) Transcribe(ctx context.Context, path string) (*Transcript, error) {
	audioPath := path
	if media.IsVideo(path) {
		tmpDir, err := os.MkdirTemp("", "patwa-whisper-")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		audioPath = filepath.Join(tmpDir, "audio.wav")
		if err := w.extractAudio(ctx, path, audioPath); err != nil {
			return nil, fmt.Errorf("failed to extract audio: %w", err)
		}
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: w.language,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w", err)
	}

	segments := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)})
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		text = joinSegments(segments)
	}
	if text == "" {
		return nil, ErrEmptyTranscript
	}

	language := resp.Language
	if language == "" {
		language = w.language
	}
	return &Transcript{
		Text:     text,
		Segments: segments,
		Language: language,
		Provider: w.Name(),
	}, nil
}
