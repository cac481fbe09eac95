// Package transcribe turns recorded speech into text with hosted services.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"patwa/internal/config"
)

var (
	// ErrIndexingFailed is returned when an uploaded video never becomes ready.
	ErrIndexingFailed = errors.New("video indexing failed")
	// ErrEmptyTranscript is returned when no speech was recognised.
	ErrEmptyTranscript = errors.New("empty transcript")
)

// Segment is a timed piece of a transcript. Times are in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the result of a transcription.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
	Language string    `json:"language,omitempty"`
	Provider string    `json:"provider"`
}

// Transcriber converts a local media file (or, for captions, a URL) into
// text.
type Transcriber interface {
	Transcribe(ctx context.Context, source string) (*Transcript, error)
	Name() string
}

// AudioOnly is implemented by transcribers that only listen to the
// soundtrack, so an audio stream is as good as the full video.
type AudioOnly interface {
	AudioOnly() bool
}

// joinSegments builds the full text from segments when a service returns
// only timed pieces.
func joinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// New builds the configured file transcriber. openAIKey and openAIBaseURL
// are used by the whisper provider.
func New(cfg config.TranscriptionConfig, openAIKey, openAIBaseURL string, log zerolog.Logger) (Transcriber, error) {
	switch cfg.Provider {
	case "twelvelabs":
		return NewTwelveLabs(cfg, log)
	case "whisper":
		return NewWhisper(openAIKey, openAIBaseURL, cfg.Language)
	default:
		return nil, fmt.Errorf("unknown transcription provider: %s", cfg.Provider)
	}
}
