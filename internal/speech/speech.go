// Package speech synthesizes spoken audio for translated text.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"patwa/internal/config"
)

// ErrEmptyText is returned when there is nothing to speak.
var ErrEmptyText = errors.New("no text to synthesize")

// Synthesizer converts text to an MP3 stream. The caller closes the stream.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
	Name() string
}

// ContentType is the media type every synthesizer produces.
const ContentType = "audio/mpeg"

const maxNameRunes = 80

// OutputName derives the audio file name from the dialect phrase:
// translated_<phrase with spaces as underscores, lower-cased>.mp3.
func OutputName(phrase string) string {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	var sb strings.Builder
	n := 0
	for _, r := range phrase {
		if n >= maxNameRunes {
			break
		}
		switch {
		case r == ' ':
			sb.WriteRune('_')
		case strings.ContainsRune(`/\:*?"<>|`, r), !unicode.IsPrint(r):
			continue
		default:
			sb.WriteRune(r)
		}
		n++
	}
	name := strings.Trim(sb.String(), ".")
	if name == "" {
		name = "audio"
	}
	return "translated_" + filepath.Base(name) + ".mp3"
}

// New builds the configured synthesizer. It returns nil when speech is
// disabled.
func New(cfg config.SpeechConfig, openAIKey string) (Synthesizer, error) {
	switch cfg.Provider {
	case "none", "":
		return nil, nil
	case "elevenlabs":
		return NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.VoiceID, cfg.Model)
	case "openai":
		return NewOpenAI(openAIKey, "", "")
	default:
		return nil, fmt.Errorf("unknown speech provider: %s", cfg.Provider)
	}
}
