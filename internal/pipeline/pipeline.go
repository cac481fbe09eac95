// Package pipeline runs the text path of the service: translate a dialect
// phrase, optionally voice the result, and record it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"patwa/internal/blob"
	"patwa/internal/models"
	"patwa/internal/speech"
	"patwa/internal/storage"
	"patwa/internal/translate"
)

// ErrSynthesis wraps failures of the speech step.
var ErrSynthesis = errors.New("failed to generate audio")

// AudioPrefix is the blob key prefix for synthesized audio.
const AudioPrefix = "audio/"

// Result is what a caller gets back for one phrase.
type Result struct {
	ID         string                  `json:"id"`
	Dialect    string                  `json:"dialect"`
	Translated string                  `json:"translated"`
	AudioURL   string                  `json:"audioUrl,omitempty"`
	Review     *translate.ReviewResult `json:"review,omitempty"`
}

type reviewer interface {
	Run(ctx context.Context, text string) (*translate.ReviewResult, error)
}

// TranslationStore is the subset of the translation repository used here.
type TranslationStore interface {
	Create(ctx context.Context, t *models.Translation) error
	SetAudioKey(ctx context.Context, id, key string) error
	DeleteBySourceID(ctx context.Context, sourceID string) error
}

var _ TranslationStore = (*storage.TranslationRepository)(nil)

// Service composes translation, speech and storage.
type Service struct {
	translator   translate.Translator
	synthesizer  speech.Synthesizer
	store        blob.Store
	translations TranslationStore
	log          zerolog.Logger
}

// New creates a Service. synthesizer may be nil when speech is disabled.
func New(t translate.Translator, synth speech.Synthesizer, store blob.Store, translations TranslationStore, log zerolog.Logger) *Service {
	return &Service{
		translator:   t,
		synthesizer:  synth,
		store:        store,
		translations: translations,
		log:          log,
	}
}

// SpeechEnabled reports whether a synthesizer is configured.
func (s *Service) SpeechEnabled() bool {
	return s.synthesizer != nil
}

// Translate converts text and records a translation row owned by sourceID,
// which may be empty. It does not synthesize audio.
func (s *Service) Translate(ctx context.Context, sourceID, text string) (*Result, *models.Translation, error) {
	row := &models.Translation{SourceID: sourceID, Provider: s.translator.Name()}
	res := &Result{}

	if rv, ok := s.translator.(reviewer); ok {
		review, err := rv.Run(ctx, text)
		if err != nil {
			return nil, nil, err
		}
		res.Dialect = review.Dialect
		res.Translated = review.Final
		res.Review = review
		row.Initial = review.Initial
		row.Analysis = review.Analysis
		row.MeaningPreserved = review.MeaningPreserved
	} else {
		out, err := s.translator.Translate(ctx, text)
		if err != nil {
			return nil, nil, err
		}
		res.Dialect = strings.TrimSpace(text)
		res.Translated = out
	}

	row.Dialect = res.Dialect
	row.Translated = res.Translated
	if err := s.translations.Create(ctx, row); err != nil {
		return nil, nil, err
	}
	res.ID = row.ID

	s.log.Info().
		Str("id", row.ID).
		Str("provider", row.Provider).
		Str("dialect", res.Dialect).
		Str("translated", res.Translated).
		Msg("translated")
	return res, row, nil
}

// Forget drops the translations recorded for sourceID, before the source
// is processed again.
func (s *Service) Forget(ctx context.Context, sourceID string) error {
	return s.translations.DeleteBySourceID(ctx, sourceID)
}

// TranslateText translates text and, when withAudio is set and speech is
// enabled, voices the translation.
func (s *Service) TranslateText(ctx context.Context, text string, withAudio bool) (*Result, error) {
	res, row, err := s.Translate(ctx, "", text)
	if err != nil {
		return nil, err
	}
	if !withAudio || s.synthesizer == nil {
		return res, nil
	}

	key, err := s.Voice(ctx, row)
	if err != nil {
		return nil, err
	}
	res.AudioURL, err = s.store.URL(ctx, key)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Voice speaks a recorded translation and attaches the audio key to it.
func (s *Service) Voice(ctx context.Context, row *models.Translation) (string, error) {
	key, err := s.Speak(ctx, row.Dialect, row.Translated)
	if err != nil {
		return "", err
	}
	if err := s.translations.SetAudioKey(ctx, row.ID, key); err != nil {
		return "", err
	}
	row.AudioKey = key
	return key, nil
}

// Speak synthesizes translated and stores it under a name derived from the
// dialect phrase. It returns the blob key.
func (s *Service) Speak(ctx context.Context, dialect, translated string) (string, error) {
	if s.synthesizer == nil {
		return "", fmt.Errorf("%w: speech is disabled", ErrSynthesis)
	}
	audio, err := s.synthesizer.Synthesize(ctx, translated)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	defer audio.Close()

	key, err := s.store.Put(ctx, AudioPrefix+speech.OutputName(dialect), audio, -1, speech.ContentType)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	s.log.Debug().Str("key", key).Str("provider", s.synthesizer.Name()).Msg("audio stored")
	return key, nil
}

// OpenAudio returns the stored audio under key. The caller closes it.
func (s *Service) OpenAudio(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.store.Open(ctx, key)
}

// AudioURL resolves a stored audio key to a URL.
func (s *Service) AudioURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return s.store.URL(ctx, key)
}
