package translate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// ReviewResult records every stage of a reviewed translation.
type ReviewResult struct {
	Dialect   string `json:"dialect"`
	Initial   string `json:"initial"`
	Corrected string `json:"corrected"`
	Final     string `json:"final"`
	Analysis  string `json:"analysis,omitempty"`
	// MeaningPreserved is nil when the comparison pass did not run.
	MeaningPreserved *bool `json:"meaning_preserved,omitempty"`
}

// Review wraps a base translator with a correction pass and a comparison
// pass on a reviewer model.
type Review struct {
	base     Translator
	reviewer Generator
	log      zerolog.Logger
}

// NewReview creates the review loop.
func NewReview(base Translator, reviewer Generator, log zerolog.Logger) *Review {
	return &Review{base: base, reviewer: reviewer, log: log}
}

// Name returns the backend label stored with translations.
func (r *Review) Name() string {
	return r.base.Name() + "+review"
}

// Translate implements Translator by returning the final translation.
func (r *Review) Translate(ctx context.Context, text string) (string, error) {
	res, err := r.Run(ctx, text)
	if err != nil {
		return "", err
	}
	return res.Final, nil
}

// Run executes the initial, correction and comparison passes. Only a
// failure of the initial translation is an error; the correction pass falls
// back to the initial translation and the comparison pass is advisory.
func (r *Review) Run(ctx context.Context, text string) (*ReviewResult, error) {
	text, err := normalizeInput(text)
	if err != nil {
		return nil, err
	}

	initial, err := r.base.Translate(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("initial translation: %w", err)
	}
	res := &ReviewResult{Dialect: text, Initial: initial, Corrected: initial, Final: initial}
	r.log.Debug().Str("dialect", text).Str("initial", initial).Msg("initial translation")

	corrected, err := r.reviewer.Generate(ctx, CorrectionPrompt(text, initial))
	switch {
	case err != nil:
		r.log.Warn().Err(err).Str("dialect", text).Msg("correction pass failed, keeping initial translation")
	case CleanOutput(corrected) == "":
		r.log.Warn().Str("dialect", text).Msg("correction pass returned nothing, keeping initial translation")
	default:
		res.Corrected = CleanOutput(corrected)
		res.Final = res.Corrected
	}

	analysis, err := r.reviewer.Generate(ctx, ComparisonPrompt(text, res.Final))
	if err != nil {
		r.log.Warn().Err(err).Str("dialect", text).Msg("comparison pass failed")
		return res, nil
	}
	res.Analysis = strings.TrimSpace(analysis)
	res.MeaningPreserved = ParseVerdict(res.Analysis)
	if res.MeaningPreserved != nil && !*res.MeaningPreserved {
		r.log.Warn().Str("dialect", text).Str("final", res.Final).Str("analysis", res.Analysis).
			Msg("translation may not fully match original meaning")
	}
	return res, nil
}

// CorrectionPrompt asks the reviewer to polish an initial translation.
func CorrectionPrompt(dialect, initial string) string {
	return fmt.Sprintf(`The following phrase is a standard English translation of a Caribbean dialect.
Review it for grammatical correctness, clarity, and natural phrasing.
If it's good, return it as is. If not, provide a corrected, more accurate version.

Original Dialect: "%s"
Initial Translation: "%s"

Corrected Translation:`, dialect, initial)
}

// ComparisonPrompt asks the reviewer whether meaning survived translation.
func ComparisonPrompt(dialect, final string) string {
	return fmt.Sprintf(`Compare the original dialect phrase with the final translation.
Does the translation accurately preserve the core meaning and nuance of the original?
Answer with "Yes" or "No", followed by a brief explanation.

Original Dialect: "%s"
Final Translation: "%s"

Analysis:`, dialect, final)
}

var noWord = regexp.MustCompile(`\bno\b`)

// ParseVerdict reads a comparison answer. A leading Yes or No decides; failing
// that, any standalone "no" marks the meaning as not preserved.
func ParseVerdict(analysis string) *bool {
	s := strings.ToLower(strings.TrimSpace(analysis))
	s = strings.TrimLeft(s, "*\"'`-# ")
	if s == "" {
		return nil
	}
	yes, no := true, false
	switch {
	case hasWordPrefix(s, "yes"):
		return &yes
	case hasWordPrefix(s, "no"):
		return &no
	case noWord.MatchString(s):
		return &no
	default:
		return &yes
	}
}

func hasWordPrefix(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	if len(s) == len(word) {
		return true
	}
	c := s[len(word)]
	return !(c >= 'a' && c <= 'z')
}
