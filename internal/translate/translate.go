// Package translate turns Caribbean dialect phrases into standard English
// using a hosted generative model or a locally served fine-tuned model.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput is returned when there is nothing to translate.
	ErrEmptyInput = errors.New("no text provided")
	// ErrEmptyResponse is returned when a backend answers without text.
	ErrEmptyResponse = errors.New("translation backend returned no text")
)

// Translator converts a dialect phrase into standard English.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
	Name() string
}

// Generator answers a free-form prompt. Hosted LLM backends implement it so
// the review loop can reuse them for correction and comparison.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Example is a few-shot dialect/English pair.
type Example struct {
	Dialect string
	English string
}

// FewShotExamples are embedded in the prompt sent to hosted models.
var FewShotExamples = []Example{
	{Dialect: "Mi soon come.", English: `"I will be right back."`},
	{Dialect: "Wagwan?", English: `"What's going on?" or "How are you?"`},
	{Dialect: "De ting sell off.", English: `"The event was very successful and sold out."`},
	{Dialect: "She a real topanaris.", English: `"She is a highly respected and important person."`},
}

// TrainingPrompt is the instruction the fine-tuned model was trained on.
// Dataset preparation and the local backend must agree on it.
func TrainingPrompt(text string) string {
	return fmt.Sprintf("Translate the following Caribbean dialect phrase to standard English: \"%s\"", text)
}

// FewShotPrompt builds the prompt for hosted generative models.
func FewShotPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString("Translate the following Caribbean dialect phrase to standard English.\n")
	sb.WriteString("Your goal is to preserve the original meaning, including idioms and cultural nuances.\n\n")
	sb.WriteString("**Examples:**\n")
	for _, ex := range FewShotExamples {
		fmt.Fprintf(&sb, "- Dialect: \"%s\"\n  Standard English: %s\n", ex.Dialect, ex.English)
	}
	sb.WriteString("\n**Translate this phrase:**\n")
	fmt.Fprintf(&sb, "- Dialect: \"%s\"\n  Standard English:", text)
	return sb.String()
}

// normalizeInput trims the phrase and rejects blank input.
func normalizeInput(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}
	return text, nil
}

// CleanOutput strips the decoration models tend to add around an answer:
// surrounding whitespace, a leading "Standard English:" label and matching
// quotes.
func CleanOutput(s string) string {
	s = strings.TrimSpace(s)
	for _, label := range []string{"Standard English:", "Corrected Translation:", "Translation:"} {
		if len(s) >= len(label) && strings.EqualFold(s[:len(label)], label) {
			s = strings.TrimSpace(s[len(label):])
		}
	}
	for _, q := range [][2]string{{`"`, `"`}, {"“", "”"}, {"'", "'"}} {
		if len(s) >= 2 && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			inner := s[len(q[0]) : len(s)-len(q[1])]
			// leave `"a" or "b"` alone
			if !strings.Contains(inner, q[0]) {
				s = strings.TrimSpace(inner)
			}
		}
	}
	return s
}

// translateWith runs the common validate/prompt/clean sequence for a generator.
func translateWith(ctx context.Context, g Generator, text string) (string, error) {
	text, err := normalizeInput(text)
	if err != nil {
		return "", err
	}
	out, err := g.Generate(ctx, FewShotPrompt(text))
	if err != nil {
		return "", err
	}
	out = CleanOutput(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
