package dataset

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"patwa/internal/translate"
)

// SampleScore is the evaluation of one validation record.
type SampleScore struct {
	Dialect   string  `json:"dialect"`
	Reference string  `json:"reference"`
	Candidate string  `json:"candidate"`
	BLEU      float64 `json:"bleu"`
	Err       string  `json:"error,omitempty"`
}

// Evaluation summarizes a validation run.
type Evaluation struct {
	Samples     []SampleScore `json:"samples"`
	AverageBLEU float64       `json:"average_bleu"`
}

// Evaluate translates every validation record and scores it against the
// reference. Failed samples score 0 and still count toward the average.
func Evaluate(ctx context.Context, t translate.Translator, validation []Example, log zerolog.Logger) (*Evaluation, error) {
	if len(validation) == 0 {
		return nil, fmt.Errorf("validation set is empty")
	}

	eval := &Evaluation{Samples: make([]SampleScore, 0, len(validation))}
	var result *multierror.Error
	total := 0.0

	for i, ex := range validation {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sample := SampleScore{Dialect: ex.Dialect(), Reference: ex.OutputText}
		candidate, err := t.Translate(ctx, sample.Dialect)
		if err != nil {
			sample.Err = err.Error()
			result = multierror.Append(result, fmt.Errorf("sample %d: %w", i+1, err))
		} else {
			sample.Candidate = candidate
			sample.BLEU = SentenceBLEU(ex.OutputText, candidate)
			total += sample.BLEU
		}

		log.Debug().
			Int("sample", i+1).
			Str("reference", sample.Reference).
			Str("candidate", sample.Candidate).
			Float64("bleu", sample.BLEU).
			Msg("Evaluated sample")
		eval.Samples = append(eval.Samples, sample)
	}

	eval.AverageBLEU = total / float64(len(validation))
	return eval, result.ErrorOrNil()
}
