package dataset

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"patwa/internal/translate"
)

// Draft machine-translates a one-column comment CSV (header skipped) into
// prompt/response pairs for human review. Prompts carry the tec: prefix.
// Failed comments are left out and reported together.
func Draft(ctx context.Context, t translate.Translator, comments io.Reader, log zerolog.Logger) ([]Pair, error) {
	records, err := readCSV(comments)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	var pairs []Pair
	var result *multierror.Error
	for i, rec := range records[1:] {
		if err := ctx.Err(); err != nil {
			return pairs, err
		}
		if len(rec) == 0 || rec[0] == "" {
			continue
		}

		comment := rec[0]
		translated, err := t.Translate(ctx, comment)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("row %d: %w", i+2, err))
			continue
		}
		pairs = append(pairs, Pair{Prompt: DialectPrefix + comment, Response: translated})

		if (i+1)%10 == 0 {
			log.Info().Int("translated", i+1).Msg("Drafting translations")
		}
	}
	return pairs, result.ErrorOrNil()
}

// DraftFile runs Draft from inPath to outPath. Partial results are written
// even when some rows fail.
func DraftFile(ctx context.Context, t translate.Translator, inPath, outPath string, log zerolog.Logger) (int, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return 0, fmt.Errorf("input file not found: %w", err)
	}
	defer in.Close()

	pairs, draftErr := Draft(ctx, t, in, log)
	if err := writeFile(outPath, func(w io.Writer) error {
		return WritePairs(w, pairs)
	}); err != nil {
		return 0, err
	}
	return len(pairs), draftErr
}
