package dataset

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Prepare converts dialect/English CSV rows into fine-tuning records.
// The header row, short rows and rows with an empty side are skipped.
func Prepare(r io.Reader) ([]Example, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input has no header row")
	}

	var examples []Example
	for _, rec := range records[1:] {
		if len(rec) < 2 {
			continue
		}
		dialect := StripDialectPrefix(rec[0])
		english := strings.TrimSpace(rec[1])
		if dialect == "" || english == "" {
			continue
		}
		examples = append(examples, NewExample(dialect, english))
	}
	return examples, nil
}

// PrepareFile reads a CSV file and writes the JSONL training file. It
// returns the number of records written.
func PrepareFile(inPath, outPath string) (int, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return 0, fmt.Errorf("input file not found: %w", err)
	}
	defer in.Close()

	examples, err := Prepare(in)
	if err != nil {
		return 0, err
	}
	if err := WriteJSONLFile(outPath, examples); err != nil {
		return 0, err
	}
	return len(examples), nil
}
