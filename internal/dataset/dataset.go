// Package dataset builds and evaluates the dialect/English training data
// used to fine-tune the translation model.
package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"patwa/internal/translate"
)

// DialectPrefix marks the dialect column of translation CSVs.
const DialectPrefix = "tec:"

// Example is one fine-tuning record.
type Example struct {
	InputText  string `json:"input_text"`
	OutputText string `json:"output_text"`
}

// Pair is one (prompt, response) CSV row.
type Pair struct {
	Prompt   string
	Response string
}

// NewExample builds a training record from a dialect phrase and its
// standard English translation.
func NewExample(dialect, english string) Example {
	return Example{
		InputText:  translate.TrainingPrompt(dialect),
		OutputText: english,
	}
}

// Dialect recovers the dialect phrase from the training prompt.
func (e Example) Dialect() string {
	s := strings.TrimSpace(e.InputText)
	prefix := strings.TrimSuffix(translate.TrainingPrompt(""), `""`)
	if !strings.HasPrefix(s, prefix) {
		return s
	}
	s = strings.TrimPrefix(s, prefix)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	return s
}

// StripDialectPrefix removes the tec: marker and surrounding whitespace.
func StripDialectPrefix(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, DialectPrefix, ""))
}

// ReadJSONL reads one Example per line. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]Example, error) {
	var examples []Example
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var e Example
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		examples = append(examples, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read jsonl: %w", err)
	}
	return examples, nil
}

// WriteJSONL writes one Example per line.
func WriteJSONL(w io.Writer, examples []Example) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, e := range examples {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

// ReadJSONLFile reads a JSONL file.
func ReadJSONLFile(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSONL(f)
}

// WriteJSONLFile writes a JSONL file, creating parent directories.
func WriteJSONLFile(path string, examples []Example) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteJSONL(w, examples)
	})
}

// ReadPairs reads a two-column CSV, skipping the header row. Rows with a
// missing column keep an empty value.
func ReadPairs(r io.Reader) ([]Pair, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	pairs := make([]Pair, 0, len(records)-1)
	for _, rec := range records[1:] {
		var p Pair
		if len(rec) > 0 {
			p.Prompt = rec[0]
		}
		if len(rec) > 1 {
			p.Response = rec[1]
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// WritePairs writes pairs under a prompt,response header.
func WritePairs(w io.Writer, pairs []Pair) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"prompt", "response"}); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := cw.Write([]string{p.Prompt, p.Response}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func readPairsFile(path string) ([]Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPairs(f)
}

func writeFile(path string, fn func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
