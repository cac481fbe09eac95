package dataset

import (
	"fmt"
	"io"
)

// MergeStats reports the sizes seen by MergeFiles.
type MergeStats struct {
	Original int
	New      int
	Merged   int
}

// Merge concatenates two pair lists, drops rows with an empty value and
// removes exact duplicates, keeping the first occurrence.
func Merge(original, drafts []Pair) []Pair {
	seen := make(map[Pair]struct{}, len(original)+len(drafts))
	merged := make([]Pair, 0, len(original)+len(drafts))
	for _, list := range [][]Pair{original, drafts} {
		for _, p := range list {
			if p.Prompt == "" || p.Response == "" {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged
}

// MergeFiles merges two prompt/response CSV files into outPath.
func MergeFiles(originalPath, draftsPath, outPath string) (MergeStats, error) {
	var stats MergeStats

	original, err := readPairsFile(originalPath)
	if err != nil {
		return stats, fmt.Errorf("failed to read %s: %w", originalPath, err)
	}
	drafts, err := readPairsFile(draftsPath)
	if err != nil {
		return stats, fmt.Errorf("failed to read %s: %w", draftsPath, err)
	}

	merged := Merge(original, drafts)
	err = writeFile(outPath, func(w io.Writer) error {
		return WritePairs(w, merged)
	})
	if err != nil {
		return stats, err
	}

	return MergeStats{Original: len(original), New: len(drafts), Merged: len(merged)}, nil
}
