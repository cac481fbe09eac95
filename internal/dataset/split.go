package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	DefaultTestFraction = 0.2
	DefaultSeed         = 42
)

// Split shuffles examples with seed and separates a validation set of
// ceil(n*testFraction) records (at least one). At least two examples are
// required.
func Split(examples []Example, testFraction float64, seed int64) (train, validation []Example, err error) {
	n := len(examples)
	if n < 2 {
		return nil, nil, fmt.Errorf("not enough data to split: need at least 2 samples, got %d", n)
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be between 0 and 1, got %v", testFraction)
	}

	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	validation = make([]Example, 0, nTest)
	train = make([]Example, 0, n-nTest)
	for i, idx := range perm {
		if i < nTest {
			validation = append(validation, examples[idx])
		} else {
			train = append(train, examples[idx])
		}
	}
	return train, validation, nil
}

// SplitFile splits a JSONL file into train and validation files.
func SplitFile(inPath, trainPath, validationPath string, testFraction float64, seed int64) (int, int, error) {
	examples, err := ReadJSONLFile(inPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read %s: %w", inPath, err)
	}
	train, validation, err := Split(examples, testFraction, seed)
	if err != nil {
		return 0, 0, err
	}
	if err := WriteJSONLFile(trainPath, train); err != nil {
		return 0, 0, err
	}
	if err := WriteJSONLFile(validationPath, validation); err != nil {
		return 0, 0, err
	}
	return len(train), len(validation), nil
}
