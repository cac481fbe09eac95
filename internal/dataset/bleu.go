package dataset

import (
	"math"
	"strings"
)

const (
	maxNGram      = 4
	smoothEpsilon = 0.1
)

// SentenceBLEU scores candidate against reference with uniform 1-4 gram
// weights, the standard brevity penalty and epsilon smoothing of zero
// n-gram matches. Tokens are whitespace separated. A candidate with no
// matching unigram scores 0.
func SentenceBLEU(reference, candidate string) float64 {
	ref := strings.Fields(reference)
	hyp := strings.Fields(candidate)
	if len(hyp) == 0 {
		return 0
	}

	logSum := 0.0
	for n := 1; n <= maxNGram; n++ {
		matches, total := clippedMatches(ref, hyp, n)
		if n == 1 && matches == 0 {
			return 0
		}
		denom := float64(max(total, 1))
		var p float64
		if matches == 0 {
			p = smoothEpsilon / denom
		} else {
			p = float64(matches) / denom
		}
		logSum += math.Log(p) / maxNGram
	}

	return brevityPenalty(len(ref), len(hyp)) * math.Exp(logSum)
}

// clippedMatches counts candidate n-grams found in the reference, each
// clipped to its reference count, and the total candidate n-grams.
func clippedMatches(ref, hyp []string, n int) (matches, total int) {
	refCounts := ngramCounts(ref, n)
	hypCounts := ngramCounts(hyp, n)
	for gram, c := range hypCounts {
		total += c
		matches += min(c, refCounts[gram])
	}
	return matches, total
}

func ngramCounts(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return counts
}

func brevityPenalty(refLen, hypLen int) float64 {
	if hypLen > refLen {
		return 1
	}
	if hypLen == 0 {
		return 0
	}
	return math.Exp(1 - float64(refLen)/float64(hypLen))
}
