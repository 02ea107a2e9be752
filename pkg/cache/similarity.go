package cache

import (
	"fmt"
	"strings"
)

// similarityThreshold is the minimum token-set similarity a semantic or
// fuzzy candidate must reach to count as a hit.
const similarityThreshold = 0.8

// textSimilarity computes the token-set Jaccard similarity of two strings.
func textSimilarity(a, b string) float64 {
	wordsA := tokenSet(a)
	wordsB := tokenSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// valueSimilarity compares two normalized soft-key values. Numbers use
// proportional deviation, everything else token similarity.
func valueSimilarity(a, b any) float64 {
	na, aNum := asFloat(a)
	nb, bNum := asFloat(b)
	if aNum && bNum {
		if na == 0 || nb == 0 {
			if na == nb {
				return 1
			}
			return 0
		}
		diff := na - nb
		if diff < 0 {
			diff = -diff
		}
		max := na
		if nb > max {
			max = nb
		}
		return 1 - diff/max
	}
	return textSimilarity(stringify(a), stringify(b))
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
