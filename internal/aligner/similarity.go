package aligner

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"audiosummary/internal/buffer"
)

const (
	// windowPenalty is subtracted per extra segment in a window
	windowPenalty = 0.05
	// maxSimilarityScore keeps tolerant matches distinguishable from exact ones
	maxSimilarityScore = 0.99
)

// similarity scores how well a candidate quote matches a window. It averages
// the Dice coefficient over content tokens with the edit ratio of the
// normalised texts, so window words missing from the quote and reordered
// words both lower the score.
func similarity(want []string, norm string, w buffer.BufferedContext) float64 {
	score := (dice(want, contentTokens(w.Text)) + editRatio(norm, normalize(w.Text))) / 2
	score *= 1 - windowPenalty*float64(w.Size()-1)
	if score > maxSimilarityScore {
		score = maxSimilarityScore
	}
	if score < 0 {
		score = 0
	}
	return score
}

// dice is 2|A∩B| / (|A|+|B|) over token multisets
func dice(a, b []string) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}

	counts := make(map[string]int, len(b))
	for _, tok := range b {
		counts[tok]++
	}

	shared := 0
	for _, tok := range a {
		if counts[tok] > 0 {
			counts[tok]--
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(a)+len(b))
}

// editRatio is 1 minus the rune edit distance over the longer length
func editRatio(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
