// Package aligner resolves free-text candidate quotes back to the time-coded
// transcript segments they were taken from.
package aligner

import (
	"strings"

	"go.uber.org/zap"

	"audiosummary/internal/apperror"
	"audiosummary/internal/buffer"
	"audiosummary/internal/transcript"
)

const (
	// DefaultSimilarityThreshold is the minimum similarity score for a tolerant match
	DefaultSimilarityThreshold = 0.8
	// DefaultMaxWindow is the largest run of consecutive segments a quote may span
	DefaultMaxWindow = 3
)

// MatchStage records which step of the matching policy resolved a quote
type MatchStage string

const (
	StageExact      MatchStage = "exact"
	StageWindow     MatchStage = "window"
	StageSimilarity MatchStage = "similarity"
)

// QuoteAligner grounds candidate quotes in transcript segments. It is
// stateless apart from its settings and safe for concurrent use.
type QuoteAligner struct {
	logger    *zap.Logger
	threshold float64
	maxWindow int
}

// NewQuoteAligner creates a QuoteAligner with default settings
func NewQuoteAligner() *QuoteAligner {
	return NewQuoteAlignerWithConfig(zap.NewNop(), DefaultSimilarityThreshold, DefaultMaxWindow)
}

// NewQuoteAlignerWithLogger creates a QuoteAligner with default settings and the given logger
func NewQuoteAlignerWithLogger(logger *zap.Logger) *QuoteAligner {
	return NewQuoteAlignerWithConfig(logger, DefaultSimilarityThreshold, DefaultMaxWindow)
}

// NewQuoteAlignerWithConfig creates a QuoteAligner with explicit settings.
// Out of range values fall back to the defaults.
func NewQuoteAlignerWithConfig(logger *zap.Logger, threshold float64, maxWindow int) *QuoteAligner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	if maxWindow < 1 {
		maxWindow = DefaultMaxWindow
	}
	return &QuoteAligner{
		logger:    logger,
		threshold: threshold,
		maxWindow: maxWindow,
	}
}

// Threshold returns the similarity threshold in use
func (qa *QuoteAligner) Threshold() float64 {
	return qa.threshold
}

// MaxWindow returns the largest window size in use
func (qa *QuoteAligner) MaxWindow() int {
	return qa.maxWindow
}

// AlignQuote resolves candidate to the segment or run of segments it came
// from. It returns false when no match clears the policy; timestamps are
// never invented.
func (qa *QuoteAligner) AlignQuote(candidate string, segments []transcript.Segment) (transcript.QuotedSegment, bool) {
	quote, stage, ok := qa.align(candidate, segments)
	if !ok {
		qa.logger.Debug("quote dropped",
			zap.String("kind", apperror.KindAlignmentUnresolved.String()),
			zap.String("candidate", candidate),
			zap.Int("segment_count", len(segments)))
		return transcript.QuotedSegment{}, false
	}

	qa.logger.Debug("quote aligned",
		zap.String("stage", string(stage)),
		zap.String("candidate", candidate),
		zap.Float64("start_time", quote.StartTime),
		zap.Float64("end_time", quote.EndTime),
		zap.Ints("segment_ids", quote.SegmentIDs),
		zap.Float64("score", quote.Score))
	return quote, true
}

func (qa *QuoteAligner) align(candidate string, segments []transcript.Segment) (transcript.QuotedSegment, MatchStage, bool) {
	text := strings.TrimSpace(candidate)
	if text == "" || len(segments) == 0 {
		return transcript.QuotedSegment{}, "", false
	}

	cb := buffer.NewContextBuffer(segments)
	norm := normalize(text)

	if w, ok := qa.matchExact(cb, text, norm); ok {
		return buildQuote(text, w, segments, 1), StageExact, true
	}

	if w, ok := qa.matchWindow(cb, text, norm); ok {
		return buildQuote(text, w, segments, 1), StageWindow, true
	}

	if w, score, ok := qa.matchSimilar(cb, text); ok {
		return buildQuote(text, w, segments, score), StageSimilarity, true
	}

	return transcript.QuotedSegment{}, "", false
}

// matchExact looks for a single segment equal to, then containing, the
// candidate; raw text is tried before normalised text and the lowest index wins
func (qa *QuoteAligner) matchExact(cb *buffer.ContextBuffer, text, norm string) (buffer.BufferedContext, bool) {
	singles := cb.WindowsOfSize(1)

	checks := []func(w buffer.BufferedContext) bool{
		func(w buffer.BufferedContext) bool { return strings.TrimSpace(w.Text) == text },
		func(w buffer.BufferedContext) bool { return containsAtBoundary(w.Text, text) },
		func(w buffer.BufferedContext) bool { return norm != "" && normalize(w.Text) == norm },
		func(w buffer.BufferedContext) bool { return containsNormalized(w.Text, norm) },
	}

	for _, check := range checks {
		for _, w := range singles {
			if check(w) {
				return w, true
			}
		}
	}
	return buffer.BufferedContext{}, false
}

// matchWindow tries runs of 2..maxWindow segments, smallest size first and
// earliest start within a size
func (qa *QuoteAligner) matchWindow(cb *buffer.ContextBuffer, text, norm string) (buffer.BufferedContext, bool) {
	for size := 2; size <= qa.maxWindow; size++ {
		for _, w := range cb.WindowsOfSize(size) {
			if containsAtBoundary(w.Text, text) || containsNormalized(w.Text, norm) {
				return w, true
			}
		}
	}
	return buffer.BufferedContext{}, false
}

// matchSimilar scores every window up to maxWindow and keeps the best one.
// Ties go to the earliest start and then the smaller window.
func (qa *QuoteAligner) matchSimilar(cb *buffer.ContextBuffer, text string) (buffer.BufferedContext, float64, bool) {
	want := contentTokens(text)
	if len(want) == 0 {
		return buffer.BufferedContext{}, 0, false
	}

	wanted := make(map[string]struct{}, len(want))
	for _, tok := range want {
		wanted[tok] = struct{}{}
	}

	segTokens := make([][]string, cb.Len())
	for i := range segTokens {
		w, _ := cb.Window(i, 1)
		segTokens[i] = strings.Fields(normalize(w.Text))
	}

	norm := normalize(text)

	var (
		best      buffer.BufferedContext
		bestScore float64
		found     bool
	)

	for _, w := range cb.WindowsUpTo(qa.maxWindow) {
		// Windows padded with segments that share nothing with the quote are
		// never better than the window without them
		if !contributes(segTokens[w.FirstIndex], wanted) || !contributes(segTokens[w.LastIndex], wanted) {
			continue
		}

		score := similarity(want, norm, w)
		if score > bestScore {
			best, bestScore, found = w, score, true
		}
	}

	if !found || bestScore < qa.threshold {
		qa.logger.Debug("no window cleared similarity threshold",
			zap.Float64("best_score", bestScore),
			zap.Float64("threshold", qa.threshold))
		return buffer.BufferedContext{}, 0, false
	}
	return best, bestScore, true
}

func containsNormalized(haystack, norm string) bool {
	if norm == "" {
		return false
	}
	return strings.Contains(" "+normalize(haystack)+" ", " "+norm+" ")
}

func contributes(tokens []string, wanted map[string]struct{}) bool {
	for _, tok := range tokens {
		if _, ok := wanted[tok]; ok {
			return true
		}
	}
	return false
}

func buildQuote(text string, w buffer.BufferedContext, segments []transcript.Segment, score float64) transcript.QuotedSegment {
	return transcript.QuotedSegment{
		StartTime:  w.StartTime,
		EndTime:    w.EndTime,
		Text:       text,
		Formatted:  transcript.FormatTime(w.StartTime),
		SegmentIDs: w.SegmentIDs(segments),
		Score:      score,
	}
}
