// Package summarizer generates section summaries for a transcript and binds
// every candidate quote back to the segments it was taken from.
package summarizer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"audiosummary/internal/aligner"
	"audiosummary/internal/apperror"
	"audiosummary/internal/performance"
	"audiosummary/internal/transcript"
)

const (
	DefaultSectionCount = 4
	DefaultStyle        = "study-notes"
)

// GenerationConfig describes the summary requested from the backend
type GenerationConfig struct {
	SectionCount    int
	Style           string
	Language        string
	IncludeSegments bool
}

// DefaultGenerationConfig returns the settings used when none are given
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		SectionCount:    DefaultSectionCount,
		Style:           DefaultStyle,
		IncludeSegments: true,
	}
}

// Assembler produces grounded summaries from a generation backend
type Assembler struct {
	backend GenerationBackend
	aligner *aligner.QuoteAligner
	monitor *performance.PerformanceMonitor
	logger  *zap.Logger
	now     func() time.Time
}

// NewAssembler creates an Assembler with a default quote aligner
func NewAssembler(backend GenerationBackend) *Assembler {
	return NewAssemblerWithConfig(zap.NewNop(), backend, nil, nil)
}

// NewAssemblerWithLogger creates an Assembler with a default quote aligner and custom logger
func NewAssemblerWithLogger(logger *zap.Logger, backend GenerationBackend) *Assembler {
	return NewAssemblerWithConfig(logger, backend, nil, nil)
}

// NewAssemblerWithConfig creates an Assembler. A nil aligner is replaced by
// one with default settings; monitor may be nil.
func NewAssemblerWithConfig(logger *zap.Logger, backend GenerationBackend, qa *aligner.QuoteAligner, monitor *performance.PerformanceMonitor) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if qa == nil {
		qa = aligner.NewQuoteAlignerWithLogger(logger)
	}
	return &Assembler{
		backend: backend,
		aligner: qa,
		monitor: monitor,
		logger:  logger,
		now:     time.Now,
	}
}

// GenerateSummaryWithQuotes asks the backend for sections, aligns every
// candidate quote against the transcript's segments and packages the
// result. It fails as a whole: no partially grounded summary is returned.
func (a *Assembler) GenerateSummaryWithQuotes(ctx context.Context, t *transcript.Transcript, cfg GenerationConfig) (*AudioSummaryWithQuotes, error) {
	const op = "generate_summary"

	if t == nil {
		return nil, apperror.InvalidInput(op, "transcript is nil")
	}
	if t.IsEmpty() {
		return nil, apperror.InvalidInput(op, "transcript has no text")
	}
	if err := t.Validate(); err != nil {
		return nil, apperror.InvalidInput(op, "transcript is invalid: %v", err)
	}
	if a.backend == nil {
		return nil, apperror.BackendUnavailable(op, "", fmt.Errorf("no generation backend configured"))
	}
	if cfg.SectionCount <= 0 {
		cfg.SectionCount = DefaultSectionCount
	}
	if strings.TrimSpace(cfg.Style) == "" {
		cfg.Style = DefaultStyle
	}
	if cfg.Language == "" {
		cfg.Language = t.Language
	}

	req := GenerationRequest{
		FullTranscript: t.FullTranscript,
		SectionCount:   cfg.SectionCount,
		Style:          cfg.Style,
		Language:       cfg.Language,
	}
	if cfg.IncludeSegments {
		req.Segments = t.Segments
	}

	a.logger.Info("generating summary",
		zap.String("transcript_id", t.ID),
		zap.Int("section_count", cfg.SectionCount),
		zap.String("style", cfg.Style),
		zap.Bool("include_segments", cfg.IncludeSegments))

	resp, err := a.backend.Generate(ctx, req)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindUnknown {
			err = apperror.BackendUnavailable(op, "", err)
		}
		a.logger.Error("generation backend failed", zap.Error(err))
		return nil, err
	}
	if resp == nil {
		return nil, apperror.MalformedResponse(op, "", fmt.Errorf("generation backend returned no response"))
	}
	if err := resp.Validate(); err != nil {
		return nil, apperror.MalformedResponse(op, "", err)
	}

	sections, aligned, dropped := a.alignSections(resp.Sections, t.Segments)

	// Alignment finished after the caller gave up; discard it.
	if err := ctx.Err(); err != nil {
		return nil, apperror.BackendUnavailable(op, "", err)
	}

	if a.monitor != nil {
		a.monitor.RecordSummary(aligned, dropped)
	}

	summary := &AudioSummaryWithQuotes{
		ID:             uuid.NewString(),
		TranscriptID:   t.ID,
		Sections:       sections,
		FullTranscript: t.FullTranscript,
		FullSegments:   t.Segments,
		SummaryText:    RenderSummaryText(sections),
		GeneratedAt:    a.now().UTC(),
	}

	a.logger.Info("summary assembled",
		zap.String("summary_id", summary.ID),
		zap.Int("sections", len(sections)),
		zap.Int("quotes_aligned", aligned),
		zap.Int("quotes_dropped", dropped))

	return summary, nil
}

func (a *Assembler) alignSections(raw []RawSection, segments []transcript.Segment) ([]SummarySectionWithQuotes, int, int) {
	sections := make([]SummarySectionWithQuotes, 0, len(raw))
	aligned, dropped := 0, 0

	for _, rs := range raw {
		quotes := make([]transcript.QuotedSegment, 0, len(rs.Quotes))
		seen := make(map[string]struct{}, len(rs.Quotes))

		for _, candidate := range rs.Quotes {
			candidate = strings.TrimSpace(candidate)
			if candidate == "" {
				continue
			}
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}

			q, ok := a.aligner.AlignQuote(candidate, segments)
			if !ok {
				dropped++
				continue
			}
			quotes = append(quotes, q)
			aligned++
		}

		sort.SliceStable(quotes, func(i, j int) bool {
			return quotes[i].StartTime < quotes[j].StartTime
		})

		sections = append(sections, SummarySectionWithQuotes{
			Title:   strings.TrimSpace(rs.Title),
			Content: strings.TrimSpace(rs.Content),
			Quotes:  quotes,
		})
	}

	return sections, aligned, dropped
}
