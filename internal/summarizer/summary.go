package summarizer

import (
	"fmt"
	"strings"
	"time"

	"audiosummary/internal/transcript"
)

// SummarySectionWithQuotes is one presented section of a summary. Quotes are
// ordered by start time.
type SummarySectionWithQuotes struct {
	Title   string                     `json:"title,omitempty"`
	Content string                     `json:"content"`
	Quotes  []transcript.QuotedSegment `json:"quotes"`
}

// AudioSummaryWithQuotes is a summary whose quotes are grounded in the
// segments of the transcript it was generated from.
type AudioSummaryWithQuotes struct {
	ID             string                     `json:"id"`
	TranscriptID   string                     `json:"transcript_id,omitempty"`
	Sections       []SummarySectionWithQuotes `json:"sections"`
	FullTranscript string                     `json:"full_transcript"`
	FullSegments   []transcript.Segment       `json:"full_segments"`
	SummaryText    string                     `json:"summary_text"`
	GeneratedAt    time.Time                  `json:"generated_at"`
}

// QuoteCount returns the number of grounded quotes across all sections
func (s *AudioSummaryWithQuotes) QuoteCount() int {
	n := 0
	for _, sec := range s.Sections {
		n += len(sec.Quotes)
	}
	return n
}

// RenderSummaryText flattens sections into plain text: the title line, the
// content, then one quote line per quote, with a blank line between sections.
func RenderSummaryText(sections []SummarySectionWithQuotes) string {
	blocks := make([]string, 0, len(sections))
	for _, sec := range sections {
		var lines []string
		if title := strings.TrimSpace(sec.Title); title != "" {
			lines = append(lines, title)
		}
		lines = append(lines, strings.TrimSpace(sec.Content))
		for _, q := range sec.Quotes {
			lines = append(lines, fmt.Sprintf("\"%s\" (%s)", q.Text, q.Formatted))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}
