package output

import (
	"fmt"
	"strings"

	"audiosummary/internal/summarizer"
	"audiosummary/internal/transcript"
)

// Metadata is shown in the header of rendered documents
type Metadata struct {
	Title   string
	Source  string
	Backend string
	Model   string
}

func writeHeader(b *strings.Builder, meta Metadata, fallbackTitle string, duration float64) {
	title := meta.Title
	if title == "" {
		title = fallbackTitle
	}
	fmt.Fprintf(b, "# %s\n\n", title)

	if meta.Source != "" {
		fmt.Fprintf(b, "- Source: `%s`\n", meta.Source)
	}
	if meta.Backend != "" {
		fmt.Fprintf(b, "- Backend: `%s`\n", meta.Backend)
	}
	if meta.Model != "" {
		fmt.Fprintf(b, "- Model: `%s`\n", meta.Model)
	}
	if duration > 0 {
		fmt.Fprintf(b, "- Duration: %s\n", transcript.FormatTime(duration))
	}
	b.WriteString("\n---\n\n")
}

// RenderTranscriptMarkdown renders each segment on its own line with its time range
func RenderTranscriptMarkdown(meta Metadata, t *transcript.Transcript) string {
	var b strings.Builder
	writeHeader(&b, meta, "Transcript", t.Duration)

	for _, s := range t.Segments {
		fmt.Fprintf(&b, "[%s-%s] %s\n\n",
			transcript.FormatTime(s.StartTime),
			transcript.FormatTime(s.EndTime),
			strings.TrimSpace(s.Text))
	}
	return b.String()
}

// RenderSummaryMarkdown renders sections with their quotes as block quotes
// stamped with the time they were spoken.
func RenderSummaryMarkdown(meta Metadata, s *summarizer.AudioSummaryWithQuotes) string {
	var b strings.Builder
	writeHeader(&b, meta, "Summary", transcript.MaxEndTime(s.FullSegments))

	for i, sec := range s.Sections {
		title := strings.TrimSpace(sec.Title)
		if title == "" {
			title = fmt.Sprintf("Section %d", i+1)
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", title, strings.TrimSpace(sec.Content))

		for _, q := range sec.Quotes {
			fmt.Fprintf(&b, "> [%s] %s\n\n", q.Formatted, q.Text)
		}
	}

	if len(s.Sections) == 0 {
		b.WriteString("_No sections were generated._\n")
	}
	return b.String()
}

// RenderQuoteContext renders the segments around a quote, marking the ones it covers
func RenderQuoteContext(q transcript.QuotedSegment, segments []transcript.Segment, padding float64) string {
	covered := make(map[int]bool, len(q.SegmentIDs))
	for _, id := range q.SegmentIDs {
		covered[id] = true
	}

	var b strings.Builder
	for _, s := range transcript.SegmentsInRange(segments, q.StartTime-padding, q.EndTime+padding) {
		marker := " "
		if covered[s.ID] {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s [%s] %s\n", marker, transcript.FormatTime(s.StartTime), s.Text)
	}
	return b.String()
}
