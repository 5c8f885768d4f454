// Package transcript holds the time-indexed transcript model shared by the
// transcription and summary assemblers: segments, point-in-time lookup and
// clock formatting.
package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Transcript is the full result of transcribing one audio source.
// It is read-only once assembled.
type Transcript struct {
	ID             string          `json:"id"`
	FullTranscript string          `json:"full_transcript"`
	Segments       []Segment       `json:"segments"`
	Duration       float64         `json:"duration"`
	Language       string          `json:"language,omitempty"`
	Raw            json.RawMessage `json:"raw,omitempty"`
}

// JoinSegmentText joins segment texts in order with a single space
func JoinSegmentText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

// MaxEndTime returns the latest end time over all segments, or 0 when there
// are none. Segments are ordered by start, so an earlier segment that overlaps
// a later one can end last.
func MaxEndTime(segments []Segment) float64 {
	var end float64
	for _, s := range segments {
		if s.EndTime > end {
			end = s.EndTime
		}
	}
	return end
}

// IsEmpty reports whether the transcript carries no usable text
func (t *Transcript) IsEmpty() bool {
	return len(t.Segments) == 0 && strings.TrimSpace(t.FullTranscript) == ""
}

// Validate checks the ordering and duration invariants of the transcript
func (t *Transcript) Validate() error {
	for i := range t.Segments {
		seg := t.Segments[i]
		if err := seg.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		if i > 0 {
			prev := t.Segments[i-1]
			if seg.StartTime < prev.StartTime {
				return fmt.Errorf("segment %d starts before segment %d", i, i-1)
			}
			if seg.ID <= prev.ID {
				return fmt.Errorf("segment %d id %d is not increasing", i, seg.ID)
			}
		}
	}

	if !isFinite(t.Duration) || t.Duration < 0 {
		return fmt.Errorf("duration must be a non-negative finite number")
	}

	if end := MaxEndTime(t.Segments); t.Duration < end {
		return fmt.Errorf("duration %.3f is shorter than latest segment end %.3f", t.Duration, end)
	}

	return nil
}
