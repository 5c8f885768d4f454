package transcript

import "fmt"

// QuotedSegment is a quote grounded in time against a transcript's segments
type QuotedSegment struct {
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Text       string  `json:"text"`
	Formatted  string  `json:"formatted"`
	SegmentIDs []int   `json:"segment_ids"`
	Score      float64 `json:"score"`
}

// Validate checks the quote against the duration of the transcript it came from
func (q *QuotedSegment) Validate(duration float64) error {
	if q.Text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	if q.EndTime < q.StartTime {
		return fmt.Errorf("end_time must not be before start_time")
	}

	if q.StartTime < 0 || q.EndTime > duration {
		return fmt.Errorf("quote [%.3f, %.3f] lies outside [0, %.3f]", q.StartTime, q.EndTime, duration)
	}

	if q.Formatted != FormatTime(q.StartTime) {
		return fmt.Errorf("formatted %q does not match start_time", q.Formatted)
	}

	return nil
}
