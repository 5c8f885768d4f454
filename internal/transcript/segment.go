package transcript

import (
	"fmt"
	"math"
	"strings"
)

// Segment represents one contiguous span of recognized speech within a transcript
type Segment struct {
	ID        int     `json:"id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Text      string  `json:"text"`
}

// Contains reports whether t falls inside the closed interval [StartTime, EndTime]
func (s Segment) Contains(t float64) bool {
	return s.StartTime <= t && t <= s.EndTime
}

// Validate checks if the Segment has valid values
func (s *Segment) Validate() error {
	if strings.TrimSpace(s.Text) == "" {
		return fmt.Errorf("text cannot be empty")
	}

	if s.ID < 0 {
		return fmt.Errorf("id cannot be negative")
	}

	if !isFinite(s.StartTime) || !isFinite(s.EndTime) {
		return fmt.Errorf("start_time and end_time must be finite")
	}

	if s.StartTime < 0 {
		return fmt.Errorf("start_time cannot be negative")
	}

	if s.EndTime < s.StartTime {
		return fmt.Errorf("end_time must not be before start_time")
	}

	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
