// Package buffer combines consecutive transcript segments into passages.
package buffer

import (
	"strings"

	"audiosummary/internal/transcript"
)

// ContextBuffer produces windows of consecutive segments over a transcript
type ContextBuffer struct {
	segments []transcript.Segment
}

// NewContextBuffer creates a new ContextBuffer over the given segments
func NewContextBuffer(segments []transcript.Segment) *ContextBuffer {
	return &ContextBuffer{segments: segments}
}

// Len returns the number of underlying segments
func (cb *ContextBuffer) Len() int {
	return len(cb.segments)
}

// Window combines segments[first:first+size] into a BufferedContext.
// It returns false when the window does not fit.
func (cb *ContextBuffer) Window(first, size int) (BufferedContext, bool) {
	if size < 1 || first < 0 || first+size > len(cb.segments) {
		return BufferedContext{}, false
	}

	last := first + size - 1
	textParts := make([]string, 0, size)
	for _, segment := range cb.segments[first : last+1] {
		textParts = append(textParts, segment.Text)
	}

	// Earliest start and latest end of the run
	return BufferedContext{
		Text:       strings.Join(textParts, " "),
		FirstIndex: first,
		LastIndex:  last,
		StartTime:  cb.segments[first].StartTime,
		EndTime:    transcript.MaxEndTime(cb.segments[first : last+1]),
	}, true
}

// WindowsOfSize returns every window of exactly size segments, earliest first
func (cb *ContextBuffer) WindowsOfSize(size int) []BufferedContext {
	if size < 1 || size > len(cb.segments) {
		return nil
	}

	windows := make([]BufferedContext, 0, len(cb.segments)-size+1)
	for first := 0; first+size <= len(cb.segments); first++ {
		w, _ := cb.Window(first, size)
		windows = append(windows, w)
	}
	return windows
}

// WindowsUpTo returns all windows of 1..maxSize segments ordered by start
// index, then by size
func (cb *ContextBuffer) WindowsUpTo(maxSize int) []BufferedContext {
	var windows []BufferedContext
	for first := 0; first < len(cb.segments); first++ {
		for size := 1; size <= maxSize; size++ {
			w, ok := cb.Window(first, size)
			if !ok {
				break
			}
			windows = append(windows, w)
		}
	}
	return windows
}
