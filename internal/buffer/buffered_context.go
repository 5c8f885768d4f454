package buffer

import "audiosummary/internal/transcript"

// BufferedContext is a run of consecutive transcript segments combined into
// one passage, used to match quotes that cross a segment boundary
type BufferedContext struct {
	Text       string  `json:"text"`
	FirstIndex int     `json:"first_index"`
	LastIndex  int     `json:"last_index"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
}

// Size returns the number of segments in the context
func (bc *BufferedContext) Size() int {
	return bc.LastIndex - bc.FirstIndex + 1
}

// SegmentIDs returns the ids of the covered segments from the source slice
func (bc *BufferedContext) SegmentIDs(segments []transcript.Segment) []int {
	ids := make([]int, 0, bc.Size())
	for i := bc.FirstIndex; i <= bc.LastIndex && i < len(segments); i++ {
		ids = append(ids, segments[i].ID)
	}
	return ids
}
