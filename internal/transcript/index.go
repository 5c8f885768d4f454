package transcript

// FindSegmentByTime returns the first segment, in start order, whose closed
// interval contains t. On a boundary shared by two touching segments the
// earlier one wins. Segments must be sorted by start time; they may overlap.
func FindSegmentByTime(segments []Segment, t float64) (Segment, bool) {
	if !isFinite(t) {
		return Segment{}, false
	}

	// An overlapping earlier segment can outlast later ones, so EndTime is not
	// monotonic and cannot be bisected. Stop once segments start after t.
	for _, s := range segments {
		if s.StartTime > t {
			break
		}
		if s.Contains(t) {
			return s, true
		}
	}
	return Segment{}, false
}

// SegmentsInRange returns the segments overlapping the closed interval [from, to]
func SegmentsInRange(segments []Segment, from, to float64) []Segment {
	if to < from {
		return nil
	}

	var out []Segment
	for _, s := range segments {
		if s.StartTime > to {
			break
		}
		if s.EndTime >= from {
			out = append(out, s)
		}
	}
	return out
}
