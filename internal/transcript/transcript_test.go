package transcript

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment_Validation(t *testing.T) {
	tests := []struct {
		name          string
		segment       Segment
		expectedError string
	}{
		{
			name:    "valid segment",
			segment: Segment{ID: 0, StartTime: 1, EndTime: 2, Text: "hello"},
		},
		{
			name:    "zero length segment is allowed",
			segment: Segment{ID: 3, StartTime: 2, EndTime: 2, Text: "um"},
		},
		{
			name:          "empty text",
			segment:       Segment{ID: 0, StartTime: 1, EndTime: 2, Text: "  "},
			expectedError: "text cannot be empty",
		},
		{
			name:          "negative id",
			segment:       Segment{ID: -1, StartTime: 1, EndTime: 2, Text: "x"},
			expectedError: "id cannot be negative",
		},
		{
			name:          "negative start",
			segment:       Segment{ID: 0, StartTime: -1, EndTime: 2, Text: "x"},
			expectedError: "start_time cannot be negative",
		},
		{
			name:          "end before start",
			segment:       Segment{ID: 0, StartTime: 3, EndTime: 2, Text: "x"},
			expectedError: "end_time must not be before start_time",
		},
		{
			name:          "non-finite time",
			segment:       Segment{ID: 0, StartTime: math.NaN(), EndTime: 2, Text: "x"},
			expectedError: "must be finite",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.segment.Validate()

			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func TestTranscript_Validate(t *testing.T) {
	t.Run("should accept a well formed transcript", func(t *testing.T) {
		tr := Transcript{Segments: abcSegments(), Duration: 15, FullTranscript: "A B C"}

		assert.NoError(t, tr.Validate())
	})

	t.Run("should reject duration shorter than last segment", func(t *testing.T) {
		tr := Transcript{Segments: abcSegments(), Duration: 14}

		err := tr.Validate()

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "shorter than latest segment end")
	})

	t.Run("should measure duration against an overlapping earlier segment", func(t *testing.T) {
		tr := Transcript{
			Segments: []Segment{
				{ID: 0, StartTime: 0, EndTime: 12, Text: "outer"},
				{ID: 1, StartTime: 5, EndTime: 10, Text: "inner"},
			},
			Duration: 10,
		}

		err := tr.Validate()

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "latest segment end 12.000")
	})

	t.Run("should reject out of order segments", func(t *testing.T) {
		segments := abcSegments()
		segments[1], segments[2] = segments[2], segments[1]
		tr := Transcript{Segments: segments, Duration: 15}

		assert.Error(t, tr.Validate())
	})

	t.Run("should report empty transcripts", func(t *testing.T) {
		assert.True(t, (&Transcript{}).IsEmpty())
		assert.False(t, (&Transcript{FullTranscript: "text only"}).IsEmpty())
	})
}

func TestJoinSegmentText(t *testing.T) {
	assert.Equal(t, "A B C", JoinSegmentText(abcSegments()))
	assert.Equal(t, "", JoinSegmentText(nil))
	assert.Equal(t, 15.0, MaxEndTime(abcSegments()))
	assert.Equal(t, 0.0, MaxEndTime(nil))
	assert.Equal(t, 12.0, MaxEndTime([]Segment{
		{ID: 0, StartTime: 0, EndTime: 12, Text: "outer"},
		{ID: 1, StartTime: 5, EndTime: 10, Text: "inner"},
	}))
}

func TestTranscript_JSONShape(t *testing.T) {
	// Arrange
	tr := Transcript{
		ID:             "t-1",
		FullTranscript: "A",
		Segments:       []Segment{{ID: 0, StartTime: 0, EndTime: 1.5, Text: "A"}},
		Duration:       1.5,
	}
	expected := `{"id":"t-1","full_transcript":"A","segments":[{"id":0,"start_time":0,"end_time":1.5,"text":"A"}],"duration":1.5}`

	// Act
	b, err := json.Marshal(tr)

	// Assert
	require.NoError(t, err)
	assert.JSONEq(t, expected, string(b))
}
