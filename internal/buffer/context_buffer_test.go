package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audiosummary/internal/transcript"
)

func testSegments() []transcript.Segment {
	return []transcript.Segment{
		{ID: 0, StartTime: 0, EndTime: 5, Text: "Photosynthesis converts light."},
		{ID: 1, StartTime: 5, EndTime: 10, Text: "It happens in chloroplasts."},
		{ID: 2, StartTime: 10.5, EndTime: 15, Text: "Oxygen is released."},
	}
}

func TestContextBuffer_Window(t *testing.T) {
	t.Run("should combine segments with a single space", func(t *testing.T) {
		// Arrange
		cb := NewContextBuffer(testSegments())

		// Act
		w, ok := cb.Window(0, 2)

		// Assert
		require.True(t, ok)
		assert.Equal(t, "Photosynthesis converts light. It happens in chloroplasts.", w.Text)
		assert.Equal(t, 0.0, w.StartTime)
		assert.Equal(t, 10.0, w.EndTime)
		assert.Equal(t, 2, w.Size())
		assert.Equal(t, []int{0, 1}, w.SegmentIDs(testSegments()))
	})

	t.Run("should use earliest start and latest end", func(t *testing.T) {
		cb := NewContextBuffer(testSegments())

		w, ok := cb.Window(1, 2)

		require.True(t, ok)
		assert.Equal(t, 5.0, w.StartTime)
		assert.Equal(t, 15.0, w.EndTime)
	})

	t.Run("should end at the latest end when an earlier segment overlaps", func(t *testing.T) {
		cb := NewContextBuffer([]transcript.Segment{
			{ID: 0, StartTime: 0, EndTime: 12, Text: "outer"},
			{ID: 1, StartTime: 5, EndTime: 10, Text: "inner"},
		})

		w, ok := cb.Window(0, 2)

		require.True(t, ok)
		assert.Equal(t, 12.0, w.EndTime)
	})

	t.Run("should reject windows that do not fit", func(t *testing.T) {
		cb := NewContextBuffer(testSegments())

		_, ok := cb.Window(2, 2)
		assert.False(t, ok)
		_, ok = cb.Window(-1, 1)
		assert.False(t, ok)
		_, ok = cb.Window(0, 0)
		assert.False(t, ok)
	})
}

func TestContextBuffer_WindowsOfSize(t *testing.T) {
	cb := NewContextBuffer(testSegments())

	assert.Len(t, cb.WindowsOfSize(1), 3)
	assert.Len(t, cb.WindowsOfSize(2), 2)
	assert.Len(t, cb.WindowsOfSize(3), 1)
	assert.Empty(t, cb.WindowsOfSize(4))
	assert.Empty(t, NewContextBuffer(nil).WindowsOfSize(1))

	pairs := cb.WindowsOfSize(2)
	assert.Equal(t, 0, pairs[0].FirstIndex)
	assert.Equal(t, 1, pairs[1].FirstIndex)
}

func TestContextBuffer_WindowsUpTo(t *testing.T) {
	cb := NewContextBuffer(testSegments())

	windows := cb.WindowsUpTo(2)

	// (0,1) (0,2) (1,1) (1,2) (2,1)
	require.Len(t, windows, 5)
	assert.Equal(t, 0, windows[0].FirstIndex)
	assert.Equal(t, 1, windows[0].Size())
	assert.Equal(t, 2, windows[1].Size())
	assert.Equal(t, 2, windows[4].FirstIndex)
	assert.Equal(t, 3, cb.Len())
}
