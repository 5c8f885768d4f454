package transcriber

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"audiosummary/internal/apperror"
	"audiosummary/internal/fetch"
	"audiosummary/internal/httpclient"
	"audiosummary/internal/performance"
	"audiosummary/internal/transcript"
)

// MockSpeechBackend is a mock implementation of SpeechBackend for testing
type MockSpeechBackend struct {
	response *RawTranscription
	err      error
	calls    int
	lastReq  SpeechRequest
}

func (m *MockSpeechBackend) Transcribe(ctx context.Context, req SpeechRequest) (*RawTranscription, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func f64(v float64) *float64 { return &v }
func str(s string) *string   { return &s }

func span(start, end float64, text string) RawSpan {
	return RawSpan{Start: f64(start), End: f64(end), Text: text}
}

func writeAudio(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	return path
}

func TestAssembler_Assemble(t *testing.T) {
	t.Run("should build ordered segments numbered from zero", func(t *testing.T) {
		// Arrange
		assembler := NewAssemblerWithLogger(zaptest.NewLogger(t), &MockSpeechBackend{})
		raw := &RawTranscription{
			Language: "en",
			Duration: f64(12),
			Segments: []RawSpan{
				span(0, 4, "Hello everyone."),
				span(4, 9, " Today we discuss cells. "),
			},
		}

		// Act
		result, err := assembler.Assemble(raw)

		// Assert
		require.NoError(t, err)
		assert.Len(t, result.Segments, 2)
		assert.Equal(t, transcript.Segment{ID: 0, StartTime: 0, EndTime: 4, Text: "Hello everyone."}, result.Segments[0])
		assert.Equal(t, transcript.Segment{ID: 1, StartTime: 4, EndTime: 9, Text: "Today we discuss cells."}, result.Segments[1])
		assert.Equal(t, "Hello everyone. Today we discuss cells.", result.FullTranscript)
		assert.Equal(t, 12.0, result.Duration)
		assert.Equal(t, "en", result.Language)
		_, err = uuid.Parse(result.ID)
		assert.NoError(t, err)
	})

	t.Run("should prefer backend full text when present", func(t *testing.T) {
		assembler := NewAssembler(&MockSpeechBackend{})

		result, err := assembler.Assemble(&RawTranscription{
			Text:     str("Hello,   everyone."),
			Segments: []RawSpan{span(0, 2, "Hello, everyone.")},
		})

		require.NoError(t, err)
		assert.Equal(t, "Hello,   everyone.", result.FullTranscript)
	})

	t.Run("should fall back to joined text when backend text is blank", func(t *testing.T) {
		assembler := NewAssembler(&MockSpeechBackend{})

		result, err := assembler.Assemble(&RawTranscription{
			Text:     str("   "),
			Segments: []RawSpan{span(0, 1, "a"), span(1, 2, "b")},
		})

		require.NoError(t, err)
		assert.Equal(t, "a b", result.FullTranscript)
	})

	t.Run("should sort spans by start and skip blank text", func(t *testing.T) {
		assembler := NewAssembler(&MockSpeechBackend{})

		result, err := assembler.Assemble(&RawTranscription{
			Segments: []RawSpan{
				span(5, 7, "third"),
				span(0, 2, "first"),
				span(2, 3, "   "),
				span(2, 5, "second"),
			},
		})

		require.NoError(t, err)
		require.Len(t, result.Segments, 3)
		for i, want := range []string{"first", "second", "third"} {
			assert.Equal(t, i, result.Segments[i].ID)
			assert.Equal(t, want, result.Segments[i].Text)
		}
		assert.Equal(t, 7.0, result.Duration)
	})

	t.Run("should clamp inverted spans and log a warning", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		assembler := NewAssemblerWithLogger(zap.New(core), &MockSpeechBackend{})

		result, err := assembler.Assemble(&RawTranscription{
			Segments: []RawSpan{span(3, 1, "backwards")},
		})

		require.NoError(t, err)
		assert.Equal(t, 3.0, result.Segments[0].StartTime)
		assert.Equal(t, 3.0, result.Segments[0].EndTime)
		assert.Equal(t, 1, logs.FilterMessage("repairing segment that ends before it starts").Len())
	})

	t.Run("should ignore a duration shorter than the last segment", func(t *testing.T) {
		assembler := NewAssembler(&MockSpeechBackend{})

		result, err := assembler.Assemble(&RawTranscription{
			Duration: f64(1),
			Segments: []RawSpan{span(0, 5, "x")},
		})

		require.NoError(t, err)
		assert.Equal(t, 5.0, result.Duration)
	})

	t.Run("should cover overlapping spans that end before the last start", func(t *testing.T) {
		// Arrange
		assembler := NewAssembler(&MockSpeechBackend{})
		raw := &RawTranscription{
			Segments: []RawSpan{
				span(0, 12, "The whole introduction."),
				span(5, 10, "An aside."),
			},
		}

		// Act
		result, err := assembler.Assemble(raw)
		raw.Duration = f64(11)
		withShortDuration, errShort := assembler.Assemble(raw)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 12.0, result.Duration)
		require.NoError(t, errShort)
		assert.Equal(t, 12.0, withShortDuration.Duration)

		outer := result.Segments[0]
		quote := transcript.QuotedSegment{StartTime: outer.StartTime, EndTime: outer.EndTime, Text: outer.Text, Formatted: transcript.FormatTime(outer.StartTime)}
		assert.NoError(t, quote.Validate(result.Duration))

		seg, ok := transcript.FindSegmentByTime(result.Segments, 11)
		assert.True(t, ok)
		assert.Equal(t, 0, seg.ID)
	})

	t.Run("should accept empty segment list", func(t *testing.T) {
		assembler := NewAssembler(&MockSpeechBackend{})

		result, err := assembler.Assemble(&RawTranscription{Segments: []RawSpan{}})

		require.NoError(t, err)
		assert.Empty(t, result.Segments)
		assert.Equal(t, 0.0, result.Duration)
		assert.Equal(t, "", result.FullTranscript)
	})

	malformed := []struct {
		name string
		raw  *RawTranscription
	}{
		{"nil response", nil},
		{"missing segments field", &RawTranscription{Text: str("hi")}},
		{"missing start", &RawTranscription{Segments: []RawSpan{{End: f64(1), Text: "x"}}}},
		{"missing end", &RawTranscription{Segments: []RawSpan{{Start: f64(0), Text: "x"}}}},
		{"negative start", &RawTranscription{Segments: []RawSpan{span(-1, 1, "x")}}},
		{"NaN end", &RawTranscription{Segments: []RawSpan{span(0, math.NaN(), "x")}}},
		{"infinite duration", &RawTranscription{Duration: f64(math.Inf(1)), Segments: []RawSpan{span(0, 1, "x")}}},
	}
	for _, tt := range malformed {
		t.Run("should reject "+tt.name, func(t *testing.T) {
			assembler := NewAssembler(&MockSpeechBackend{})

			result, err := assembler.Assemble(tt.raw)

			assert.Nil(t, result)
			assert.True(t, errors.Is(err, apperror.ErrMalformedResponse))
		})
	}
}

func TestAssembler_TranscribeFile(t *testing.T) {
	t.Run("should send file bytes and name to the backend", func(t *testing.T) {
		// Arrange
		backend := &MockSpeechBackend{response: &RawTranscription{Segments: []RawSpan{span(0, 1, "hi")}}}
		monitor := performance.NewPerformanceMonitor(zap.NewNop())
		assembler := NewAssemblerWithConfig(zaptest.NewLogger(t), backend, Options{Language: "en", Monitor: monitor})
		path := writeAudio(t, "lecture.MP3", 32)

		// Act
		result, err := assembler.TranscribeFile(context.Background(), path)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "hi", result.FullTranscript)
		assert.Equal(t, "lecture.MP3", backend.lastReq.Filename)
		assert.Len(t, backend.lastReq.Audio, 32)
		assert.Equal(t, "en", backend.lastReq.Language)
		assert.Equal(t, int64(1), monitor.GetMetrics().Transcriptions)
	})

	invalid := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"empty path", func(t *testing.T) string { return " " }},
		{"unsupported extension", func(t *testing.T) string { return writeAudio(t, "notes.txt", 4) }},
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone.wav") }},
		{"file over the limit", func(t *testing.T) string { return writeAudio(t, "big.wav", 64) }},
	}
	for _, tt := range invalid {
		t.Run("should reject "+tt.name+" before calling the backend", func(t *testing.T) {
			backend := &MockSpeechBackend{}
			assembler := NewAssemblerWithConfig(zap.NewNop(), backend, Options{MaxAudioBytes: 16})

			_, err := assembler.TranscribeFile(context.Background(), tt.path(t))

			assert.True(t, errors.Is(err, apperror.ErrInvalidInput))
			assert.Equal(t, 0, backend.calls)
		})
	}
}

func TestAssembler_TranscribeBytes(t *testing.T) {
	t.Run("should reject empty audio", func(t *testing.T) {
		backend := &MockSpeechBackend{}
		assembler := NewAssembler(backend)

		_, err := assembler.TranscribeBytes(context.Background(), nil, "a.wav")

		assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
		assert.Equal(t, 0, backend.calls)
	})

	t.Run("should classify unknown backend errors as unavailable", func(t *testing.T) {
		assembler := NewAssembler(&MockSpeechBackend{err: errors.New("connection reset")})

		result, err := assembler.TranscribeBytes(context.Background(), []byte{1}, "a.wav")

		assert.Nil(t, result)
		assert.True(t, apperror.Retryable(err))
	})

	t.Run("should keep classified backend errors", func(t *testing.T) {
		backendErr := apperror.MalformedResponse("transcribe", "whisper", errors.New("bad json"))
		assembler := NewAssembler(&MockSpeechBackend{err: backendErr})

		_, err := assembler.TranscribeBytes(context.Background(), []byte{1}, "a.wav")

		assert.Equal(t, apperror.KindMalformedResponse, apperror.KindOf(err))
	})

	t.Run("should report missing backend", func(t *testing.T) {
		assembler := NewAssembler(nil)

		_, err := assembler.TranscribeBytes(context.Background(), []byte{1}, "a.wav")

		assert.Equal(t, apperror.KindBackendUnavailable, apperror.KindOf(err))
	})

	t.Run("should return no transcript when cancelled during the call", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		backend := &cancellingBackend{cancel: cancel}
		assembler := NewAssembler(backend)

		result, err := assembler.TranscribeBytes(ctx, []byte{1}, "a.wav")

		assert.Nil(t, result)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

type cancellingBackend struct {
	cancel context.CancelFunc
}

func (c *cancellingBackend) Transcribe(ctx context.Context, req SpeechRequest) (*RawTranscription, error) {
	c.cancel()
	return &RawTranscription{Segments: []RawSpan{span(0, 1, "late")}}, nil
}

func TestAssembler_TranscribeURL(t *testing.T) {
	t.Run("should download through the fetcher before transcribing", func(t *testing.T) {
		// Arrange
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ID3\x03\x00\x00\x00\x00\x00\x00frames"))
		}))
		defer server.Close()

		backend := &MockSpeechBackend{response: &RawTranscription{Segments: []RawSpan{span(0, 2, "remote")}}}
		fetcher := fetch.NewAudioFetcherWithConfig(zap.NewNop(), 1024, httpclient.Options{MaxRetries: 1})
		assembler := NewAssemblerWithConfig(zap.NewNop(), backend, Options{Fetcher: fetcher})

		// Act
		result, err := assembler.TranscribeURL(context.Background(), server.URL+"/episode")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "remote", result.FullTranscript)
		assert.Equal(t, "episode.mp3", backend.lastReq.Filename)
		assert.NotEmpty(t, backend.lastReq.Audio)
		assert.Equal(t, server.URL+"/episode", backend.lastReq.URL)
	})

	t.Run("should pass the url through without a fetcher", func(t *testing.T) {
		backend := &MockSpeechBackend{response: &RawTranscription{Segments: []RawSpan{span(0, 2, "remote")}}}
		assembler := NewAssembler(backend)

		_, err := assembler.TranscribeURL(context.Background(), "https://cdn.example.com/a.mp3")

		require.NoError(t, err)
		assert.Empty(t, backend.lastReq.Audio)
		assert.Equal(t, "https://cdn.example.com/a.mp3", backend.lastReq.URL)
	})

	t.Run("should reject non-http schemes", func(t *testing.T) {
		backend := &MockSpeechBackend{}
		assembler := NewAssembler(backend)

		_, err := assembler.TranscribeURL(context.Background(), "ftp://example.com/a.mp3")

		assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
		assert.Equal(t, 0, backend.calls)
	})
}

func TestIsSupportedAudio(t *testing.T) {
	for _, name := range []string{"a.mp3", "a.MP4", "a.mpeg", "a.mpga", "a.m4a", "a.wav", "a.webm", "a.ogg", "a.oga", "a.flac"} {
		assert.True(t, IsSupportedAudio(name), name)
	}
	for _, name := range []string{"a.txt", "a", "a.aac.zip"} {
		assert.False(t, IsSupportedAudio(name), name)
	}
}
