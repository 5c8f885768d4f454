package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"audiosummary/internal/apperror"
	"audiosummary/internal/httpclient"
)

// id3Header is enough for content sniffing to report audio/mpeg
var id3Header = []byte("ID3\x03\x00\x00\x00\x00\x00\x00fake mp3 frames")

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"https URL", "https://cdn.example.com/lecture.mp3", false},
		{"http URL", "http://localhost:8080/a.wav", false},
		{"empty", "  ", true},
		{"ftp scheme", "ftp://example.com/a.mp3", true},
		{"file scheme", "file:///tmp/a.mp3", true},
		{"no host", "https:///a.mp3", true},
		{"relative path", "lecture.mp3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateURL(tt.raw)
			if tt.wantErr {
				assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAudioFetcher_Fetch(t *testing.T) {
	t.Run("should download audio and keep url filename", func(t *testing.T) {
		// Arrange
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "identity", r.Header.Get("Accept-Encoding"))
			w.Write(id3Header)
		}))
		defer server.Close()

		fetcher := NewAudioFetcherWithConfig(zaptest.NewLogger(t), 1024, httpclient.Options{MaxRetries: 1})

		// Act
		audio, err := fetcher.Fetch(context.Background(), server.URL+"/talks/lecture.mp3")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, id3Header, audio.Data)
		assert.Equal(t, "lecture.mp3", audio.Filename)
		assert.Equal(t, "audio/mpeg", audio.ContentType)
		assert.Equal(t, int64(1024), fetcher.MaxBytes())
	})

	t.Run("should derive extension from content when url has none", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(id3Header)
		}))
		defer server.Close()

		fetcher := NewAudioFetcherWithConfig(zaptest.NewLogger(t), 1024, httpclient.Options{MaxRetries: 1})

		audio, err := fetcher.Fetch(context.Background(), server.URL+"/stream")

		require.NoError(t, err)
		assert.Equal(t, "stream.mp3", audio.Filename)
	})

	t.Run("should reject audio over the size cap without retrying", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.Write(make([]byte, 64))
		}))
		defer server.Close()

		fetcher := NewAudioFetcherWithConfig(zaptest.NewLogger(t), 16, httpclient.Options{MaxRetries: 3, BaseBackoffMs: 1})

		_, err := fetcher.Fetch(context.Background(), server.URL+"/big.wav")

		assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
		assert.Contains(t, err.Error(), "exceeds 16 bytes")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("should reject empty downloads", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()

		fetcher := NewAudioFetcher(1024)

		_, err := fetcher.Fetch(context.Background(), server.URL+"/empty.mp3")

		assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
	})

	t.Run("should report missing source as backend unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		fetcher := NewAudioFetcherWithConfig(zaptest.NewLogger(t), 1024, httpclient.Options{MaxRetries: 1})

		_, err := fetcher.Fetch(context.Background(), server.URL+"/gone.mp3")

		assert.Equal(t, apperror.KindBackendUnavailable, apperror.KindOf(err))
	})

	t.Run("should reject non-http urls before any request", func(t *testing.T) {
		fetcher := NewAudioFetcher(1024)

		_, err := fetcher.Fetch(context.Background(), "s3://bucket/a.mp3")

		assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
	})
}

func TestFilenameFor(t *testing.T) {
	u, _ := url.Parse("https://example.com/")
	assert.Equal(t, "audio.wav", filenameFor(u, "audio/wave"))

	u, _ = url.Parse("https://example.com/podcast/episode")
	assert.Equal(t, "episode.bin", filenameFor(u, "application/octet-stream"))
}
