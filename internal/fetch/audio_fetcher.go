// Package fetch downloads remote audio so it can be sent to a speech backend.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"audiosummary/internal/apperror"
	"audiosummary/internal/httpclient"
)

const backendName = "audio-source"

// Audio is a downloaded audio payload
type Audio struct {
	Data        []byte
	Filename    string
	ContentType string
	SourceURL   string
}

// contentTypeExtensions maps audio MIME types to the file extension speech
// backends use to detect the container format.
var contentTypeExtensions = map[string]string{
	"audio/mpeg":      ".mp3",
	"audio/mp3":       ".mp3",
	"audio/mp4":       ".m4a",
	"audio/x-m4a":     ".m4a",
	"audio/m4a":       ".m4a",
	"video/mp4":       ".mp4",
	"audio/wav":       ".wav",
	"audio/x-wav":     ".wav",
	"audio/wave":      ".wav",
	"audio/webm":      ".webm",
	"video/webm":      ".webm",
	"audio/ogg":       ".ogg",
	"application/ogg": ".ogg",
	"audio/flac":      ".flac",
	"audio/x-flac":    ".flac",
}

// AudioFetcher downloads audio over HTTP with retry and a size cap
type AudioFetcher struct {
	client   *httpclient.Client
	logger   *zap.Logger
	maxBytes int64
}

// NewAudioFetcher creates an AudioFetcher with default retry settings
func NewAudioFetcher(maxBytes int64) *AudioFetcher {
	return NewAudioFetcherWithConfig(zap.NewNop(), maxBytes, httpclient.Options{})
}

// NewAudioFetcherWithConfig creates an AudioFetcher. opts.MaxBodyBytes is
// replaced by maxBytes.
func NewAudioFetcherWithConfig(logger *zap.Logger, maxBytes int64, opts httpclient.Options) *AudioFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.MaxBodyBytes = maxBytes
	return &AudioFetcher{
		client:   httpclient.NewClientWithConfig(backendName, logger, opts),
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// ValidateURL checks that raw is an absolute http or https URL
func ValidateURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperror.InvalidInput("fetch", "audio URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, apperror.InvalidInput("fetch", "invalid audio URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, apperror.InvalidInput("fetch", "unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, apperror.InvalidInput("fetch", "audio URL has no host")
	}
	return u, nil
}

// Fetch downloads the audio at rawURL
func (f *AudioFetcher) Fetch(ctx context.Context, rawURL string) (*Audio, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	f.logger.Info("downloading audio", zap.String("url", u.Redacted()))

	data, err := f.client.Do(ctx, "fetch", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "audio/*,video/mp4,video/webm,*/*;q=0.8")
		req.Header.Set("Accept-Encoding", "identity")
		req.Header.Set("User-Agent", "audiosummary/1.0")
		return req, nil
	})
	if errors.Is(err, httpclient.ErrBodyTooLarge) {
		return nil, apperror.InvalidInput("fetch", "audio at %s exceeds %d bytes", u.Redacted(), f.maxBytes)
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperror.InvalidInput("fetch", "audio at %s is empty", u.Redacted())
	}

	contentType := sniffContentType(data)
	filename := filenameFor(u, contentType)

	f.logger.Info("audio downloaded",
		zap.String("url", u.Redacted()),
		zap.String("filename", filename),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)))

	return &Audio{
		Data:        data,
		Filename:    filename,
		ContentType: contentType,
		SourceURL:   u.String(),
	}, nil
}

// MaxBytes returns the download size cap
func (f *AudioFetcher) MaxBytes() int64 {
	return f.maxBytes
}

func sniffContentType(data []byte) string {
	ct := http.DetectContentType(data)
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ct
	}
	return mediaType
}

// filenameFor keeps the URL's base name when it has an extension and
// otherwise derives one from the detected content type.
func filenameFor(u *url.URL, contentType string) string {
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		base = "audio"
	}
	if path.Ext(base) != "" {
		return base
	}
	if ext, ok := contentTypeExtensions[contentType]; ok {
		return base + ext
	}
	return fmt.Sprintf("%s.bin", base)
}
