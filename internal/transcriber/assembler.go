// Package transcriber turns audio into a time-indexed transcript by calling a
// speech backend and normalising its spans into ordered segments.
package transcriber

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"audiosummary/internal/apperror"
	"audiosummary/internal/fetch"
	"audiosummary/internal/performance"
	"audiosummary/internal/transcript"
)

// DefaultMaxAudioBytes matches the upload limit of hosted Whisper endpoints
const DefaultMaxAudioBytes int64 = 25 * 1024 * 1024

// supportedExtensions lists the audio containers speech backends accept
var supportedExtensions = map[string]bool{
	".mp3":  true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".m4a":  true,
	".wav":  true,
	".webm": true,
	".ogg":  true,
	".oga":  true,
	".flac": true,
}

// Options configures an Assembler
type Options struct {
	MaxAudioBytes int64
	Language      string
	Fetcher       *fetch.AudioFetcher
	Monitor       *performance.PerformanceMonitor
}

// Assembler produces transcripts from audio files, bytes or URLs
type Assembler struct {
	backend  SpeechBackend
	fetcher  *fetch.AudioFetcher
	monitor  *performance.PerformanceMonitor
	logger   *zap.Logger
	maxBytes int64
	language string
}

// NewAssembler creates an Assembler with default options
func NewAssembler(backend SpeechBackend) *Assembler {
	return NewAssemblerWithConfig(zap.NewNop(), backend, Options{})
}

// NewAssemblerWithLogger creates an Assembler with default options and a custom logger
func NewAssemblerWithLogger(logger *zap.Logger, backend SpeechBackend) *Assembler {
	return NewAssemblerWithConfig(logger, backend, Options{})
}

// NewAssemblerWithConfig creates an Assembler with explicit options
func NewAssemblerWithConfig(logger *zap.Logger, backend SpeechBackend, opts Options) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxAudioBytes <= 0 {
		opts.MaxAudioBytes = DefaultMaxAudioBytes
	}
	return &Assembler{
		backend:  backend,
		fetcher:  opts.Fetcher,
		monitor:  opts.Monitor,
		logger:   logger,
		maxBytes: opts.MaxAudioBytes,
		language: opts.Language,
	}
}

// IsSupportedAudio reports whether filename has an accepted audio extension
func IsSupportedAudio(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// TranscribeFile transcribes the audio file at path
func (a *Assembler) TranscribeFile(ctx context.Context, path string) (*transcript.Transcript, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperror.InvalidInput("transcribe_file", "audio path is empty")
	}
	if !IsSupportedAudio(path) {
		return nil, apperror.InvalidInput("transcribe_file", "unsupported audio format %q", filepath.Ext(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, apperror.InvalidInput("transcribe_file", "cannot access audio file: %v", err)
	}
	if info.IsDir() {
		return nil, apperror.InvalidInput("transcribe_file", "%s is a directory", path)
	}
	if info.Size() > a.maxBytes {
		return nil, apperror.InvalidInput("transcribe_file", "audio file is %d bytes, limit is %d", info.Size(), a.maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.InvalidInput("transcribe_file", "failed to read audio file: %v", err)
	}

	return a.TranscribeBytes(ctx, data, filepath.Base(path))
}

// TranscribeBytes transcribes an in-memory audio payload
func (a *Assembler) TranscribeBytes(ctx context.Context, data []byte, filename string) (*transcript.Transcript, error) {
	if len(data) == 0 {
		return nil, apperror.InvalidInput("transcribe_bytes", "audio data is empty")
	}
	if !IsSupportedAudio(filename) {
		return nil, apperror.InvalidInput("transcribe_bytes", "unsupported audio format for %q", filename)
	}
	if int64(len(data)) > a.maxBytes {
		return nil, apperror.InvalidInput("transcribe_bytes", "audio is %d bytes, limit is %d", len(data), a.maxBytes)
	}

	return a.transcribe(ctx, SpeechRequest{Audio: data, Filename: filename, Language: a.language})
}

// TranscribeURL transcribes audio reachable over http or https. With a
// fetcher configured the audio is downloaded first; otherwise the URL is
// passed to the backend.
func (a *Assembler) TranscribeURL(ctx context.Context, rawURL string) (*transcript.Transcript, error) {
	u, err := fetch.ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	if a.fetcher == nil {
		return a.transcribe(ctx, SpeechRequest{URL: u.String(), Filename: filepath.Base(u.Path), Language: a.language})
	}

	audio, err := a.fetcher.Fetch(ctx, u.String())
	if err != nil {
		return nil, err
	}
	if !IsSupportedAudio(audio.Filename) {
		return nil, apperror.InvalidInput("transcribe_url", "unsupported audio content %q", audio.ContentType)
	}
	if int64(len(audio.Data)) > a.maxBytes {
		return nil, apperror.InvalidInput("transcribe_url", "audio is %d bytes, limit is %d", len(audio.Data), a.maxBytes)
	}

	return a.transcribe(ctx, SpeechRequest{
		Audio:    audio.Data,
		Filename: audio.Filename,
		URL:      audio.SourceURL,
		Language: a.language,
	})
}

func (a *Assembler) transcribe(ctx context.Context, req SpeechRequest) (*transcript.Transcript, error) {
	if a.backend == nil {
		return nil, apperror.BackendUnavailable("transcribe", "", fmt.Errorf("no speech backend configured"))
	}

	a.logger.Info("transcribing audio",
		zap.String("filename", req.Filename),
		zap.Int("bytes", len(req.Audio)),
		zap.Bool("by_url", len(req.Audio) == 0))

	raw, err := a.backend.Transcribe(ctx, req)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindUnknown {
			err = apperror.BackendUnavailable("transcribe", "", err)
		}
		a.logger.Error("speech backend failed", zap.Error(err))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperror.BackendUnavailable("transcribe", "", err)
	}

	t, err := a.Assemble(raw)
	if err != nil {
		a.logger.Error("speech backend returned an unusable transcription", zap.Error(err))
		return nil, err
	}

	if a.monitor != nil {
		a.monitor.RecordTranscription()
	}

	a.logger.Info("transcription assembled",
		zap.String("transcript_id", t.ID),
		zap.Int("segments", len(t.Segments)),
		zap.Float64("duration", t.Duration),
		zap.String("language", t.Language))

	return t, nil
}

type timedSpan struct {
	start, end float64
	text       string
}

// Assemble normalises a backend response into a Transcript. Whitespace-only
// spans are skipped, spans are ordered by start time and numbered from 0,
// and a span ending before it starts is clamped to zero length.
func (a *Assembler) Assemble(raw *RawTranscription) (*transcript.Transcript, error) {
	const op = "assemble"

	if raw == nil {
		return nil, apperror.MalformedResponse(op, "", fmt.Errorf("empty transcription response"))
	}
	if raw.Segments == nil {
		return nil, apperror.MalformedResponse(op, "", fmt.Errorf("response has no segments field"))
	}

	spans := make([]timedSpan, 0, len(raw.Segments))
	for i, rs := range raw.Segments {
		if rs.Start == nil || rs.End == nil {
			return nil, apperror.MalformedResponse(op, "", fmt.Errorf("segment %d is missing start or end", i))
		}
		start, end := *rs.Start, *rs.End
		if !isUsableTime(start) || !isUsableTime(end) {
			return nil, apperror.MalformedResponse(op, "", fmt.Errorf("segment %d has invalid times %v-%v", i, start, end))
		}

		text := strings.TrimSpace(rs.Text)
		if text == "" {
			continue
		}

		if end < start {
			a.logger.Warn("repairing segment that ends before it starts",
				zap.Int("index", i),
				zap.Float64("start", start),
				zap.Float64("end", end))
			end = start
		}
		spans = append(spans, timedSpan{start: start, end: end, text: text})
	}

	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})

	segments := make([]transcript.Segment, len(spans))
	for i, s := range spans {
		segments[i] = transcript.Segment{ID: i, StartTime: s.start, EndTime: s.end, Text: s.text}
	}

	fullText := transcript.JoinSegmentText(segments)
	if raw.Text != nil && strings.TrimSpace(*raw.Text) != "" {
		fullText = strings.TrimSpace(*raw.Text)
	}

	latestEnd := transcript.MaxEndTime(segments)
	duration := latestEnd
	if raw.Duration != nil {
		if !isUsableTime(*raw.Duration) {
			return nil, apperror.MalformedResponse(op, "", fmt.Errorf("invalid duration %v", *raw.Duration))
		}
		if *raw.Duration >= latestEnd {
			duration = *raw.Duration
		}
	}

	t := &transcript.Transcript{
		ID:             uuid.NewString(),
		FullTranscript: fullText,
		Segments:       segments,
		Duration:       duration,
		Language:       raw.Language,
		Raw:            raw.Payload,
	}

	if err := t.Validate(); err != nil {
		return nil, apperror.MalformedResponse(op, "", err)
	}
	return t, nil
}

func isUsableTime(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
