package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"audiosummary/internal/aligner"
	"audiosummary/internal/apperror"
	"audiosummary/internal/config"
	"audiosummary/internal/fetch"
	"audiosummary/internal/httpclient"
	"audiosummary/internal/logger"
	"audiosummary/internal/performance"
	"audiosummary/internal/summarizer"
	"audiosummary/internal/transcriber"
	"audiosummary/internal/transcript"
)

// Application wires configuration, logging, metrics and backends into the
// transcription and summary assemblers.
type Application struct {
	config      *config.Configuration
	zapLogger   *zap.Logger
	monitor     *performance.PerformanceMonitor
	aligner     *aligner.QuoteAligner
	transcriber *transcriber.Assembler
	summarizer  *summarizer.Assembler
}

// NewApplication creates an application from CONFIG_PATH if set, otherwise
// from the environment and ./.env
func NewApplication() (*Application, error) {
	var cfg *config.Configuration
	var err error

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		cfg, err = config.NewConfigurationFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.NewConfigurationFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
	}

	zapLogger, err := logger.NewLoggerFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return NewApplicationWithConfig(cfg, zapLogger)
}

// NewApplicationWithConfig creates an application that talks to the HTTP
// backends named in cfg
func NewApplicationWithConfig(cfg *config.Configuration, zapLogger *zap.Logger) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}

	monitor := performance.NewPerformanceMonitorWithBenchmark(zapLogger.With(zap.String("component", "performance")), cfg.GetDebugMode())
	opts := httpclient.Options{
		MaxRetries:    cfg.GetMaxRetries(),
		BaseBackoffMs: cfg.GetBaseBackoffMS(),
		Timeout:       cfg.GetBackendTimeout(),
		Monitor:       monitor,
	}

	speech := transcriber.NewWhisperHTTPBackendWithConfig(
		zapLogger.With(zap.String("component", "stt")),
		cfg.GetSTTBaseURL(), cfg.GetSTTAPIKey(), cfg.GetSTTModel(), opts)

	generation := summarizer.NewOllamaBackendWithConfig(
		zapLogger.With(zap.String("component", "llm")),
		cfg.GetLLMBaseURL(), cfg.GetLLMModel(), cfg.GetLLMTemperature(), opts)

	fetcher := fetch.NewAudioFetcherWithConfig(
		zapLogger.With(zap.String("component", "fetch")),
		cfg.GetAudioMaxBytes(), opts)

	return newApplication(cfg, zapLogger, monitor, speech, generation, fetcher), nil
}

// NewApplicationWithBackends creates an application around caller-supplied
// backends. URL sources are passed to the speech backend as-is.
func NewApplicationWithBackends(cfg *config.Configuration, zapLogger *zap.Logger, speech transcriber.SpeechBackend, generation summarizer.GenerationBackend) *Application {
	if cfg == nil {
		cfg = config.NewConfiguration()
	}
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	monitor := performance.NewPerformanceMonitor(zapLogger.With(zap.String("component", "performance")))
	return newApplication(cfg, zapLogger, monitor, speech, generation, nil)
}

func newApplication(cfg *config.Configuration, zapLogger *zap.Logger, monitor *performance.PerformanceMonitor,
	speech transcriber.SpeechBackend, generation summarizer.GenerationBackend, fetcher *fetch.AudioFetcher) *Application {

	qa := aligner.NewQuoteAlignerWithConfig(
		zapLogger.With(zap.String("component", "aligner")),
		cfg.GetSimilarityThreshold(), cfg.GetMaxWindow())

	// Out of range settings fall back to defaults inside the aligner
	zapLogger.Info("quote aligner ready",
		zap.Float64("similarity_threshold", qa.Threshold()),
		zap.Int("max_window", qa.MaxWindow()))

	return &Application{
		config:    cfg,
		zapLogger: zapLogger,
		monitor:   monitor,
		aligner:   qa,
		transcriber: transcriber.NewAssemblerWithConfig(
			zapLogger.With(zap.String("component", "transcriber")),
			speech,
			transcriber.Options{
				MaxAudioBytes: cfg.GetAudioMaxBytes(),
				Language:      cfg.GetSTTLanguage(),
				Fetcher:       fetcher,
				Monitor:       monitor,
			}),
		summarizer: summarizer.NewAssemblerWithConfig(
			zapLogger.With(zap.String("component", "summarizer")),
			generation, qa, monitor),
	}
}

// IsURL reports whether source names a remote resource rather than a local file
func IsURL(source string) bool {
	return strings.Contains(source, "://")
}

// Transcribe transcribes a local audio file or an http(s) URL
func (app *Application) Transcribe(ctx context.Context, source string) (*transcript.Transcript, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, apperror.InvalidInput("transcribe", "no audio source given")
	}

	app.zapLogger.Info("transcription requested", zap.String("source", source))

	if IsURL(source) {
		return app.transcriber.TranscribeURL(ctx, source)
	}
	return app.transcriber.TranscribeFile(ctx, source)
}

// GenerationConfig returns the summary settings derived from configuration
func (app *Application) GenerationConfig() summarizer.GenerationConfig {
	return summarizer.GenerationConfig{
		SectionCount:    app.config.GetSectionCount(),
		Style:           app.config.GetSummaryStyle(),
		IncludeSegments: app.config.GetIncludeSegments(),
	}
}

// Summarize produces a grounded summary of t
func (app *Application) Summarize(ctx context.Context, t *transcript.Transcript) (*summarizer.AudioSummaryWithQuotes, error) {
	return app.summarizer.GenerateSummaryWithQuotes(ctx, t, app.GenerationConfig())
}

// TranscribeAndSummarize runs both stages for one audio source
func (app *Application) TranscribeAndSummarize(ctx context.Context, source string) (*transcript.Transcript, *summarizer.AudioSummaryWithQuotes, error) {
	t, err := app.Transcribe(ctx, source)
	if err != nil {
		return nil, nil, err
	}

	summary, err := app.Summarize(ctx, t)
	if err != nil {
		return t, nil, err
	}
	return t, summary, nil
}

// Align grounds a single quote in t
func (app *Application) Align(quote string, t *transcript.Transcript) (transcript.QuotedSegment, bool) {
	if t == nil {
		return transcript.QuotedSegment{}, false
	}
	return app.aligner.AlignQuote(quote, t.Segments)
}

// Config returns the active configuration
func (app *Application) Config() *config.Configuration {
	return app.config
}

// Logger returns the application logger
func (app *Application) Logger() *zap.Logger {
	return app.zapLogger
}

// Monitor returns the performance monitor shared by all components
func (app *Application) Monitor() *performance.PerformanceMonitor {
	return app.monitor
}

// Close flushes metrics and logs
func (app *Application) Close() error {
	app.zapLogger.Info("shutting down application")
	app.monitor.LogCurrentMetrics()

	// Sync reports an error for terminal-backed stderr on some platforms
	_ = app.zapLogger.Sync()
	return nil
}
