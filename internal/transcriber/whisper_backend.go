package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"audiosummary/internal/apperror"
	"audiosummary/internal/httpclient"
)

const whisperBackendName = "whisper"

// WhisperHTTPBackend talks to an OpenAI-compatible audio transcription
// endpoint and requests segment-level timestamps.
type WhisperHTTPBackend struct {
	baseURL string
	apiKey  string
	model   string
	client  *httpclient.Client
	logger  *zap.Logger
}

// NewWhisperHTTPBackend creates a backend with default retry settings
func NewWhisperHTTPBackend(baseURL, apiKey, model string) *WhisperHTTPBackend {
	return NewWhisperHTTPBackendWithConfig(zap.NewNop(), baseURL, apiKey, model, httpclient.Options{})
}

// NewWhisperHTTPBackendWithConfig creates a backend with custom logger and retry options
func NewWhisperHTTPBackendWithConfig(logger *zap.Logger, baseURL, apiKey, model string, opts httpclient.Options) *WhisperHTTPBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhisperHTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  httpclient.NewClientWithConfig(whisperBackendName, logger, opts),
		logger:  logger,
	}
}

// Transcribe uploads the audio and decodes the verbose_json response
func (w *WhisperHTTPBackend) Transcribe(ctx context.Context, req SpeechRequest) (*RawTranscription, error) {
	if len(req.Audio) == 0 {
		return nil, apperror.InvalidInput("transcribe", "whisper backend requires audio bytes")
	}

	body, contentType, err := w.buildMultipart(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build transcription request: %w", err)
	}

	endpoint := w.baseURL + "/audio/transcriptions"
	w.logger.Info("submitting audio for transcription",
		zap.String("endpoint", endpoint),
		zap.String("model", w.model),
		zap.String("filename", req.Filename),
		zap.Int("bytes", len(req.Audio)))

	data, err := w.client.Do(ctx, "transcribe", func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", contentType)
		httpReq.Header.Set("Accept", "application/json")
		if w.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+w.apiKey)
		}
		return httpReq, nil
	})
	if err != nil {
		return nil, err
	}

	raw, err := DecodeRawTranscription(data)
	if err != nil {
		return nil, apperror.MalformedResponse("transcribe", whisperBackendName, err)
	}
	return raw, nil
}

func (w *WhisperHTTPBackend) buildMultipart(req SpeechRequest) ([]byte, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := [][2]string{
		{"model", w.model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
	}
	if req.Language != "" {
		fields = append(fields, [2]string{"language", req.Language})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	filename := req.Filename
	if filename == "" {
		filename = "audio"
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(req.Audio); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), mw.FormDataContentType(), nil
}
