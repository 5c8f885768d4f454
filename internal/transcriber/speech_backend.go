package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// SpeechRequest is one audio payload submitted for recognition. Either Audio
// or URL is set; Filename carries the container format hint.
type SpeechRequest struct {
	Audio    []byte
	Filename string
	URL      string
	Language string
}

// RawSpan is one timed span as reported by a speech backend. Pointer fields
// distinguish a missing value from zero.
type RawSpan struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Text  string   `json:"text"`
}

// RawTranscription is the verbose response of a speech backend before
// normalisation. A nil Segments slice means the field was absent.
type RawTranscription struct {
	Text     *string   `json:"text"`
	Language string    `json:"language"`
	Duration *float64  `json:"duration"`
	Segments []RawSpan `json:"segments"`

	// Payload is the undecoded response body, kept for auditing
	Payload json.RawMessage `json:"-"`
}

// SpeechBackend converts audio to timed text spans
type SpeechBackend interface {
	Transcribe(ctx context.Context, req SpeechRequest) (*RawTranscription, error)
}

// DecodeRawTranscription parses a verbose_json response body
func DecodeRawTranscription(data []byte) (*RawTranscription, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("response is not a JSON object")
	}

	var raw RawTranscription
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode transcription response: %w", err)
	}
	raw.Payload = append(json.RawMessage(nil), trimmed...)
	return &raw, nil
}
