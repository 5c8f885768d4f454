package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"audiosummary/internal/apperror"
	"audiosummary/internal/transcript"
)

// SaveTranscript writes t as indented JSON to path. The file is replaced
// atomically so a crash never leaves a truncated transcript behind.
func SaveTranscript(path string, t *transcript.Transcript) error {
	if t == nil {
		return fmt.Errorf("failed to save transcript: nil transcript")
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".transcript-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move transcript into place: %w", err)
	}
	return nil
}

// LoadTranscript reads a transcript written by SaveTranscript. Files that do
// not decode or fail validation are reported as invalid input.
func LoadTranscript(path string) (*transcript.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.InvalidInput("load_transcript", "failed to read %s: %v", path, err)
	}

	var t transcript.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, apperror.InvalidInput("load_transcript", "%s is not a transcript: %v", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, apperror.InvalidInput("load_transcript", "%s holds an invalid transcript: %v", path, err)
	}
	return &t, nil
}
