package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"audiosummary/internal/transcript"
)

// GenerationRequest is the context handed to a generation backend
type GenerationRequest struct {
	FullTranscript string
	Segments       []transcript.Segment
	SectionCount   int
	Style          string
	Language       string
}

// RawSection is one section as emitted by a generation backend. Quotes are
// untrusted free text and must be aligned before use.
type RawSection struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Quotes  []string `json:"quotes"`
}

// GenerationResponse is the structured output of a generation backend
type GenerationResponse struct {
	Sections []RawSection `json:"sections"`
}

// GenerationBackend produces summary sections with candidate quotes
type GenerationBackend interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
}

// Validate checks that every section carries content. A response with no
// sections is valid.
func (r *GenerationResponse) Validate() error {
	for i, s := range r.Sections {
		if strings.TrimSpace(s.Content) == "" {
			return fmt.Errorf("section %d has no content", i)
		}
	}
	return nil
}

// DecodeGenerationResponse strictly decodes a sections document, tolerating
// a surrounding markdown code fence.
func DecodeGenerationResponse(text string) (*GenerationResponse, error) {
	clean := stripCodeFence(text)
	if clean == "" {
		return nil, fmt.Errorf("generation output is empty")
	}

	var doc struct {
		Sections *[]RawSection `json:"sections"`
	}
	if err := json.Unmarshal([]byte(clean), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode sections: %w", err)
	}
	if doc.Sections == nil {
		return nil, fmt.Errorf("generation output has no sections field")
	}

	resp := &GenerationResponse{Sections: *doc.Sections}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return resp, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
