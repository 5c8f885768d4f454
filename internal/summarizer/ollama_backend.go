package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"audiosummary/internal/apperror"
	"audiosummary/internal/httpclient"
	"audiosummary/internal/transcript"
)

const ollamaBackendName = "ollama"

const systemPrompt = `ROLE: Study notes writer.

TASK:
Summarize the transcript into the requested number of sections.
RULES:
1. Each section has a short "title" and a "content" paragraph in the requested style.
2. Each section may list up to 3 "quotes": sentences copied VERBATIM from the transcript.
3. NEVER paraphrase a quote. If nothing fits, return an empty "quotes" list.
4. Return a JSON object with a "sections" key and nothing else.

EXAMPLE:
{
  "sections": [
    {"title": "Cell energy", "content": "The lecture explains where cells get energy.", "quotes": ["The mitochondria is the powerhouse of the cell."]}
  ]
}
`

// OllamaBackend generates summary sections through the Ollama generate API
type OllamaBackend struct {
	baseURL     string
	model       string
	temperature float64
	client      *httpclient.Client
	logger      *zap.Logger
}

// NewOllamaBackend creates a backend with default retry settings
func NewOllamaBackend(baseURL, model string) *OllamaBackend {
	return NewOllamaBackendWithConfig(zap.NewNop(), baseURL, model, 0.2, httpclient.Options{})
}

// NewOllamaBackendWithConfig creates a backend with custom logger, temperature and retry options
func NewOllamaBackendWithConfig(logger *zap.Logger, baseURL, model string, temperature float64, opts httpclient.Options) *OllamaBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaBackend{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		client:      httpclient.NewClientWithConfig(ollamaBackendName, logger, opts),
		logger:      logger,
	}
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system"`
	Prompt  string         `json:"prompt"`
	Format  string         `json:"format"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

type ollamaResponse struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// Generate requests sections for the transcript in req
func (o *OllamaBackend) Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error) {
	payload := ollamaRequest{
		Model:  o.model,
		System: systemPrompt,
		Prompt: buildPrompt(req),
		Format: "json",
		Stream: false,
		Options: map[string]any{
			"temperature": o.temperature,
			"num_ctx":     8192,
		},
	}

	o.logger.Info("requesting summary sections",
		zap.String("model", o.model),
		zap.Int("section_count", req.SectionCount),
		zap.Int("segments", len(req.Segments)))

	body, err := o.client.PostJSON(ctx, "generate", o.baseURL+"/api/generate", payload, nil)
	if err != nil {
		return nil, err
	}

	var envelope ollamaResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperror.MalformedResponse("generate", ollamaBackendName, fmt.Errorf("failed to decode response envelope: %w", err))
	}
	if envelope.Response == nil {
		return nil, apperror.MalformedResponse("generate", ollamaBackendName, fmt.Errorf("response envelope has no response field"))
	}

	resp, err := DecodeGenerationResponse(*envelope.Response)
	if err != nil {
		o.logger.Warn("generation output rejected",
			zap.String("output_prefix", truncate(*envelope.Response, 100)),
			zap.Error(err))
		return nil, apperror.MalformedResponse("generate", ollamaBackendName, err)
	}

	o.logger.Debug("summary sections received", zap.Int("sections", len(resp.Sections)))
	return resp, nil
}

// buildPrompt renders the user prompt. Per-segment lines carry clock stamps
// so the model can keep quotes within one passage.
func buildPrompt(req GenerationRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "SECTIONS: %d\n", req.SectionCount)
	if req.Style != "" {
		fmt.Fprintf(&b, "STYLE: %s\n", req.Style)
	}
	if req.Language != "" {
		fmt.Fprintf(&b, "LANGUAGE: %s\n", req.Language)
	}

	if len(req.Segments) > 0 {
		b.WriteString("\nTRANSCRIPT SEGMENTS:\n")
		for _, s := range req.Segments {
			fmt.Fprintf(&b, "[%s] %s\n", transcript.FormatTime(s.StartTime), s.Text)
		}
	} else {
		fmt.Fprintf(&b, "\nTRANSCRIPT:\n%s\n", req.FullTranscript)
	}

	b.WriteString("\nJSON SUMMARY:\n")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
