// Package output renders transcripts and summaries as JSON, Markdown or
// plain text, and persists transcripts between CLI invocations.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"audiosummary/internal/summarizer"
	"audiosummary/internal/transcript"
)

// JSONOutput writes results as JSON documents to a writer
type JSONOutput struct {
	writer io.Writer
	logger *zap.Logger
	indent bool
}

// NewJSONOutput creates a JSONOutput that writes one compact document per line
func NewJSONOutput(writer io.Writer, logger *zap.Logger) *JSONOutput {
	return NewJSONOutputWithIndent(writer, logger, false)
}

// NewJSONOutputWithIndent creates a JSONOutput, optionally pretty-printed
func NewJSONOutputWithIndent(writer io.Writer, logger *zap.Logger, indent bool) *JSONOutput {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONOutput{writer: writer, logger: logger, indent: indent}
}

// WriteTranscript validates and writes a transcript
func (jo *JSONOutput) WriteTranscript(t *transcript.Transcript) error {
	if t == nil {
		return fmt.Errorf("invalid transcript: nil")
	}
	if err := t.Validate(); err != nil {
		jo.logger.Error("invalid transcript", zap.Error(err))
		return fmt.Errorf("invalid transcript: %w", err)
	}

	if err := jo.write(t); err != nil {
		return err
	}

	jo.logger.Debug("output JSON transcript",
		zap.String("transcript_id", t.ID),
		zap.Int("segments", len(t.Segments)))
	return nil
}

// WriteSummary validates quote bounds and writes a summary
func (jo *JSONOutput) WriteSummary(s *summarizer.AudioSummaryWithQuotes) error {
	if s == nil {
		return fmt.Errorf("invalid summary: nil")
	}
	duration := transcript.MaxEndTime(s.FullSegments)
	for i, sec := range s.Sections {
		for j := range sec.Quotes {
			if err := sec.Quotes[j].Validate(duration); err != nil {
				jo.logger.Error("invalid quote", zap.Int("section", i), zap.Error(err))
				return fmt.Errorf("invalid quote %d in section %d: %w", j, i, err)
			}
		}
	}

	if err := jo.write(s); err != nil {
		return err
	}

	jo.logger.Debug("output JSON summary",
		zap.String("summary_id", s.ID),
		zap.Int("sections", len(s.Sections)))
	return nil
}

// WriteQuote writes a single aligned quote
func (jo *JSONOutput) WriteQuote(q transcript.QuotedSegment) error {
	return jo.write(q)
}

func (jo *JSONOutput) write(v any) error {
	var (
		data []byte
		err  error
	)
	if jo.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		jo.logger.Error("failed to marshal JSON", zap.Error(err))
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := fmt.Fprintf(jo.writer, "%s\n", data); err != nil {
		jo.logger.Error("failed to write JSON output", zap.Error(err))
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}

// Close closes the underlying writer when it is closable
func (jo *JSONOutput) Close() error {
	jo.logger.Debug("closing JSON output")
	if c, ok := jo.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
