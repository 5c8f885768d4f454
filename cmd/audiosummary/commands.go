package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"audiosummary/internal/app"
	"audiosummary/internal/config"
	"audiosummary/internal/logger"
	"audiosummary/internal/output"
	"audiosummary/internal/transcript"
)

// appFactory builds the application once configuration is resolved. Tests
// swap it for one that injects stub backends.
type appFactory func(cfg *config.Configuration, zapLogger *zap.Logger) (*app.Application, error)

func defaultAppFactory(cfg *config.Configuration, zapLogger *zap.Logger) (*app.Application, error) {
	return app.NewApplicationWithConfig(cfg, zapLogger)
}

type globalOptions struct {
	configPath string
	debug      bool
	stats      bool
}

func newRootCmd(factory appFactory) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "audiosummary",
		Short:         "Transcribe audio and build summaries grounded in timestamped quotes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "configuration file (defaults to $CONFIG_PATH, then the environment)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging and per-call benchmark logs")
	root.PersistentFlags().BoolVar(&opts.stats, "stats", false, "print backend performance statistics to stderr")

	root.AddCommand(
		newTranscribeCmd(opts, factory),
		newSummarizeCmd(opts, factory),
		newAlignCmd(opts, factory),
		newVersionCmd(),
	)
	return root
}

// loadConfiguration resolves --config, then CONFIG_PATH, then the environment
func loadConfiguration(opts *globalOptions) (*config.Configuration, error) {
	path := opts.configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg *config.Configuration
	var err error
	if path != "" {
		cfg, err = config.NewConfigurationFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", path, err)
		}
	} else {
		cfg, err = config.NewConfigurationFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
	}

	if opts.debug {
		cfg.SetDebugMode(true)
	}
	return cfg, nil
}

// session is one command invocation's application plus its teardown
type session struct {
	app    *app.Application
	opts   *globalOptions
	stderr io.Writer
}

func openSession(cmd *cobra.Command, opts *globalOptions, factory appFactory, configure func(*config.Configuration)) (*session, error) {
	cfg, err := loadConfiguration(opts)
	if err != nil {
		return nil, err
	}
	if configure != nil {
		configure(cfg)
	}

	zapLogger, err := logger.NewLoggerFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	application, err := factory(cfg, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &session{app: application, opts: opts, stderr: cmd.ErrOrStderr()}, nil
}

func (s *session) close() {
	if s.opts.stats {
		fmt.Fprintln(s.stderr, s.app.Monitor().GetPerformanceSummary())
	}
	s.app.Close()
}

// openOutput returns the command's stdout, or a created file when path is set
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return f, f.Close, nil
}

// closeOutput closes an output opened by openOutput. A close failure is
// reported unless an earlier error is already being returned.
func closeOutput(closeFn func() error, err *error) {
	if cerr := closeFn(); cerr != nil && *err == nil {
		*err = fmt.Errorf("failed to close output: %w", cerr)
	}
}

func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q (expected one of %s)", format, strings.Join(allowed, ", "))
}

func sourceMetadata(a *app.Application, source string) output.Metadata {
	return output.Metadata{
		Source:  source,
		Backend: a.Config().GetSTTModel(),
		Model:   a.Config().GetLLMModel(),
	}
}

func newTranscribeCmd(opts *globalOptions, factory appFactory) *cobra.Command {
	var outPath, format string

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file|url>",
		Short: "Transcribe audio into timestamped segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err := checkFormat(format, "json", "markdown"); err != nil {
				return err
			}

			s, err := openSession(cmd, opts, factory, nil)
			if err != nil {
				return err
			}
			defer s.close()

			t, err := s.app.Transcribe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			// JSON files go through the atomic writer so summarize can reload them
			if format == "json" && outPath != "" && outPath != "-" {
				if err := output.SaveTranscript(outPath, t); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Transcript with %d segments written to %s\n", len(t.Segments), outPath)
				return nil
			}

			w, closeFn, err := openOutput(cmd, outPath)
			if err != nil {
				return err
			}
			defer closeOutput(closeFn, &err)

			if format == "markdown" {
				_, err = io.WriteString(w, output.RenderTranscriptMarkdown(sourceMetadata(s.app, args[0]), t))
				return err
			}
			return output.NewJSONOutputWithIndent(w, s.app.Logger(), true).WriteTranscript(t)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or markdown")
	return cmd
}

// isTranscriptFile reports whether source is a saved transcript rather than audio
func isTranscriptFile(source string) bool {
	return !app.IsURL(source) && strings.EqualFold(filepath.Ext(source), ".json")
}

func newSummarizeCmd(opts *globalOptions, factory appFactory) *cobra.Command {
	var outPath, format, style string
	var sections int

	cmd := &cobra.Command{
		Use:   "summarize <transcript.json|audio-file|url>",
		Short: "Summarize a transcript with quotes grounded in its timestamps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err := checkFormat(format, "json", "markdown", "text"); err != nil {
				return err
			}

			s, err := openSession(cmd, opts, factory, func(cfg *config.Configuration) {
				if cmd.Flags().Changed("sections") {
					cfg.SetSectionCount(sections)
				}
				if cmd.Flags().Changed("style") {
					cfg.SetSummaryStyle(style)
				}
			})
			if err != nil {
				return err
			}
			defer s.close()

			source := args[0]
			var t *transcript.Transcript
			if isTranscriptFile(source) {
				t, err = output.LoadTranscript(source)
			} else {
				t, err = s.app.Transcribe(cmd.Context(), source)
			}
			if err != nil {
				return err
			}

			summary, err := s.app.Summarize(cmd.Context(), t)
			if err != nil {
				return err
			}

			w, closeFn, err := openOutput(cmd, outPath)
			if err != nil {
				return err
			}
			defer closeOutput(closeFn, &err)

			switch format {
			case "markdown":
				_, err = io.WriteString(w, output.RenderSummaryMarkdown(sourceMetadata(s.app, source), summary))
			case "text":
				_, err = fmt.Fprintln(w, summary.SummaryText)
			default:
				err = output.NewJSONOutputWithIndent(w, s.app.Logger(), true).WriteSummary(summary)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json, markdown or text")
	cmd.Flags().IntVar(&sections, "sections", 0, "number of summary sections to request")
	cmd.Flags().StringVar(&style, "style", "", "summary style passed to the model")
	return cmd
}

func newAlignCmd(opts *globalOptions, factory appFactory) *cobra.Command {
	var contextSeconds float64

	cmd := &cobra.Command{
		Use:   "align <transcript.json> <quote...>",
		Short: "Locate a quote in a saved transcript",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts, factory, nil)
			if err != nil {
				return err
			}
			defer s.close()

			t, err := output.LoadTranscript(args[0])
			if err != nil {
				return err
			}

			quote := strings.Join(args[1:], " ")
			q, ok := s.app.Align(quote, t)
			if !ok {
				return &exitError{code: exitUnresolved, msg: fmt.Sprintf("Quote not found in transcript: %q", quote)}
			}

			w := cmd.OutOrStdout()
			if err := output.NewJSONOutput(w, s.app.Logger()).WriteQuote(q); err != nil {
				return err
			}
			if contextSeconds > 0 {
				fmt.Fprint(w, output.RenderQuoteContext(q, t.Segments, contextSeconds))
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&contextSeconds, "context", 0, "show surrounding segments within this many seconds")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "audiosummary %s\n", version)
		},
	}
}
