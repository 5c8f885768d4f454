package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration provides type-safe access to application settings
type Configuration struct {
	viper *viper.Viper
}

// envBindings maps configuration keys to the environment variables that override them
var envBindings = map[string]string{
	"stt.base_url":                   "STT_BASE_URL",
	"stt.api_key":                    "STT_API_KEY",
	"stt.model":                      "STT_MODEL",
	"stt.language":                   "STT_LANGUAGE",
	"llm.base_url":                   "LLM_BASE_URL",
	"llm.model":                      "LLM_MODEL",
	"llm.temperature":                "LLM_TEMPERATURE",
	"summary.section_count":          "SUMMARY_SECTION_COUNT",
	"summary.style":                  "SUMMARY_STYLE",
	"summary.include_segments":       "SUMMARY_INCLUDE_SEGMENTS",
	"alignment.similarity_threshold": "ALIGNMENT_SIMILARITY_THRESHOLD",
	"alignment.max_window":           "ALIGNMENT_MAX_WINDOW",
	"backend.max_retries":            "BACKEND_MAX_RETRIES",
	"backend.base_backoff_ms":        "BACKEND_BASE_BACKOFF_MS",
	"backend.timeout_sec":            "BACKEND_TIMEOUT_SEC",
	"audio.max_bytes":                "AUDIO_MAX_BYTES",
	"app.debug":                      "DEBUG_MODE",
	"log.level":                      "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("stt.base_url", "https://api.openai.com/v1")
	v.SetDefault("stt.api_key", "")
	v.SetDefault("stt.model", "whisper-1")
	v.SetDefault("stt.language", "")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "llama3.1")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("summary.section_count", 4)
	v.SetDefault("summary.style", "study-notes")
	v.SetDefault("summary.include_segments", true)
	v.SetDefault("alignment.similarity_threshold", 0.8)
	v.SetDefault("alignment.max_window", 3)
	v.SetDefault("backend.max_retries", 3)
	v.SetDefault("backend.base_backoff_ms", 500)
	v.SetDefault("backend.timeout_sec", 300)
	v.SetDefault("audio.max_bytes", 25*1024*1024)
	v.SetDefault("app.debug", false)
	v.SetDefault("log.level", "info")
}

// NewConfiguration creates a new Configuration instance with default settings
func NewConfiguration() *Configuration {
	v := viper.New()
	setDefaults(v)
	return &Configuration{viper: v}
}

// NewConfigurationFromFile creates a Configuration instance from a config file
func NewConfigurationFromFile(configFile string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	cfg := &Configuration{viper: v}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configFile, err)
	}
	return cfg, nil
}

// NewConfigurationFromEnv creates a Configuration instance that reads from
// environment variables, after loading any .env files given (or ./.env)
func NewConfigurationFromEnv(envFiles ...string) (*Configuration, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	// Set up environment variable mapping
	v.SetEnvPrefix("AUDIOSUMMARY")
	v.AutomaticEnv()

	for key, env := range envBindings {
		if err := v.BindEnv(key, env, "AUDIOSUMMARY_"+env); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", env, err)
		}
	}

	cfg := &Configuration{viper: v}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}
	return cfg, nil
}

// loadEnvFiles loads dotenv files without overriding variables already set.
// Missing files are skipped.
func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// Validate checks that numeric settings are within usable ranges
func (c *Configuration) Validate() error {
	if t := c.GetSimilarityThreshold(); t <= 0 || t > 1 {
		return fmt.Errorf("similarity threshold must be in (0, 1], got %v", t)
	}
	if w := c.GetMaxWindow(); w < 1 || w > 10 {
		return fmt.Errorf("max window must be between 1 and 10 segments, got %d", w)
	}
	if n := c.GetSectionCount(); n < 1 || n > 20 {
		return fmt.Errorf("section count must be between 1 and 20, got %d", n)
	}
	if r := c.GetMaxRetries(); r < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", r)
	}
	if b := c.GetBaseBackoffMS(); b < 0 {
		return fmt.Errorf("base backoff cannot be negative, got %d", b)
	}
	if s := c.GetBackendTimeoutSec(); s < 1 {
		return fmt.Errorf("backend timeout must be at least 1 second, got %d", s)
	}
	if m := c.GetAudioMaxBytes(); m < 1 {
		return fmt.Errorf("audio max bytes must be positive, got %d", m)
	}
	return nil
}

// GetSTTBaseURL returns the base URL of the speech-to-text backend
func (c *Configuration) GetSTTBaseURL() string {
	return c.viper.GetString("stt.base_url")
}

// GetSTTAPIKey returns the bearer token for the speech-to-text backend
func (c *Configuration) GetSTTAPIKey() string {
	return c.viper.GetString("stt.api_key")
}

// GetSTTModel returns the speech-to-text model name
func (c *Configuration) GetSTTModel() string {
	return c.viper.GetString("stt.model")
}

// GetSTTLanguage returns the optional language hint
func (c *Configuration) GetSTTLanguage() string {
	return c.viper.GetString("stt.language")
}

// GetLLMBaseURL returns the base URL of the generation backend
func (c *Configuration) GetLLMBaseURL() string {
	return c.viper.GetString("llm.base_url")
}

// GetLLMModel returns the generation model name
func (c *Configuration) GetLLMModel() string {
	return c.viper.GetString("llm.model")
}

// GetLLMTemperature returns the sampling temperature for generation
func (c *Configuration) GetLLMTemperature() float64 {
	return c.viper.GetFloat64("llm.temperature")
}

// GetSectionCount returns the requested number of summary sections
func (c *Configuration) GetSectionCount() int {
	return c.viper.GetInt("summary.section_count")
}

// SetSectionCount overrides the requested number of summary sections
func (c *Configuration) SetSectionCount(n int) {
	c.viper.Set("summary.section_count", n)
}

// GetSummaryStyle returns the requested summary style
func (c *Configuration) GetSummaryStyle() string {
	return c.viper.GetString("summary.style")
}

// SetSummaryStyle overrides the requested summary style
func (c *Configuration) SetSummaryStyle(style string) {
	c.viper.Set("summary.style", style)
}

// GetIncludeSegments reports whether per-segment text is sent to the generation backend
func (c *Configuration) GetIncludeSegments() bool {
	return c.viper.GetBool("summary.include_segments")
}

// GetSimilarityThreshold returns the minimum similarity for tolerant quote matches
func (c *Configuration) GetSimilarityThreshold() float64 {
	return c.viper.GetFloat64("alignment.similarity_threshold")
}

// GetMaxWindow returns the largest run of segments a quote may span
func (c *Configuration) GetMaxWindow() int {
	return c.viper.GetInt("alignment.max_window")
}

// GetMaxRetries returns the number of attempts made against a backend
func (c *Configuration) GetMaxRetries() int {
	return c.viper.GetInt("backend.max_retries")
}

// GetBaseBackoffMS returns the base exponential backoff between attempts
func (c *Configuration) GetBaseBackoffMS() int {
	return c.viper.GetInt("backend.base_backoff_ms")
}

// GetBackendTimeoutSec returns the per-request timeout for backend calls
func (c *Configuration) GetBackendTimeoutSec() int {
	return c.viper.GetInt("backend.timeout_sec")
}

// GetBackendTimeout returns the per-request timeout as a duration
func (c *Configuration) GetBackendTimeout() time.Duration {
	return time.Duration(c.GetBackendTimeoutSec()) * time.Second
}

// GetAudioMaxBytes returns the largest audio payload accepted
func (c *Configuration) GetAudioMaxBytes() int64 {
	return c.viper.GetInt64("audio.max_bytes")
}

// GetDebugMode returns whether debug logging is enabled
func (c *Configuration) GetDebugMode() bool {
	return c.viper.GetBool("app.debug")
}

// SetDebugMode enables or disables debug logging
func (c *Configuration) SetDebugMode(enabled bool) {
	c.viper.Set("app.debug", enabled)
}

// GetLogLevel returns the configured log level name
func (c *Configuration) GetLogLevel() string {
	return c.viper.GetString("log.level")
}
