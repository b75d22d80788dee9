// Package config loads Doppel's environment-derived settings (spec
// §6), the way the teacher's internal/config.Load layers a
// best-effort .env load under explicit environment variables.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// DefaultOllamaURL is used when OLLAMA_URL is unset (spec §6).
const DefaultOllamaURL = "http://127.0.0.1:11434"

// Config holds the ambient, environment-sourced settings that sit
// beside the per-run CLI flags in Options.
type Config struct {
	LogLevel  string
	OllamaURL string
}

// Load reads environment variables, first giving a local .env file a
// chance to populate them. A missing .env file is not an error — only
// genuinely malformed .env syntax is.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	cfg := &Config{
		LogLevel:  getEnvOrDefault("DOPPEL_LOG", "info"),
		OllamaURL: getEnvOrDefault("OLLAMA_URL", DefaultOllamaURL),
	}
	return cfg, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Options are the per-run scan parameters bound from CLI flags (spec
// §6). Config and Options are kept separate so the CLI binder (an
// external collaborator) can construct Options however it likes
// without reaching into environment-loading concerns.
type Options struct {
	Input          string
	BaseURL        string
	AttackerToken  string
	VictimID       string
	Concurrency    int
	Timeout        time.Duration
	ConnectTimeout time.Duration

	MutationalFuzzing bool
	PIIAnalysis       bool
	SoftFailAnalysis  bool

	CSVReport      bool
	MarkdownReport bool
	SARIFReport    bool
	PDFReport      bool

	Watch bool
}

// DefaultOptions returns spec §6's default flag values.
func DefaultOptions() Options {
	return Options{
		Concurrency:       50,
		Timeout:           30 * time.Second,
		ConnectTimeout:    10 * time.Second,
		MutationalFuzzing: true,
		PIIAnalysis:       true,
		SoftFailAnalysis:  true,
		MarkdownReport:    true,
	}
}
