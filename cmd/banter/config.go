package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

const (
	providerGemini    = "gemini"
	providerAnthropic = "anthropic"

	storageJSON   = "json"
	storageSQLite = "sqlite"
)

// config is resolved from defaults, then the TOML file, then the
// environment, then command-line flags.
type config struct {
	Provider string   `toml:"provider" env:"BANTER_PROVIDER"`
	Model    string   `toml:"model" env:"BANTER_MODEL"`
	Models   []string `toml:"models" env:"BANTER_MODELS" envSeparator:","`
	Stream   bool     `toml:"stream" env:"BANTER_STREAM"`
	FreeTier bool     `toml:"free_tier" env:"BANTER_FREE_TIER"`
	Storage  string   `toml:"storage" env:"BANTER_STORAGE"`
	DataDir  string   `toml:"data_dir" env:"BANTER_DATA_DIR"`
	LogFile  string   `toml:"log_file" env:"BANTER_LOG_FILE"`
	LogLevel string   `toml:"log_level" env:"BANTER_LOG_LEVEL"`

	// Keys come from the environment only. The credentials file holds keys
	// entered through sign-in.
	GeminiAPIKey    string `toml:"-" env:"GEMINI_API_KEY"`
	AnthropicAPIKey string `toml:"-" env:"ANTHROPIC_API_KEY"`
}

func defaultConfig(dir string) config {
	return config{
		Stream:   true,
		Storage:  storageJSON,
		DataDir:  dir,
		LogLevel: "info",
	}
}

// loadConfig resolves the configuration. A missing file is not an error.
// environ is passed in so only main reads the process environment.
func loadConfig(path, dir string, environ map[string]string, args []string) (config, error) {
	cfg := defaultConfig(dir)

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return config{}, fmt.Errorf("parse environment: %w", err)
	}

	fset := flag.NewFlagSet("banter", flag.ContinueOnError)
	fset.StringVar(&cfg.Provider, "provider", cfg.Provider, "Provider: gemini, anthropic (auto-detected from env vars if omitted)")
	fset.StringVar(&cfg.Model, "model", cfg.Model, "Model ID (default: first of models, then provider default)")
	fset.BoolVar(&cfg.Stream, "stream", cfg.Stream, "Stream replies as they are generated")
	fset.StringVar(&cfg.Storage, "storage", cfg.Storage, "Local state backend: json, sqlite")
	fset.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory for local state and uploads")
	fset.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file (default: <data-dir>/banter.log)")
	fset.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	if err := fset.Parse(args); err != nil {
		return config{}, err
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = detectProvider(cfg.GeminiAPIKey, cfg.AnthropicAPIKey)
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, "banter.log")
	}
	return cfg, cfg.validate()
}

// detectProvider picks the provider whose key is set. Gemini wins ties and
// is the default when no key is set, since keys can be entered at sign-in.
func detectProvider(geminiKey, anthropicKey string) string {
	if anthropicKey != "" && geminiKey == "" {
		return providerAnthropic
	}
	return providerGemini
}

func (c config) validate() error {
	switch c.Provider {
	case providerGemini, providerAnthropic:
	default:
		return fmt.Errorf("unknown provider %q: must be %q or %q", c.Provider, providerGemini, providerAnthropic)
	}
	switch c.Storage {
	case storageJSON, storageSQLite:
	default:
		return fmt.Errorf("unknown storage %q: must be %q or %q", c.Storage, storageJSON, storageSQLite)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// envKey returns the environment key for the selected provider.
func (c config) envKey() string {
	if c.Provider == providerAnthropic {
		return c.AnthropicAPIKey
	}
	return c.GeminiAPIKey
}

// models returns the selectable model IDs with the configured model first.
// An empty list means the provider default.
func (c config) models() []string {
	out := make([]string, 0, len(c.Models)+1)
	if c.Model != "" {
		out = append(out, c.Model)
	}
	for _, m := range c.Models {
		m = strings.TrimSpace(m)
		if m != "" && m != c.Model {
			out = append(out, m)
		}
	}
	return out
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
