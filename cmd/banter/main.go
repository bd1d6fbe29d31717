// Command banter is a terminal chat client for hosted language models.
//
// Usage:
//
//	GEMINI_API_KEY=... banter [flags]
//	ANTHROPIC_API_KEY=... banter -provider anthropic [flags]
//
// Without a key in the environment, press Ctrl+L to sign in. Keys entered
// there are kept in <config-dir>/banter/credentials.toml.
//
// Flags:
//
//	-provider string   Provider: gemini, anthropic (auto-detected from env vars if omitted)
//	-model string      Model ID (default: first of models, then provider default)
//	-stream            Stream replies as they are generated (default true)
//	-storage string    Local state backend: json, sqlite (default json)
//	-data-dir string   Directory for local state and uploads
//	-log-file string   Log file (default: <data-dir>/banter.log)
//	-log-level string  Log level: debug, info, warn, error (default info)
//
// Settings can also come from <config-dir>/banter/config.toml and BANTER_*
// environment variables. Flags win over the environment, which wins over
// the file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fwojciec/banter"
	bt "github.com/fwojciec/banter/bubbletea"
	"github.com/fwojciec/banter/credentials"
	"github.com/fwojciec/banter/fs"
	banterjson "github.com/fwojciec/banter/json"
	"github.com/fwojciec/banter/sqlite"
)

// defaultModels are offered by Ctrl+T when the config names none.
var defaultModels = map[string][]string{
	providerGemini:    {"gemini-2.5-flash", "gemini-2.5-pro", "gemini-2.5-flash-lite"},
	providerAnthropic: {"claude-sonnet-4-20250514", "claude-opus-4-20250514", "claude-3-5-haiku-20241022"},
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "banter: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dir := configDir()
	cfg, err := loadConfig(filepath.Join(dir, "config.toml"), dir, environ(), os.Args[1:])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, closeLog, err := openLog(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	flags, closeFlags, err := openFlagStore(cfg)
	if err != nil {
		return err
	}
	defer closeFlags()

	previewDir, err := os.MkdirTemp("", "banter-previews-")
	if err != nil {
		return fmt.Errorf("create preview directory: %w", err)
	}
	defer os.RemoveAll(previewDir)

	creds := credentials.NewStore(filepath.Join(dir, "credentials.toml"), cfg.Provider, cfg.envKey())
	session := banter.NewSession(creds, flags, logger)
	conversation := banter.NewConversation()
	attachments := banter.NewAttachments(fs.NewPreviews(previewDir), logger)

	build, err := builder(cfg.Provider, fs.NewStore(filepath.Join(cfg.DataDir, "uploads")))
	if err != nil {
		return err
	}
	provider := newLazyProvider(creds, build)

	controller := banter.NewController(provider, provider, session, conversation, attachments,
		banter.WithLogger(logger),
		banter.WithStreaming(cfg.Stream),
		banter.WithFreeTier(cfg.FreeTier),
	)

	changes := make(chan struct{}, 1)
	if err := creds.Watch(ctx, func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}); err != nil {
		logger.Warn("watch credentials", "path", creds.Path(), "error", err)
	}

	models := cfg.models()
	if len(models) == 0 {
		models = defaultModels[cfg.Provider]
	}
	wd, _ := os.Getwd()
	m := bt.New(controller, conversation, session, attachments, banter.DefaultTheme(),
		bt.WithModels(models...),
		bt.WithPickerDir(wd),
	)

	logger.Info("starting", "provider", cfg.Provider, "storage", cfg.Storage, "stream", cfg.Stream)
	if err := bt.Run(ctx, m, changes); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			home = "."
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "banter")
}

func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

// openLog sends logs to a file because the TUI owns the terminal.
func openLog(path, level string) (*slog.Logger, func(), error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl}))
	return logger, func() { f.Close() }, nil
}

func openFlagStore(cfg config) (banter.FlagStore, func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}
	switch cfg.Storage {
	case storageSQLite:
		s, err := sqlite.Open(filepath.Join(cfg.DataDir, "state.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return banterjson.NewStore(filepath.Join(cfg.DataDir, "state.json")), func() {}, nil
	}
}
