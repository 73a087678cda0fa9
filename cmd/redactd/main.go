// CLAUDE:SUMMARY CLI entry point for redactd — the document-redaction session service over HTTP.
// Command redactd serves interactive document-redaction sessions.
//
// Usage:
//
//	redactd -config redactd.yaml    # run with config file
//	redactd -db redact.db           # run with defaults
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/redact/dbopen"
	"github.com/hazyhaar/redact/httpapi"
	"github.com/hazyhaar/redact/session"
)

func main() {
	configPath := flag.String("config", "", "path to redactd.yaml config file")
	dbPath := flag.String("db", "", "path to SQLite session database")
	addr := flag.String("addr", "", "listen address (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := resolveConfig(*configPath, *dbPath, *addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "redactd:", err)
		os.Exit(1)
	}

	lvl := *logLevel
	if lvl == "" {
		lvl = cfg.LogLevel
	}
	var level slog.Level
	switch lvl {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("redactd: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *Config) error {
	db, err := dbopen.Open(cfg.DBPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(session.Schema),
	)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv := httpapi.NewServer(httpapi.Config{
		Store:          session.NewStore(db),
		MaxBodyBytes:   cfg.MaxBodyBytes,
		MaxBulkMatches: cfg.MaxBulkMatches,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("redactd: listening", "addr", cfg.Addr, "db", cfg.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("redactd: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func resolveConfig(configPath, dbPath, addr string) (*Config, error) {
	var cfg *Config
	if configPath != "" {
		loaded, err := LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = &Config{}
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if addr != "" {
		cfg.Addr = addr
	}
	cfg.defaults()
	return cfg, nil
}
