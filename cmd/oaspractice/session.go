package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/oaspractice/internal/app"
	"github.com/felixgeelhaar/oaspractice/internal/config"
)

// session is an opened app plus the resources the CLI owns
type session struct {
	*app.App
	logFile *os.File
}

// openSession loads config, logs to ~/.oaspractice/logs/oaspractice.log
// and wires the practice components
func openSession(ctx context.Context) (*session, error) {
	appDir, err := config.EnsureAppDir()
	if err != nil {
		return nil, fmt.Errorf("ensure app dir: %w", err)
	}

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logFile, logger, err := setupLogging(appDir, cfg.Client.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	a, err := app.New(ctx, app.Options{
		Config: cfg,
		Dir:    filepath.Join(appDir, "progress"),
		Logger: logger,
	})
	if err != nil {
		logFile.Close()
		return nil, err
	}
	return &session{App: a, logFile: logFile}, nil
}

func (s *session) Close() {
	if err := s.App.Close(); err != nil {
		s.Logger.Error("close session", "error", err)
	}
	s.logFile.Close()
}

// setupLogging writes JSON logs to a file only, so terminal output stays clean
func setupLogging(appDir, level string) (*os.File, *slog.Logger, error) {
	logPath := filepath.Join(appDir, "logs", "oaspractice.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
	slog.SetDefault(logger)
	return logFile, logger, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
