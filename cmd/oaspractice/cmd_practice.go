package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/oaspractice/internal/config"
	"github.com/felixgeelhaar/oaspractice/internal/domain"
	mcpserver "github.com/felixgeelhaar/oaspractice/internal/mcp"
	"github.com/felixgeelhaar/oaspractice/internal/queue"
	"github.com/felixgeelhaar/oaspractice/internal/tui"
)

// cmdPractice runs the interactive terminal UI
func cmdPractice() error {
	s, err := openSession(context.Background())
	if err != nil {
		return err
	}
	defer s.Close()
	if err := requireDaemon(s.Config); err != nil {
		return err
	}

	m := tui.New(s.Controller, s.Ledger, tui.Options{
		SyntaxDelay:    time.Duration(s.Config.Client.SyntaxDebounceMS) * time.Millisecond,
		RequestTimeout: time.Duration(s.Config.Client.TimeoutSeconds) * time.Second,
	})
	defer m.Close()

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run practice UI: %w", err)
	}
	return nil
}

// cmdMCP serves the practice tools over stdio, or HTTP with --http <addr>
func cmdMCP(args []string) error {
	var httpAddr string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--http":
			if i+1 >= len(args) {
				return fmt.Errorf("--http requires an address (e.g., --http :8090)")
			}
			i++
			httpAddr = args[i]
		default:
			return fmt.Errorf("unknown option: %s", args[i])
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := requireDaemon(s.Config); err != nil {
		return err
	}

	server := mcpserver.NewServer(mcpserver.Config{
		Controller: s.Controller,
		Progress:   s.Ledger,
		Version:    Version,
		Logger:     s.Logger,
	})

	if httpAddr != "" {
		fmt.Fprintf(os.Stderr, "MCP server listening on %s\n", httpAddr)
		return server.ServeHTTP(ctx, httpAddr)
	}
	return server.ServeStdio(ctx)
}

// cmdEvents prints progress events from the queue until interrupted
func cmdEvents() error {
	appDir, err := config.EnsureAppDir()
	if err != nil {
		return fmt.Errorf("ensure app dir: %w", err)
	}
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Events.AMQPURL == "" {
		return fmt.Errorf("no broker configured (set events.amqp_url or %s)", config.EnvAMQPURL)
	}

	logFile, logger, err := setupLogging(appDir, cfg.Client.LogLevel)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logFile.Close()

	conn, err := queue.NewConnection(cfg.Events.AMQPURL, cfg.Events.Queue, logger)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := queue.NewConsumer(conn, func(_ context.Context, msg *queue.ProgressMessage) error {
		fmt.Println(formatEvent(msg))
		return nil
	}, logger)
	if err := consumer.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("Listening on queue %s (Ctrl+C to stop)\n", conn.Queue())
	<-ctx.Done()
	consumer.Stop()
	return nil
}

func formatEvent(msg *queue.ProgressMessage) string {
	at := msg.RecordedAt.Local().Format(time.TimeOnly)
	switch msg.Type {
	case domain.EventScenarioCompleted:
		return fmt.Sprintf("%s ✓ %s completed (+%d pts, %d completed, %d total)",
			at, msg.ScenarioID, msg.Points, msg.CompletedCount, msg.TotalPoints)
	default:
		return fmt.Sprintf("%s • %s scored %d/%d (attempt %d, %d total)",
			at, msg.ScenarioID, msg.Score, msg.MaxScore, msg.Attempts, msg.TotalPoints)
	}
}
