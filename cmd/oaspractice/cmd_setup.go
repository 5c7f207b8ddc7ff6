package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/oaspractice/internal/app"
	"github.com/felixgeelhaar/oaspractice/internal/config"
	"github.com/felixgeelhaar/oaspractice/internal/scenario"
	"github.com/felixgeelhaar/oaspractice/scenarios"
)

// cmdInit initializes oaspractice for first-time use
func cmdInit() error {
	fmt.Println("oaspractice - First-Time Setup")
	fmt.Println("==============================")
	fmt.Println()

	fmt.Print("Creating ~/.oaspractice directory structure... ")
	appDir, err := config.EnsureAppDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Println("✓")

	configPath := filepath.Join(appDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Print("Creating default configuration... ")
		if err := config.SaveLocalConfig(config.DefaultLocalConfig()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println("✓")
	} else {
		fmt.Println("Configuration already exists ✓")
	}

	fmt.Print("Installing bundled scenarios... ")
	n, err := scenario.Install(scenarios.FS, filepath.Join(appDir, "scenarios"))
	if err != nil {
		return fmt.Errorf("install scenarios: %w", err)
	}
	if n == 0 {
		fmt.Println("✓ (already installed)")
	} else {
		fmt.Printf("✓ (%d added)\n", n)
	}

	fmt.Println()
	fmt.Println("Setup Complete!")
	fmt.Println("===============")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. oaspractice start      # Start the daemon")
	fmt.Println("  2. oaspractice doctor     # Verify the setup")
	fmt.Println("  3. oaspractice practice   # Start practicing")
	fmt.Println()
	fmt.Println("For AI assistant integration, configure MCP with 'oaspractice mcp'.")

	return nil
}

// cmdDoctor checks the local setup
func cmdDoctor() error {
	fmt.Println("Checking setup...")

	allGood := true

	fmt.Print("Directory: ")
	appDir, err := config.AppDir()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	} else if _, err := os.Stat(appDir); os.IsNotExist(err) {
		fmt.Println("✗ not created (run 'oaspractice init')")
		allGood = false
	} else {
		fmt.Printf("✓ %s\n", appDir)
	}

	fmt.Print("Config:    ")
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		return nil
	}
	fmt.Println("✓ loaded")

	fmt.Print("Storage:   ")
	kv, err := app.OpenKV(context.Background(), cfg.Storage, filepath.Join(appDir, "progress"), nil)
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	} else {
		kv.Close()
		fmt.Printf("✓ %s\n", cfg.Storage.Driver)
	}

	fmt.Print("Daemon:    ")
	if isRunning(cfg) {
		fmt.Println("✓ running")
	} else {
		fmt.Println("✗ not running (run 'oaspractice start')")
		allGood = false
	}

	fmt.Println()
	if allGood {
		fmt.Println("All checks passed! ✓")
	} else {
		fmt.Println("Some checks failed. Please fix the issues above.")
	}

	return nil
}

// cmdConfig shows current configuration
func cmdConfig() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("oaspractice Configuration")

	fmt.Println("\nClient:")
	fmt.Printf("  api_url: %s\n", cfg.Client.APIURL)
	fmt.Printf("  timeout: %ds retry=%t circuit_breaker=%t\n", cfg.Client.TimeoutSeconds, cfg.Client.Retry, cfg.Client.CircuitBreaker)
	fmt.Printf("  syntax_debounce: %dms\n", cfg.Client.SyntaxDebounceMS)
	fmt.Printf("  log_level: %s\n", cfg.Client.LogLevel)

	fmt.Println("\nStorage:")
	fmt.Printf("  driver: %s\n", cfg.Storage.Driver)
	if cfg.Storage.Path != "" {
		fmt.Printf("  path: %s\n", cfg.Storage.Path)
	}
	if cfg.Storage.DSN != "" {
		fmt.Println("  dsn: (set)")
	}
	fmt.Printf("  key: %s\n", cfg.Storage.Key)

	fmt.Println("\nDaemon:")
	fmt.Printf("  bind: %s\n", cfg.Daemon.Addr())
	fmt.Printf("  log_level: %s\n", cfg.Daemon.LogLevel)
	fmt.Printf("  watch: %t\n", cfg.Daemon.Watch)
	if len(cfg.Daemon.CORSOrigins) > 0 {
		fmt.Printf("  cors_origins: %s\n", strings.Join(cfg.Daemon.CORSOrigins, ", "))
	}

	fmt.Println("\nEvents:")
	fmt.Printf("  enabled: %t\n", cfg.Events.Enabled)
	if cfg.Events.Enabled {
		fmt.Printf("  queue: %s\n", cfg.Events.Queue)
	}

	appDir, _ := config.AppDir()
	fmt.Printf("\nConfig path: %s/config.yaml\n", appDir)

	return nil
}
