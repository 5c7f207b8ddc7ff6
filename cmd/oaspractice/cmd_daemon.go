package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/oaspractice/internal/client"
	"github.com/felixgeelhaar/oaspractice/internal/config"
)

// cmdStart starts the daemon in the background
func cmdStart() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if isRunning(cfg) {
		fmt.Println("✓ Daemon is already running")
		return nil
	}

	appDir, err := config.EnsureAppDir()
	if err != nil {
		return fmt.Errorf("setup app directory: %w", err)
	}

	daemonPath, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	cmd := exec.Command(daemonPath)
	cmd.Dir = appDir
	cmd.Stdout = nil
	cmd.Stderr = nil

	// Detach from parent process (platform-specific)
	configureDaemonProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Print("Starting daemon...")
	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if isRunning(cfg) {
			fmt.Println(" ✓")
			fmt.Printf("Daemon running at %s\n", cfg.Client.APIURL)
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon failed to start (check logs with 'oaspractice logs')")
}

// cmdStop stops the daemon
func cmdStop() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !isRunning(cfg) {
		fmt.Println("Daemon is not running")
		return nil
	}

	appDir, err := config.AppDir()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(appDir, pidFile))
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parse PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Print("Stopping daemon...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isRunning(cfg) {
			fmt.Println(" ✓")
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon did not stop gracefully")
}

// cmdStatus shows daemon status
func cmdStatus() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := healthClient(cfg).Health(ctx)
	if err != nil {
		fmt.Println("Status: stopped")
		return nil
	}

	fmt.Printf("Status:    %s\n", health.Status)
	fmt.Printf("Version:   %s\n", health.Version)
	fmt.Printf("Scenarios: %d\n", health.ScenariosLoaded)
	fmt.Printf("Address:   %s\n", cfg.Client.APIURL)

	return nil
}

// cmdLogs shows daemon logs
func cmdLogs() error {
	appDir, err := config.AppDir()
	if err != nil {
		return err
	}

	logPath := filepath.Join(appDir, "logs", "oaspracticed.log")

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Println("No log file found. Start the daemon first.")
		return nil
	}

	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	// Seek to end and go back ~4KB for recent logs
	info, _ := file.Stat()
	offset := max(info.Size()-4096, 0)
	_, _ = file.Seek(offset, 0)

	reader := bufio.NewReader(file)
	// Skip partial first line if we seeked
	if offset > 0 {
		_, _ = reader.ReadString('\n')
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Println(scanner.Text())
	}

	return scanner.Err()
}

// healthClient is a client that fails fast, for liveness probes
func healthClient(cfg *config.LocalConfig) *client.Client {
	return client.New(client.Config{
		BaseURL: cfg.Client.APIURL,
		Timeout: 2 * time.Second,
	})
}

// isRunning checks if the daemon is running by calling the health endpoint
func isRunning(cfg *config.LocalConfig) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := healthClient(cfg).Health(ctx)
	return err == nil
}

// requireDaemon returns an error pointing at 'oaspractice start' when the
// daemon is down
func requireDaemon(cfg *config.LocalConfig) error {
	if !isRunning(cfg) {
		return fmt.Errorf("daemon not running (run 'oaspractice start' first)")
	}
	return nil
}

// findDaemonBinary locates the daemon binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath(daemonBinary); err == nil {
		return path, nil
	}

	// Check relative to this binary
	self, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(self), daemonBinary)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	locations := []string{
		"/usr/local/bin/" + daemonBinary,
		"./" + daemonBinary,
		"./cmd/oaspracticed/" + daemonBinary,
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s binary not found (build with 'go build ./cmd/oaspracticed')", daemonBinary)
}
