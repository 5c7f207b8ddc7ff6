// Package app wires a practice session from configuration: progress
// storage, the scenario service client and the practice controller shared
// by the TUI, the CLI and the MCP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/oaspractice/internal/catalog"
	"github.com/felixgeelhaar/oaspractice/internal/client"
	"github.com/felixgeelhaar/oaspractice/internal/config"
	"github.com/felixgeelhaar/oaspractice/internal/domain"
	"github.com/felixgeelhaar/oaspractice/internal/ledger"
	"github.com/felixgeelhaar/oaspractice/internal/practice"
	"github.com/felixgeelhaar/oaspractice/internal/queue"
	"github.com/felixgeelhaar/oaspractice/internal/storage"
	"github.com/felixgeelhaar/oaspractice/internal/storage/badger"
	"github.com/felixgeelhaar/oaspractice/internal/storage/local"
	"github.com/felixgeelhaar/oaspractice/internal/storage/postgres"
	"github.com/felixgeelhaar/oaspractice/internal/storage/sqlite"
)

// Options configures New
type Options struct {
	Config *config.LocalConfig

	// Dir is the application directory used for default storage paths
	Dir string

	Logger *slog.Logger
}

// App holds the wired components of a practice session
type App struct {
	Config     *config.LocalConfig
	Client     *client.Client
	Ledger     *ledger.Ledger
	Controller *practice.Controller
	Events     *domain.EventDispatcher
	Logger     *slog.Logger

	closers []func() error
}

// New opens progress storage and builds the practice controller
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultLocalConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger, Events: domain.NewEventDispatcher()}

	kv, err := OpenKV(ctx, cfg.Storage, opts.Dir, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, kv.Close)

	a.Ledger, err = ledger.Open(ctx, ledger.NewStore(kv, cfg.Storage.Key), ledger.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open progress: %w", err)
	}

	a.Client = client.New(client.Config{
		BaseURL:              cfg.Client.APIURL,
		Timeout:              time.Duration(cfg.Client.TimeoutSeconds) * time.Second,
		EnableRetry:          cfg.Client.Retry,
		EnableCircuitBreaker: cfg.Client.CircuitBreaker,
		Logger:               logger,
	})

	if cfg.Events.Enabled {
		a.attachEvents(cfg.Events)
	}

	editor := practice.NewEditor(a.Ledger, logger)
	submitter := practice.NewSubmitter(editor, a.Client, a.Ledger, a.Events, logger)
	cache := catalog.NewCache(a.Client, a.Ledger, logger)
	a.Controller = practice.NewController(cache, a.Client, editor, submitter, logger)

	return a, nil
}

// attachEvents forwards progress events to the broker. The session runs
// without events when the broker is unreachable.
func (a *App) attachEvents(cfg config.EventsConfig) {
	conn, err := queue.NewConnection(cfg.AMQPURL, cfg.Queue, a.Logger)
	if err != nil {
		a.Logger.Warn("progress events disabled", "error", err)
		return
	}
	a.closers = append(a.closers, conn.Close)
	queue.NewProducer(conn, conn.Queue(), a.Logger).Attach(a.Events)
}

// Close releases storage and broker connections
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenKV opens the storage backend selected by cfg. Relative defaults are
// placed under dir.
func OpenKV(ctx context.Context, cfg config.StorageConfig, dir string, logger *slog.Logger) (storage.KV, error) {
	path := cfg.StoragePath(dir)

	switch cfg.Driver {
	case config.DriverFile, "":
		store, err := local.NewStore(path)
		if err != nil {
			return nil, fmt.Errorf("open file storage: %w", err)
		}
		return store, nil

	case config.DriverSQLite:
		store, err := sqlite.NewKVStore(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return store, nil

	case config.DriverBadger:
		store, err := badger.Open(badger.Config{Path: path, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("open badger storage: %w", err)
		}
		return store, nil

	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
