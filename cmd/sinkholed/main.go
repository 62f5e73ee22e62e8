package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/haukened/sinkhole/internal/filter/common/clock"
	"github.com/haukened/sinkhole/internal/filter/common/log"
	"github.com/haukened/sinkhole/internal/filter/common/metrics"
	"github.com/haukened/sinkhole/internal/filter/config"
	"github.com/haukened/sinkhole/internal/filter/domain"
	"github.com/haukened/sinkhole/internal/filter/gateways/admin"
	"github.com/haukened/sinkhole/internal/filter/gateways/hooks"
	"github.com/haukened/sinkhole/internal/filter/gateways/nethooks"
	"github.com/haukened/sinkhole/internal/filter/repos/journal"
	"github.com/haukened/sinkhole/internal/filter/repos/rules"
	"github.com/haukened/sinkhole/internal/filter/services/lifecycle"
	"github.com/haukened/sinkhole/internal/filter/services/matcher"
)

const (
	version = "0.1.0-dev"
	appName = "sinkholed"
)

// Application holds all the components of the filter daemon.
type Application struct {
	config     *config.AppConfig
	controller *lifecycle.Controller
	admin      *admin.Server
	journal    journal.Journal
}

func main() {
	// Load configuration from file and environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":         version,
		"env":             cfg.Env,
		"log_level":       cfg.LogLevel,
		"block_file":      cfg.BlockFile,
		"allow_file":      cfg.AllowFile,
		"reload_interval": cfg.ReloadIntervalDuration().String(),
		"admin_addr":      cfg.AdminAddr,
	}, "Starting sinkhole filter")

	// Build application with all dependencies
	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Filter failed")
	}

	log.Info(nil, "Sinkhole filter stopped gracefully")
}

// buildApplication constructs all components and wires them together
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	// Shared clock for consistent time across components
	clk := &clock.RealClock{}

	// Logger (already configured globally)
	logger := log.GetLogger()

	// Build repository layer
	loader := rules.New(cfg.BlockFile, cfg.AllowFile, logger)

	jnl, err := buildJournal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// Build service layer
	cache, err := matcher.NewCache(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision cache: %w", err)
	}
	m := matcher.New(cache)

	// Build gateway layer
	netSeam := nethooks.New(nethooks.Options{})

	sink := hooks.MultiSink{
		metrics.BlockSink{},
		&journalSink{journal: jnl, logger: logger},
	}

	registry := hooks.NewRegistry(hooks.Options{
		Sites:   netSeam.Sites(),
		Decider: m,
		Sink:    sink,
		Clock:   clk,
		Logger:  logger,
	})

	// Lifecycle controller ties it all together
	var watchPaths []string
	if cfg.WatchFiles {
		watchPaths = []string{cfg.BlockFile, cfg.AllowFile}
	}

	controller, err := lifecycle.New(lifecycle.Options{
		Loader:         loader,
		Rules:          m,
		Hooks:          registry,
		Logger:         logger,
		Probe:          netSeam.LookupNetIP,
		StartupDelay:   cfg.StartupDelayDuration(),
		ReloadInterval: cfg.ReloadIntervalDuration(),
		SelfTest:       cfg.SelfTest,
		WatchPaths:     watchPaths,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lifecycle controller: %w", err)
	}

	// Optional admin server
	var adminSrv *admin.Server
	if cfg.AdminAddr != "" {
		adminSrv = admin.New(admin.Options{
			Addr:    cfg.AdminAddr,
			State:   func() string { return controller.State().String() },
			Matcher: m,
			Journal: jnl,
			Logger:  logger,
		})
	}

	return &Application{
		config:     cfg,
		controller: controller,
		admin:      adminSrv,
		journal:    jnl,
	}, nil
}

// buildJournal opens the bbolt-backed journal, or a noop one when no
// path is configured.
func buildJournal(cfg *config.AppConfig) (journal.Journal, error) {
	if cfg.JournalPath == "" {
		log.Info(nil, "Block-event journal disabled")
		return journal.Noop{}, nil
	}
	jnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return nil, err
	}
	log.Info(map[string]any{"path": cfg.JournalPath}, "Block-event journal opened")
	return jnl, nil
}

// journalSink adapts the journal to the hook registry's event sink.
// Append failures are logged and swallowed so a full disk can never
// break interception.
type journalSink struct {
	journal journal.Journal
	logger  log.Logger
}

func (s *journalSink) BlockedEvent(ev domain.BlockEvent) {
	if err := s.journal.Append(ev); err != nil {
		s.logger.Warn(map[string]any{"error": err.Error()}, "failed to journal block event")
	}
}

// Run starts the controller (and admin server, when configured) and
// blocks until context cancellation drives a graceful stop.
func (app *Application) Run(ctx context.Context) error {
	defer func() {
		if err := app.journal.Close(); err != nil {
			log.Warn(map[string]any{"error": err.Error()}, "Error closing journal")
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.controller.Run(ctx)
	})

	if app.admin != nil {
		g.Go(func() error {
			return app.admin.Run(ctx)
		})
	}

	return g.Wait()
}
