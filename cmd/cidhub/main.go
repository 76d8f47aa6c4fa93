package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashbeam/cidhub/internal/logger"
	"github.com/hashbeam/cidhub/internal/telemetry"
	"github.com/hashbeam/cidhub/pkg/alias"
	"github.com/hashbeam/cidhub/pkg/api"
	"github.com/hashbeam/cidhub/pkg/api/auth"
	"github.com/hashbeam/cidhub/pkg/blob"
	"github.com/hashbeam/cidhub/pkg/config"
	"github.com/hashbeam/cidhub/pkg/content"
	"github.com/hashbeam/cidhub/pkg/export"
	"github.com/hashbeam/cidhub/pkg/metrics"
	promimpl "github.com/hashbeam/cidhub/pkg/metrics/prometheus"
	"github.com/hashbeam/cidhub/pkg/models"
	"github.com/hashbeam/cidhub/pkg/router"
	"github.com/hashbeam/cidhub/pkg/store"
	"github.com/hashbeam/cidhub/pkg/transform"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `cidhub - Content-addressed web workspace

Usage:
  cidhub <command> [flags]

Commands:
  init     Initialize a sample configuration file
  start    Start the cidhub server
  version  Show version information

Flags:
  --config string    Path to config file (default: $XDG_CONFIG_HOME/cidhub/config.yaml)
  --force            Force overwrite existing config file (init command only)

Examples:
  # Initialize config file
  cidhub init

  # Start server with default config location
  cidhub start

  # Start server with custom config
  cidhub start --config /etc/cidhub/config.yaml

  # Use environment variables to override config
  CIDHUB_LOGGING_LEVEL=DEBUG cidhub start

Environment Variables:
  All configuration options can be overridden using environment variables.
  Format: CIDHUB_<SECTION>_<KEY> (use underscores for nested keys)

  Examples:
    CIDHUB_LOGGING_LEVEL=DEBUG
    CIDHUB_SERVER_LISTEN_ADDRESS=:9090
    CIDHUB_BLOB_CID_DIRECTORY=/var/lib/cidhub/cids

  A few legacy names are also honored:
    SESSION_SECRET, CID_DIRECTORY, LOAD_CIDS_IN_TESTS,
    BOOT_CID, BOOT_SECRET_KEY
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "init":
		runInit()
	case "start":
		runStart()
	case "help", "--help", "-h":
		fmt.Print(usage)
		os.Exit(0)
	case "version", "--version", "-v":
		fmt.Printf("cidhub %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// runInit handles the init subcommand
func runInit() {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	configFile := initFlags.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/cidhub/config.yaml)")
	force := initFlags.Bool("force", false, "Force overwrite existing config file")

	if err := initFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	configPath := *configFile
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	if _, err := os.Stat(configPath); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Configuration file already exists: %s\n", configPath)
		fmt.Fprintln(os.Stderr, "Use --force to overwrite it.")
		os.Exit(1)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), configPath); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file and set server.session_secret")
	fmt.Println("  2. Start the server with: cidhub start")
	fmt.Printf("  3. Or specify custom config: cidhub start --config %s\n", configPath)
}

// runStart handles the start subcommand
func runStart() {
	startFlags := flag.NewFlagSet("start", flag.ExitOnError)
	configFile := startFlags.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/cidhub/config.yaml)")

	if err := startFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := config.MustLoad(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "cidhub",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "cidhub",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		log.Fatalf("Failed to initialize profiling: %v", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("Configuration loaded", "source", configSource(*configFile))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	// Metrics come first so collectors exist before the components that
	// observe through them.
	var (
		routerMetrics metrics.RouterMetrics
		storeMetrics  metrics.StoreMetrics
		execMetrics   metrics.ExecMetrics
		exportMetrics metrics.ExportMetrics
	)
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		routerMetrics = promimpl.NewRouterMetrics()
		storeMetrics = promimpl.NewStoreMetrics()
		execMetrics = promimpl.NewExecMetrics()
		exportMetrics = promimpl.NewExportMetrics()
		logger.Info("Metrics enabled", "path", "/metrics")
	}

	s, err := store.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open blob backend: %v", err)
	}

	if cfg.Blob.LoadCIDs {
		loaded, err := s.LoadMirror(ctx, backend)
		var mirrorErr *store.MirrorError
		if errors.As(err, &mirrorErr) {
			logger.Error("CID mirror is inconsistent", logger.KeyError, err)
			os.Exit(2)
		}
		if err != nil {
			log.Fatalf("Failed to load CID mirror: %v", err)
		}
		logger.Info("CID mirror loaded", logger.KeySize, loaded)
	}

	c := content.NewService(s, backend, storeMetrics)

	if err := s.EnsureUser(ctx, models.AnonymousUserID, "anonymous"); err != nil {
		log.Fatalf("Failed to ensure anonymous user: %v", err)
	}

	resolver := alias.NewResolver(s)
	executor := transform.New(c, execMetrics, transform.Options{
		ForwardTimeout: cfg.Server.ForwardTimeout,
		SecretKey:      cfg.Boot.SecretKey,
	})
	pipeline := router.New(c, resolver, executor, routerMetrics)

	engine := export.NewEngine(c, exportMetrics, cfg.Boot.SecretKey)
	importer := export.NewImporter(c, engine)

	// Boot import runs before the listener so the workspace is complete by
	// the time the first request lands.
	if cfg.Boot.CID != "" {
		logger.Info("Booting workspace from CID", logger.KeyCID, cfg.Boot.CID)
		if err := importer.BootFromCID(ctx, models.AnonymousUserID, cfg.Boot.CID, cfg.Boot.SecretKey); err != nil {
			log.Fatalf("Failed to boot from CID %s: %v", cfg.Boot.CID, err)
		}
	}

	tokens, err := auth.NewService(auth.Config{Secret: cfg.Server.SessionSecret})
	if err != nil {
		log.Fatalf("Failed to initialize session tokens: %v", err)
	}

	handler := api.NewRouter(api.Config{
		Content:        c,
		Pipeline:       pipeline,
		Engine:         engine,
		Importer:       importer,
		Tokens:         tokens,
		SecretKey:      cfg.Boot.SecretKey,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.ForwardTimeout,
	})

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddress,
		Handler: handler,
	}

	serverDone := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "address", cfg.Server.ListenAddress)
		serverDone <- srv.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", logger.KeyError, err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", logger.KeyError, err)
			os.Exit(1)
		}
	}
}

// openBackend builds the configured blob backend, wrapped in the
// read-through cache when enabled.
func openBackend(ctx context.Context, cfg *config.Config) (blob.Backend, error) {
	var (
		backend blob.Backend
		err     error
	)
	switch cfg.Blob.Backend {
	case "s3":
		backend, err = blob.NewS3Backend(ctx, cfg.Blob.S3)
	default:
		// When the boot-time scan is on, a missing directory is a
		// misconfigured mirror, not an empty pool. Only create it when
		// the scan is disabled.
		backend, err = blob.NewFSBackend(cfg.Blob.CIDDirectory, !cfg.Blob.LoadCIDs)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Blob.Cache.Enabled {
		backend, err = blob.NewCachedBackend(backend, cfg.Blob.Cache)
		if err != nil {
			return nil, err
		}
	}
	return backend, nil
}

func configSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults + environment"
}
