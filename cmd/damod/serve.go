package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"damod/internal/cacheindex"
	"damod/internal/common/fsutil"
	"damod/internal/config"
	"damod/internal/engine"
	"damod/internal/httpapi"
	"damod/internal/manager"
	"damod/internal/registry"
	"damod/internal/residency"
)

type serveOptions struct {
	configPath        string
	addr              string
	registryURL       string
	cacheDir          string
	indexPath         string
	capacityBytes     uint64
	capacityFraction  float64
	thresholdFraction float64
	fetchTimeoutSec   int
	loadTimeoutSec    int
	logLevel          string
	corsEnabled       bool
	corsOrigins       string
}

// mergeConfig loads the config file (if any) and lets changed flags win.
func mergeConfig(cmd *cobra.Command, opts *serveOptions) (config.Config, error) {
	var cfg config.Config
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr = opts.addr
	}
	if f.Changed("registry-url") {
		cfg.RegistryURL = opts.registryURL
	}
	if f.Changed("cache-dir") {
		cfg.CacheDir = opts.cacheDir
	}
	if f.Changed("index-path") {
		cfg.IndexPath = opts.indexPath
	}
	if f.Changed("capacity-bytes") {
		cfg.CapacityBytes = opts.capacityBytes
	}
	if f.Changed("capacity-fraction") {
		cfg.CapacityFraction = opts.capacityFraction
	}
	if f.Changed("threshold-fraction") {
		cfg.ThresholdFraction = opts.thresholdFraction
	}
	if f.Changed("fetch-timeout-sec") {
		cfg.FetchTimeoutSec = opts.fetchTimeoutSec
	}
	if f.Changed("load-timeout-sec") {
		cfg.LoadTimeoutSec = opts.loadTimeoutSec
	}
	if f.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if f.Changed("cors") {
		cfg.CORSEnabled = opts.corsEnabled
	}
	if f.Changed("cors-origins") {
		cfg.CORSOrigins = splitCSV(opts.corsOrigins)
	}

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "~/.cache/damod/models"
	}
	expanded, err := fsutil.ExpandHome(cfg.CacheDir)
	if err != nil {
		return cfg, fmt.Errorf("cache dir: %w", err)
	}
	cfg.CacheDir = expanded
	if cfg.IndexPath == "" {
		cfg.IndexPath = filepath.Join(cfg.CacheDir, "index.db")
	}
	return cfg, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func buildResolver(cfg config.Config) (registry.Resolver, error) {
	if len(cfg.Models) > 0 {
		manifests := make(map[string]registry.Manifest, len(cfg.Models))
		for _, m := range cfg.Models {
			manifests[m.Key] = registry.Manifest{URL: m.URL, Size: m.Size, Checksum: m.Checksum}
		}
		return registry.NewStaticResolver(manifests), nil
	}
	if cfg.RegistryURL != "" {
		return registry.NewHTTPResolver(cfg.RegistryURL), nil
	}
	return nil, fmt.Errorf("no model source configured: set registry_url or a static models list")
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := mergeConfig(cmd, opts)
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)

	index, err := cacheindex.Open(cfg.IndexPath)
	if err != nil {
		return fmt.Errorf("open cache index: %w", err)
	}
	defer func() { _ = index.Close() }()

	resolver, err := buildResolver(cfg)
	if err != nil {
		return err
	}
	coord, err := registry.NewCoordinator(resolver, cfg.CacheDir, index, log)
	if err != nil {
		return err
	}
	if cfg.FetchTimeoutSec > 0 {
		coord.SetDownloadTimeout(time.Duration(cfg.FetchTimeoutSec) * time.Second)
	}

	ctrl := residency.NewWithConfig(residency.ControllerConfig{
		Runtime:           residency.NewHostRuntime(cfg.CapacityFraction),
		Fetcher:           coord,
		CapacityBytes:     cfg.CapacityBytes,
		CapacityFraction:  cfg.CapacityFraction,
		ThresholdFraction: cfg.ThresholdFraction,
		FetchTimeout:      time.Duration(cfg.FetchTimeoutSec) * time.Second,
		LoadTimeout:       time.Duration(cfg.LoadTimeoutSec) * time.Second,
		Logger:            log,
	})
	mgr := manager.New(ctrl, engine.NewRegistry(), log)

	// Base context canceled on shutdown so in-flight work stops too.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(log)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins,
		[]string{"GET", "POST"}, []string{"Accept", "Content-Type"})

	mux := httpapi.NewMux(mgr)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("cache_dir", cfg.CacheDir).
			Uint64("capacity_bytes", ctrl.TotalCapacity()).Msg("damod listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
	return nil
}
