// Package main is the entry point for the JVM metrics exporter. It loads
// configuration, starts the periodic refresh scheduler, and serves the
// Prometheus scrape endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/javamon/jvm-exporter/internal/autostart"
	"github.com/javamon/jvm-exporter/internal/catalog"
	"github.com/javamon/jvm-exporter/internal/collector"
	"github.com/javamon/jvm-exporter/internal/config"
	"github.com/javamon/jvm-exporter/internal/jstat"
	"github.com/javamon/jvm-exporter/internal/rate"
	"github.com/javamon/jvm-exporter/internal/scheduler"
	"github.com/javamon/jvm-exporter/internal/server"
	"github.com/javamon/jvm-exporter/internal/snapshot"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", "", "Path to configuration file (default: standard search paths)")
	javaHome    = flag.String("java-home", "", "Custom JAVA_HOME used to resolve jps and jstat")
	fullPath    = flag.Bool("full-path", false, "Keep the full package path in JVM process names")
	listenAddr  = flag.String("listen", "", "Scrape endpoint listen address (overrides config)")
	autoStart   = flag.Bool("auto-start", false, "Register the exporter to start with the system and exit")
	showVersion = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("jvm-exporter %s\n", version)
		os.Exit(0)
	}

	if *autoStart {
		if err := installAutoStart(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to configure auto-start: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Auto-start configuration successful.")
		os.Exit(0)
	}

	path := *configPath
	if path == "" {
		path = config.Locate()
	}
	cfg, err := config.LoadLayered(path, config.CLIOverrides{
		JavaHome:        *javaHome,
		DisplayFullPath: *fullPath,
		ListenAddr:      *listenAddr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting jvm-exporter",
		zap.String("version", version),
		zap.String("listen", cfg.Server.ListenAddr))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	provider := config.NewProvider(cfg)
	registry := snapshot.NewRegistry()
	rates := rate.NewEngine(cfg.Collection.Interval.Duration)
	cat := catalog.New(logger)
	sampler := jstat.NewSampler(logger)
	refresher := collector.NewRefresher(provider, cat, sampler, rates, registry, logger)

	sched := scheduler.New(refresher, provider, logger)
	go sched.Start(ctx)

	srv := server.New(provider, registry, logger)
	go func() {
		if err := srv.Start(cfg.Server.ListenAddr); err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	logger.Info("Exporter running",
		zap.Duration("refresh_interval", cfg.Collection.Interval.Duration),
		zap.Int("system_processes", len(cfg.SystemProcesses)))

	select {
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	logger.Info("Exporter stopped")
}

// installAutoStart registers the running binary as a system service.
func installAutoStart() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}
	mgr := autostart.New()
	if installed, err := mgr.IsInstalled(); err == nil && installed {
		fmt.Printf("Service %s already installed.\n", mgr.ServiceName())
		return nil
	}
	return mgr.Install(execPath)
}

// initLogger creates a zap logger based on the configuration.
// It outputs to console and optionally a JSON log file.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
