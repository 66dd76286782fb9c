// RENAC Bridge - Home Assistant integration for RENAC hardware
//
// This is the main entry point for the bridge. It connects RENAC battery
// inverters and EV wallboxes over Bluetooth LE and exposes them to Home
// Assistant through MQTT discovery:
//   - One MQTT connection per device, with a retained availability topic
//   - Sensor telemetry polled (inverter) or pushed (wallbox)
//   - Writable settings exposed as number/select entities
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/renacble/renac-ha-bridge/internal/bridge"
	"github.com/renacble/renac-ha-bridge/internal/infrastructure/config"
	"github.com/renacble/renac-ha-bridge/internal/infrastructure/logging"
	"github.com/renacble/renac-ha-bridge/internal/renac"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting RENAC bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if configPath != "" {
		log.Info("configuration loaded", "path", configPath)
	} else {
		log.Info("configuration loaded from environment")
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	adapter := renac.NewBluetoothAdapter()
	registry := bridge.NewRegistry(bridge.NewPublisherFactory(cfg, log))
	orchestrator := bridge.NewOrchestrator(cfg, adapter, registry, log)

	if err := orchestrator.Run(ctx); err != nil {
		return err
	}

	log.Info("RENAC bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses RENAC_CONFIG if set; otherwise the default path when it exists.
// Environment-only deployments need no file at all.
func getConfigPath() string {
	if path := os.Getenv("RENAC_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}
