package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nick-prater/read-lw-sources/internal/advert"
	"github.com/nick-prater/read-lw-sources/internal/config"
	"github.com/nick-prater/read-lw-sources/internal/display"
	"github.com/nick-prater/read-lw-sources/internal/listener"
	"github.com/nick-prater/read-lw-sources/internal/metrics"
	"github.com/nick-prater/read-lw-sources/internal/registry"
	"github.com/nick-prater/read-lw-sources/internal/server"
)

const (
	serviceName    = "read-lw-sources"
	serviceVersion = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (defaults apply without one)")
	group := flag.String("group", "", "Override the advertisement multicast group")
	port := flag.Int("port", 0, "Override the advertisement UDP port")
	ifaceName := flag.String("interface", "", "Override the network interface to join on")
	mode := flag.String("mode", "", "Override the display mode: table, trace or quiet")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Command-line overrides win over the file
	if *group != "" {
		cfg.Listener.Group = *group
	}
	if *port != 0 {
		cfg.Listener.Port = *port
	}
	if *ifaceName != "" {
		cfg.Listener.Interface = *ifaceName
	}
	if *mode != "" {
		cfg.Display.Mode = *mode
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("group", cfg.Listener.GroupAddress()),
		slog.String("interface", cfg.Listener.Interface),
		slog.String("display_mode", cfg.Display.Mode),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for the table refresher
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	// Node registry: the cross-message store of last-seen state
	var reg *registry.Registry
	reg = registry.NewRegistry(logger, cfg.Registry.GetNodeTimeoutDuration(), func(node registry.Node) {
		appMetrics.RecordNodeExpired()
		appMetrics.SetNodesTracked(reg.Count())
	})

	// Every fully-decoded advertisement lands in the registry; failed
	// datagrams never get this far.
	handler := listener.HandlerFunc(func(adv *advert.Advertisement, source *net.UDPAddr) {
		reg.Record(adv, sourceAddress(source))
		appMetrics.SetNodesTracked(reg.Count())
	})

	// The trace display mode reports every phrase as it is decoded
	var trace advert.TraceFunc
	if cfg.Display.Mode == config.DisplayTrace {
		trace = display.Trace(logger)
	}

	lst := listener.NewListener(&cfg.Listener, logger, appMetrics, handler, trace)

	// Initialize HTTP monitoring server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, reg, lst, appMetrics)
		logger.Info("HTTP monitoring server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Start the listener
	if err := lst.Start(); err != nil {
		logger.Error("Failed to start listener", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Periodic table rendering on stdout
	if cfg.Display.Mode == config.DisplayTable {
		go runTableRefresher(ctx, reg, cfg.Display.GetRefreshIntervalDuration())
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started, listening for advertisements",
		slog.String("group", cfg.Listener.GroupAddress()),
	)

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	// Stop the table refresher first so shutdown logs stay readable
	cancel()

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := lst.Stop(); err != nil {
		logger.Error("Error stopping listener", slog.String("error", err.Error()))
	}

	reg.Stop()

	stats := lst.GetStatistics()
	logger.Info("Final statistics",
		slog.Uint64("datagrams_received", stats.DatagramsReceived),
		slog.Uint64("datagrams_decoded", stats.DatagramsDecoded),
		slog.Uint64("decode_errors", stats.DecodeErrors),
		slog.Uint64("datagrams_dropped", stats.DatagramsDropped),
	)

	logger.Info("Service stopped")
}

// loadConfig loads the file when a path is given, defaults otherwise
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// runTableRefresher renders the node listing on every tick
func runTableRefresher(ctx context.Context, reg *registry.Registry, interval time.Duration) {
	table := display.NewTable(os.Stdout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := table.Render(reg.Snapshot()); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
			}
		}
	}
}

func sourceAddress(source *net.UDPAddr) string {
	if source == nil {
		return ""
	}
	return source.IP.String()
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr", "":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
