package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rescriber/pii-gateway/internal/config"
	"github.com/rescriber/pii-gateway/internal/engine"
	"github.com/rescriber/pii-gateway/internal/logger"
	"github.com/rescriber/pii-gateway/internal/pipeline"
	"github.com/rescriber/pii-gateway/internal/server"
	"github.com/rescriber/pii-gateway/internal/stream"
	"go.uber.org/zap"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// warmUpMessage primes the model with one throwaway detect invocation so the
// first real request does not pay the model load cost.
const warmUpMessage = "Hi, welcome to Rescriber!"

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
		skipWarmUp  = flag.Bool("skip-warmup", false, "Skip the startup model warm-up invocation")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("pii-gateway %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Load configuration first so the health check hits the right port
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *healthCheck {
		performHealthCheck(cfg.Server.Port)
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: true,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting pii-gateway",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
		zap.String("model", cfg.Engine.Model),
	)

	// Wire engine -> pipeline -> server
	eng := engine.NewOllama(cfg.Engine, log.WithComponent("engine"))
	p := pipeline.New(eng, cfg, log.WithComponent("pipeline"))
	srv := server.New(cfg, log, p)

	// Warm up the model in the background; failure is logged, not fatal
	if !*skipWarmUp {
		go warmUp(p, cfg, log.WithComponent("warmup"))
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// warmUp runs one detect pipeline over a canned message, discarding output
func warmUp(p *pipeline.Pipeline, cfg *config.Config, log *logger.Logger) {
	log.Info("Warming up model", zap.String("model", cfg.Engine.Model))
	start := time.Now()

	spec := pipeline.Spec{SystemPrompt: cfg.Prompts.Detect, Chunking: true}
	err := p.Run(context.Background(), warmUpMessage, spec, func(stream.Snapshot) error {
		return nil
	})
	if err != nil {
		log.Warn("Model warm-up failed", zap.Error(err))
		return
	}

	log.Info("Model warm-up complete", zap.Duration("elapsed", time.Since(start)))
}

// performHealthCheck performs a health check against the running server
func performHealthCheck(port int) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
