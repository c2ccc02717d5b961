package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/phuslu/log"

	"github.com/a3tai/mcp-tax-filer/internal/config"
	"github.com/a3tai/mcp-tax-filer/internal/filing"
	"github.com/a3tai/mcp-tax-filer/internal/mcp"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging builds the process logger. Everything goes to stderr so that
// stdout stays reserved for the MCP protocol in stdio mode.
func setupLogging(cfg *config.Config, w io.Writer) *log.Logger {
	logger := &log.Logger{
		Level: log.ParseLevel(cfg.LogLevel),
	}
	if cfg.IsServerMode() {
		logger.Caller = 1
		logger.Writer = &log.IOWriter{Writer: w}
	} else {
		logger.TimeFormat = "15:04:05"
		logger.Writer = &log.ConsoleWriter{Writer: w}
	}
	return logger
}

// run wires the service and protocol server and blocks until ctx is done or
// the transport stops
func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	service, err := filing.NewService(filing.Options{
		MaxFileSize:   cfg.MaxFileSize,
		MinConfidence: cfg.MinConfidence,
		Workers:       cfg.Workers,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create filing service: %w", err)
	}

	server, err := mcp.NewServer(cfg, service)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	logger.Info().
		Str("mode", cfg.Mode).
		Str("dir", cfg.DocumentDirectory).
		Str("outdir", cfg.OutputDirectory).
		Int("tax_year", service.Engine().TaxYear()).
		Msg("Starting MCP tax filer")

	err = server.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info().Msg("Server stopped")
		return nil
	}
	return err
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger := setupLogging(cfg, os.Stderr)
	logger.Debug().Str("config", cfg.String()).Msg("Configuration loaded")

	// pdfcpu would otherwise create a config directory under the user's home
	api.DisableConfigDir()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Server error")
		stop()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP Tax Filer\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
