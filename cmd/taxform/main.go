// Package main provides the taxform command line, which runs the filing
// pipeline against statement PDFs on disk.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/phuslu/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-tax-filer/internal/config"
	"github.com/a3tai/mcp-tax-filer/internal/filing"
)

var (
	cfg     *config.Config
	logger  *log.Logger
	service *filing.Service
)

var rootCmd = &cobra.Command{
	Use:   "taxform",
	Short: "Tax statement extraction and Form 1040 filling",
	Long: "taxform reads W-2, 1099-INT and 1099-NEC statement PDFs, computes federal income tax " +
		"for the configured tax year and fills a blank Form 1040.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	config.RegisterFilingFlags(rootCmd.PersistentFlags(), config.DefaultConfig())
}

// setup loads the configuration shared by every subcommand and builds the
// filing service
func setup(cmd *cobra.Command, _ []string) error {
	base := config.DefaultConfig()
	v := viper.New()
	if err := config.Bind(v, cmd.Flags(), base); err != nil {
		return err
	}

	loaded := config.FromViper(v, base)
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded

	logger = &log.Logger{
		Level:      log.ParseLevel(cfg.LogLevel),
		TimeFormat: "15:04:05",
		Writer:     &log.ConsoleWriter{Writer: cmd.ErrOrStderr()},
	}

	s, err := filing.NewService(filing.Options{
		MaxFileSize:   cfg.MaxFileSize,
		MinConfidence: cfg.MinConfidence,
		Workers:       cfg.Workers,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	service = s
	return nil
}

// inDir resolves a relative path against dir
func inDir(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func documentRefs(paths []string) []filing.DocumentRef {
	refs := make([]filing.DocumentRef, 0, len(paths))
	for _, p := range paths {
		refs = append(refs, filing.DocumentRef{Path: inDir(cfg.DocumentDirectory, p)})
	}
	return refs
}

func main() {
	_ = godotenv.Load()
	api.DisableConfigDir()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
