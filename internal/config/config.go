package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// EnvPrefix is prepended to every environment variable, e.g. TAX_FILER_PORT
	EnvPrefix = "TAX_FILER"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxFileSize   = 25 * 1024 * 1024 // 25MB
	DefaultMinConfidence = 0.5
	DefaultWorkers       = 4
	MaxWorkers           = 64
)

// ErrVersionRequested is returned when --version appears on the command line
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the tax filer
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Filing configuration
	DocumentDirectory string // statements, profiles and templates are resolved under here
	TemplatePath      string // default base form for fill requests
	OutputDirectory   string // filled forms and worksheets are written here
	MinConfidence     float64
	Workers           int

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum statement PDF size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:              ModeStdio,
		Host:              DefaultHost,
		Port:              DefaultPort,
		DocumentDirectory: currentDir,
		OutputDirectory:   filepath.Join(currentDir, "out"),
		MinConfidence:     DefaultMinConfidence,
		Workers:           DefaultWorkers,
		Version:           "1.0.0",
		ServerName:        "mcp-tax-filer",
		LogLevel:          DefaultLogLevel,
		MaxFileSize:       DefaultMaxFileSize,
	}
}

// LoadFromFlags parses the process command line and environment
func LoadFromFlags() (*Config, error) {
	return Load(os.Args[1:])
}

// Load parses args and the TAX_FILER_* environment into a validated config.
// Flags take precedence over the environment.
func Load(args []string) (*Config, error) {
	if versionRequested(args) {
		return nil, ErrVersionRequested
	}

	cfg := DefaultConfig()
	fs := pflag.NewFlagSet(filepath.Base(os.Args[0]), pflag.ContinueOnError)
	fs.Usage = usage(fs)
	RegisterFlags(fs, cfg)

	v := viper.New()
	if err := Bind(v, fs, cfg); err != nil {
		return nil, err
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg = FromViper(v, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// RegisterFlags defines every configuration flag on fs. The CLI registers
// a subset of these on its root command.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP/SSE")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	RegisterFilingFlags(fs, cfg)
}

// RegisterFilingFlags defines the flags shared by the server and the CLI
func RegisterFilingFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("dir", cfg.DocumentDirectory, "Directory containing statements, profiles and base forms")
	fs.String("template", cfg.TemplatePath, "Default blank Form 1040 PDF")
	fs.String("outdir", cfg.OutputDirectory, "Directory for filled forms and worksheets")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum statement PDF size in bytes")
	fs.Float64("minconfidence", cfg.MinConfidence, "Extraction confidence below which a document is flagged")
	fs.Int("workers", cfg.Workers, "Documents read and extracted in parallel")
}

// Bind wires v to the environment, the defaults in cfg and whichever
// flags fs defines
func Bind(v *viper.Viper, fs *pflag.FlagSet, cfg *Config) error {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	defaults := map[string]any{
		"mode":          cfg.Mode,
		"host":          cfg.Host,
		"port":          cfg.Port,
		"dir":           cfg.DocumentDirectory,
		"template":      cfg.TemplatePath,
		"outdir":        cfg.OutputDirectory,
		"loglevel":      cfg.LogLevel,
		"maxfilesize":   cfg.MaxFileSize,
		"minconfidence": cfg.MinConfidence,
		"workers":       cfg.Workers,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
		if f := fs.Lookup(key); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", key, err)
			}
		}
	}
	return nil
}

// FromViper returns a copy of base with every bound key applied. Paths are
// made absolute.
func FromViper(v *viper.Viper, base *Config) *Config {
	cfg := *base
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.DocumentDirectory = absPath(v.GetString("dir"))
	cfg.TemplatePath = absPath(v.GetString("template"))
	cfg.OutputDirectory = absPath(v.GetString("outdir"))
	cfg.LogLevel = strings.ToLower(v.GetString("loglevel"))
	cfg.MaxFileSize = v.GetInt64("maxfilesize")
	cfg.MinConfidence = v.GetFloat64("minconfidence")
	cfg.Workers = v.GetInt("workers")
	return &cfg
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func versionRequested(args []string) bool {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}

func usage(fs *pflag.FlagSet) func() {
	return func() {
		name := fs.Name()
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", name)
		fmt.Fprintf(os.Stderr, "\nMCP Tax Filer - extracts W-2 and 1099 statements, computes federal tax and fills Form 1040\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          # stdio mode, current directory\n", name)
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/statements                # stdio mode with custom directory\n", name)
		fmt.Fprintf(os.Stderr, "  %s --mode=server --template=f1040.pdf       # SSE server with a default base form\n", name)
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		for _, key := range []string{"MODE", "HOST", "PORT", "DIR", "TEMPLATE", "OUTDIR", "LOGLEVEL", "MAXFILESIZE", "MINCONFIDENCE", "WORKERS"} {
			fmt.Fprintf(os.Stderr, "  %s_%s\n", EnvPrefix, key)
		}
	}
}

// Validate checks if the configuration is valid. Directories are not
// created here so that placeholder paths survive until first use.
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.DocumentDirectory == "" {
		return errors.New("document directory cannot be empty")
	}

	if c.OutputDirectory == "" {
		return errors.New("output directory cannot be empty")
	}

	if c.TemplatePath != "" && !strings.EqualFold(filepath.Ext(c.TemplatePath), ".pdf") {
		return fmt.Errorf("template must be a PDF file: %s", c.TemplatePath)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("minimum confidence must be between 0 and 1, got %g", c.MinConfidence)
	}

	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d", MaxWorkers)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, DocumentDirectory: %s, TemplatePath: %s, "+
		"OutputDirectory: %s, LogLevel: %s, MaxFileSize: %d, MinConfidence: %g, Workers: %d}",
		c.Mode, c.Host, c.Port, c.DocumentDirectory, c.TemplatePath,
		c.OutputDirectory, c.LogLevel, c.MaxFileSize, c.MinConfidence, c.Workers)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
