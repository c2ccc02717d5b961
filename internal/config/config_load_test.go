package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestLoad_DefaultConfig(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("Load() Mode = %v, want %v", cfg.Mode, "stdio")
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Load() Host = %v, want %v", cfg.Host, "127.0.0.1")
	}
	if cfg.Port != 8080 {
		t.Errorf("Load() Port = %v, want %v", cfg.Port, 8080)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Load() LogLevel = %v, want %v", cfg.LogLevel, "info")
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("Load() MaxFileSize = %v, want %v", cfg.MaxFileSize, DefaultMaxFileSize)
	}
	if cfg.Workers != DefaultWorkers {
		t.Errorf("Load() Workers = %v, want %v", cfg.Workers, DefaultWorkers)
	}
	if cfg.DocumentDirectory == "" {
		t.Error("Load() DocumentDirectory should not be empty")
	}
}

func TestLoad_ValidFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "server mode with custom host and port",
			args: []string{"--mode=server", "--host=0.0.0.0", "--port=9090"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Mode != ModeServer || cfg.Host != "0.0.0.0" || cfg.Port != 9090 {
					t.Errorf("Load() got %s", cfg)
				}
			},
		},
		{
			name: "debug logging",
			args: []string{"--loglevel=DEBUG"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.LogLevel != "debug" {
					t.Errorf("Load() LogLevel = %v, want debug", cfg.LogLevel)
				}
			},
		},
		{
			name: "extraction tuning",
			args: []string{"--maxfilesize=50000000", "--minconfidence=0.8", "--workers=8"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.MaxFileSize != 50000000 {
					t.Errorf("Load() MaxFileSize = %v, want 50000000", cfg.MaxFileSize)
				}
				if cfg.MinConfidence != 0.8 {
					t.Errorf("Load() MinConfidence = %v, want 0.8", cfg.MinConfidence)
				}
				if cfg.Workers != 8 {
					t.Errorf("Load() Workers = %v, want 8", cfg.Workers)
				}
			},
		},
		{
			name: "relative paths are made absolute",
			args: []string{"--dir=statements", "--template=forms/f1040.pdf", "--outdir=out"},
			check: func(t *testing.T, cfg *Config) {
				for _, p := range []string{cfg.DocumentDirectory, cfg.TemplatePath, cfg.OutputDirectory} {
					if !filepath.IsAbs(p) {
						t.Errorf("Load() path %q is not absolute", p)
					}
				}
				if filepath.Base(cfg.TemplatePath) != "f1040.pdf" {
					t.Errorf("Load() TemplatePath = %v", cfg.TemplatePath)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.args)
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	tempDir := t.TempDir()

	t.Setenv("TAX_FILER_MODE", "server")
	t.Setenv("TAX_FILER_HOST", "192.168.1.1")
	t.Setenv("TAX_FILER_PORT", "3000")
	t.Setenv("TAX_FILER_DIR", tempDir)
	t.Setenv("TAX_FILER_LOGLEVEL", "warn")
	t.Setenv("TAX_FILER_MAXFILESIZE", "200000000")
	t.Setenv("TAX_FILER_MINCONFIDENCE", "0.7")
	t.Setenv("TAX_FILER_WORKERS", "2")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Mode != "server" {
		t.Errorf("Load() Mode = %v, want %v", cfg.Mode, "server")
	}
	if cfg.Host != "192.168.1.1" {
		t.Errorf("Load() Host = %v, want %v", cfg.Host, "192.168.1.1")
	}
	if cfg.Port != 3000 {
		t.Errorf("Load() Port = %v, want %v", cfg.Port, 3000)
	}
	if cfg.DocumentDirectory != tempDir {
		t.Errorf("Load() DocumentDirectory = %v, want %v", cfg.DocumentDirectory, tempDir)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Load() LogLevel = %v, want %v", cfg.LogLevel, "warn")
	}
	if cfg.MaxFileSize != 200000000 {
		t.Errorf("Load() MaxFileSize = %v, want %v", cfg.MaxFileSize, 200000000)
	}
	if cfg.MinConfidence != 0.7 {
		t.Errorf("Load() MinConfidence = %v, want %v", cfg.MinConfidence, 0.7)
	}
	if cfg.Workers != 2 {
		t.Errorf("Load() Workers = %v, want %v", cfg.Workers, 2)
	}
}

func TestLoad_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("TAX_FILER_MODE", "server")
	t.Setenv("TAX_FILER_HOST", "192.168.1.1")
	t.Setenv("TAX_FILER_PORT", "3000")

	cfg, err := Load([]string{"--mode=stdio", "--host=localhost", "--port=8888"})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("Load() Mode = %v, want %v (should override env)", cfg.Mode, "stdio")
	}
	if cfg.Host != "localhost" {
		t.Errorf("Load() Host = %v, want %v (should override env)", cfg.Host, "localhost")
	}
	if cfg.Port != 8888 {
		t.Errorf("Load() Port = %v, want %v (should override env)", cfg.Port, 8888)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"invalid mode", []string{"--mode=invalid"}, "mode must be either 'stdio' or 'server'"},
		{"invalid port", []string{"--mode=server", "--port=99999"}, "port must be between 1 and 65535"},
		{"invalid log level", []string{"--loglevel=invalid"}, "invalid log level"},
		{"invalid confidence", []string{"--minconfidence=2"}, "minimum confidence"},
		{"invalid template", []string{"--template=form.txt"}, "template must be a PDF"},
		{"unknown flag", []string{"--colour=red"}, "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args)
			if err == nil {
				t.Fatalf("Load() expected error for %v", tt.args)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_VersionFlag(t *testing.T) {
	for _, arg := range []string{"--version", "-version", "-v"} {
		_, err := Load([]string{"--dir=/tmp", arg})
		if !errors.Is(err, ErrVersionRequested) {
			t.Errorf("Load(%s) error = %v, want ErrVersionRequested", arg, err)
		}
	}
}

func TestBindFilingFlagsOnly(t *testing.T) {
	cfg := DefaultConfig()
	fs := pflag.NewFlagSet("taxform", pflag.ContinueOnError)
	RegisterFilingFlags(fs, cfg)

	v := viper.New()
	if err := Bind(v, fs, cfg); err != nil {
		t.Fatalf("Bind() unexpected error: %v", err)
	}
	if err := fs.Parse([]string{"--workers=3"}); err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	got := FromViper(v, cfg)
	if got.Workers != 3 {
		t.Errorf("FromViper() Workers = %v, want 3", got.Workers)
	}
	if got.Mode != ModeStdio {
		t.Errorf("FromViper() Mode = %v, want the default %v", got.Mode, ModeStdio)
	}
	if cfg.Workers != DefaultWorkers {
		t.Errorf("FromViper() modified its base config")
	}
}
