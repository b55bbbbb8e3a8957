package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "unsupported scheme",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "ftp://example.test"
			},
			wantErr: "scheme",
		},
		{
			name: "empty output dir",
			mutate: func(cfg *Config) {
				cfg.OutputDir = "  "
			},
			wantErr: "output dir",
		},
		{
			name: "empty seed path",
			mutate: func(cfg *Config) {
				cfg.SeedPaths = []string{"/trailers/", ""}
			},
			wantErr: "seed paths",
		},
		{
			name: "empty keyword",
			mutate: func(cfg *Config) {
				cfg.LinkKeywords = []string{""}
			},
			wantErr: "link keywords",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative page delay",
			mutate: func(cfg *Config) {
				cfg.PageDelay = -time.Millisecond
			},
			wantErr: "page delay",
		},
		{
			name: "negative image delay",
			mutate: func(cfg *Config) {
				cfg.ImageDelay = -time.Millisecond
			},
			wantErr: "image delay",
		},
		{
			name: "zero page cache",
			mutate: func(cfg *Config) {
				cfg.PageCacheSize = 0
			},
			wantErr: "page cache",
		},
		{
			name: "unknown manifest format",
			mutate: func(cfg *Config) {
				cfg.ManifestFile = "out/manifest.csv"
				cfg.ManifestFormat = "xml"
			},
			wantErr: "manifest format",
		},
		{
			name: "zero batch size",
			mutate: func(cfg *Config) {
				cfg.BatchSize = 0
			},
			wantErr: "batch size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if len(cfg.SeedPaths) != 4 {
		t.Fatalf("seed paths = %v, want 4 entries", cfg.SeedPaths)
	}
}

func TestManifestFormatIgnoredWithoutFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ManifestFormat = "xml"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("format should only be checked when a manifest is requested, got %v", err)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SCRAPER_TEST_STRING", "  ./out  ")
	t.Setenv("SCRAPER_TEST_INT", "12")
	t.Setenv("SCRAPER_TEST_BAD_INT", "twelve")
	t.Setenv("SCRAPER_TEST_DURATION", "250ms")

	if got, ok := EnvString("SCRAPER_TEST_STRING"); !ok || got != "./out" {
		t.Fatalf("EnvString = %q/%v, want ./out/true", got, ok)
	}
	if _, ok := EnvString("SCRAPER_TEST_UNSET"); ok {
		t.Fatalf("unset variable reported as set")
	}
	if got, ok, err := EnvInt("SCRAPER_TEST_INT"); err != nil || !ok || got != 12 {
		t.Fatalf("EnvInt = %d/%v/%v, want 12/true/nil", got, ok, err)
	}
	if _, ok, err := EnvInt("SCRAPER_TEST_BAD_INT"); err == nil || !ok {
		t.Fatalf("expected parse error for bad int, got ok=%v err=%v", ok, err)
	}
	if got, ok, err := EnvDuration("SCRAPER_TEST_DURATION"); err != nil || !ok || got != 250*time.Millisecond {
		t.Fatalf("EnvDuration = %v/%v/%v, want 250ms/true/nil", got, ok, err)
	}
}
