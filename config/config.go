package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL          string
	OutputDir        string
	SeedPaths        []string
	LinkKeywords     []string
	UserAgent        string
	Timeout          time.Duration
	PageDelay        time.Duration
	ImageDelay       time.Duration
	PageCacheSize    int
	ManifestFile     string
	ManifestFormat   string // csv, json, or dual
	BatchSize        int
	MetricsAddr      string
	Verbose          bool
	RespectRobotsTxt bool
}

// DefaultConfig returns the defaults for the trailer site.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://www.gttrailers.co.nz",
		OutputDir:        "./images",
		SeedPaths:        []string{"/trailers/", "/boat-trailers/", "/hardware/", "/contact-us/"},
		LinkKeywords:     []string{"trailer", "boat", "product"},
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		Timeout:          30 * time.Second,
		PageDelay:        500 * time.Millisecond,
		ImageDelay:       300 * time.Millisecond,
		PageCacheSize:    16,
		ManifestFile:     "",
		ManifestFormat:   "csv",
		BatchSize:        64,
		MetricsAddr:      "",
		Verbose:          false,
		RespectRobotsTxt: false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base URL scheme must be http or https")
	}

	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	for _, seed := range c.SeedPaths {
		if strings.TrimSpace(seed) == "" {
			return fmt.Errorf("seed paths cannot contain empty entries")
		}
	}
	for _, keyword := range c.LinkKeywords {
		if strings.TrimSpace(keyword) == "" {
			return fmt.Errorf("link keywords cannot contain empty entries")
		}
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.ImageDelay < 0 {
		return fmt.Errorf("image delay cannot be negative")
	}
	if c.PageCacheSize <= 0 {
		return fmt.Errorf("page cache size must be positive")
	}
	if c.ManifestFile != "" {
		if c.ManifestFormat != "csv" && c.ManifestFormat != "json" && c.ManifestFormat != "dual" {
			return fmt.Errorf("manifest format must be csv, json, or dual")
		}
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}

	return nil
}
