package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-images/config"
	"github.com/aluiziolira/go-scrape-images/models"
	"github.com/aluiziolira/go-scrape-images/pipeline"
	"github.com/aluiziolira/go-scrape-images/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	defaultCfg := config.DefaultConfig()
	if err := applyEnv(defaultCfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}

	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Root URL of the site to crawl")
	outputDir := flag.String("output-dir", defaultCfg.OutputDir, "Directory images are saved to")
	timeout := flag.Duration("timeout", defaultCfg.Timeout, "Per-request timeout")
	pageDelay := flag.Duration("page-delay", defaultCfg.PageDelay, "Pause after each page scan")
	imageDelay := flag.Duration("image-delay", defaultCfg.ImageDelay, "Pause after each image download")
	userAgent := flag.String("user-agent", defaultCfg.UserAgent, "User-Agent header sent with every request")
	manifestFile := flag.String("manifest", defaultCfg.ManifestFile, "Optional manifest of download outcomes")
	manifestFormat := flag.String("format", defaultCfg.ManifestFormat, "Manifest format: csv, json, or dual")
	respectRobots := flag.Bool("respect-robots", defaultCfg.RespectRobotsTxt, "Respect robots.txt directives")
	verbose := flag.Bool("v", defaultCfg.Verbose, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", defaultCfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.BaseURL = strings.TrimRight(*baseURL, "/")
	cfg.OutputDir = *outputDir
	cfg.Timeout = *timeout
	cfg.PageDelay = *pageDelay
	cfg.ImageDelay = *imageDelay
	cfg.UserAgent = *userAgent
	cfg.ManifestFile = *manifestFile
	cfg.ManifestFormat = strings.ToLower(*manifestFormat)
	cfg.RespectRobotsTxt = *respectRobots
	cfg.Verbose = *verbose
	cfg.MetricsAddr = *metricsAddr

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run with -h to list the available flags.")
		os.Exit(1)
	}

	if err := pipeline.EnsureDir(cfg.OutputDir); err != nil {
		fmt.Fprintf(os.Stderr, "cannot prepare output directory: %v\n", err)
		fmt.Fprintln(os.Stderr, "Choose a writable location with -output-dir or SCRAPER_OUTPUT_DIR.")
		os.Exit(1)
	}
	slog.Info("output directory ready", slog.String("path", cfg.OutputDir))

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := createWriter(cfg.ManifestFormat, cfg.ManifestFile)
	if err != nil {
		slog.Error("creating manifest writer", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	p := pipeline.NewPipeline(writer, cfg)

	result, runErr := s.Run(ctx, p)
	if runErr != nil {
		slog.Warn("run interrupted", slog.Any("error", runErr))
	}

	exitCode := 0
	if err := p.Close(); err != nil {
		slog.Error("manifest shutdown failed", slog.Any("error", err))
		exitCode = 1
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			slog.Error("close manifest", slog.Any("error", err))
			exitCode = 1
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	stop()
	printSummary(result, cfg.ManifestFile)
	os.Exit(exitCode)
}

func applyEnv(cfg *config.Config) error {
	if value, ok := config.EnvString("SCRAPER_BASE_URL"); ok {
		cfg.BaseURL = value
	}
	if value, ok := config.EnvString("SCRAPER_OUTPUT_DIR"); ok {
		cfg.OutputDir = value
	}
	if value, ok := config.EnvString("SCRAPER_MANIFEST"); ok {
		cfg.ManifestFile = value
	}
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if value, ok, err := config.EnvDuration("SCRAPER_TIMEOUT"); err != nil {
		return err
	} else if ok {
		cfg.Timeout = value
	}
	if value, ok, err := config.EnvInt("SCRAPER_BATCH_SIZE"); err != nil {
		return err
	} else if ok {
		cfg.BatchSize = value
	}
	return nil
}

// createWriter returns nil when no manifest was requested.
func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	if filename == "" {
		return nil, nil
	}
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.ScraperResult, manifestFile string) {
	separator := "============================================================"
	absOutput, err := filepath.Abs(result.OutputDir)
	if err != nil {
		absOutput = result.OutputDir
	}

	fmt.Println("\n" + separator)
	if result.Interrupted {
		fmt.Println("DOWNLOAD INTERRUPTED")
	} else {
		fmt.Println("DOWNLOAD COMPLETE!")
	}
	fmt.Printf("  Pages checked:   %d\n", result.PagesChecked)
	if result.PageErrors > 0 {
		fmt.Printf("  Page errors:     %d\n", result.PageErrors)
	}
	fmt.Printf("  Images found:    %d\n", result.ImagesFound)
	fmt.Printf("  Downloaded:      %d\n", result.Downloaded)
	fmt.Printf("  Already present: %d\n", result.Skipped)
	fmt.Printf("  Failed:          %d\n", result.Failed)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:     %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Duration:        %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	if manifestFile != "" {
		fmt.Printf("  Manifest:        %s\n", manifestFile)
	}
	fmt.Printf("  Saved to:        %s\n", absOutput)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
