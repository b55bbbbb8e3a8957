package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-images/config"
	"github.com/aluiziolira/go-scrape-images/models"
	"github.com/aluiziolira/go-scrape-images/pipeline"
	"github.com/gocolly/colly/v2"
)

const (
	phasePage  = "page"
	phaseImage = "image"
)

// Scraper wraps a synchronous colly collector shared by every request of
// a run: discovery, page scans, and image downloads.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics

	discoverer *Discoverer
	extractor  *Extractor
	downloader *Downloader

	requestCount int
	errorCount   int
	failedURLs   []string
	errorsByType map[string]int

	sleep func(ctx context.Context, d time.Duration) error
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	// Images may live on a CDN, so no AllowedDomains here; discovery keeps
	// pages on the root host itself. Error statuses are parsed so that only
	// 4xx and 5xx fail a request.
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(0),
		colly.ParseHTTPErrorResponse(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	s := &Scraper{
		cfg:          cfg,
		collector:    collector,
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
		sleep:        sleepContext,
	}
	s.configureHandlers()

	pages, err := newCachedFetcher(s.fetcher(phasePage), cfg.PageCacheSize)
	if err != nil {
		return nil, err
	}
	s.discoverer = NewDiscoverer(pages, cfg.BaseURL, cfg.SeedPaths, cfg.LinkKeywords)
	s.extractor = NewExtractor(pages)
	s.downloader = NewDownloader(s.fetcher(phaseImage), cfg.OutputDir)
	return s, nil
}

// Run discovers pages, scans each once, and downloads the union of their
// images in lexicographic order. Every outcome is recorded on p.
// Per-page and per-image failures never stop the run; a cancelled ctx
// stops it early and is returned with the partial result.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.ScraperResult{
		StartTime: time.Now(),
		OutputDir: s.cfg.OutputDir,
	}
	finish := func(err error) (*models.ScraperResult, error) {
		result.EndTime = time.Now()
		result.RequestCount = s.requestCount
		result.ErrorsByType = s.snapshotErrors()
		result.FailedURLs = s.snapshotFailedURLs()
		if err != nil {
			result.Interrupted = true
		}
		return result, err
	}

	slog.Info("finding pages", slog.String("base_url", s.cfg.BaseURL))
	pages, err := s.discoverer.Discover(ctx)
	s.countStageError(s.cfg.BaseURL, err)
	slog.Info("pages to check", slog.Int("count", len(pages)))

	images := pipeline.NewImageSet()
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		slog.Info("checking page",
			slog.Int("index", i+1),
			slog.Int("total", len(pages)),
			slog.String("url", page),
		)

		scanned := s.extractor.Scan(ctx, page)
		result.PagesChecked++
		if scanned.Err != nil {
			result.PageErrors++
			s.countStageError(page, scanned.Err)
		} else if len(scanned.Images) > 0 {
			slog.Info("found images", slog.String("url", page), slog.Int("count", len(scanned.Images)))
		}
		images = images.Union(pipeline.NewImageSet(scanned.Images...))

		if err := s.sleep(ctx, s.cfg.PageDelay); err != nil {
			return finish(err)
		}
	}

	result.ImagesFound = images.Len()
	s.Metrics.AddImagesFound(images.Len())
	slog.Info("total unique images found", slog.Int("count", images.Len()))

	sorted := images.Sorted()
	for i, imageURL := range sorted {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		slog.Info("downloading",
			slog.Int("index", i+1),
			slog.Int("total", len(sorted)),
			slog.String("url", imageURL),
		)

		downloaded := s.downloader.Download(ctx, imageURL)
		s.Metrics.IncDownload(string(downloaded.Status))
		s.countStageError(imageURL, downloaded.Err)
		switch downloaded.Status {
		case models.StatusFailed:
			result.Failed++
		case models.StatusSkipped:
			result.Skipped++
			result.Downloaded++
		default:
			result.Downloaded++
		}
		if err := p.Record(downloaded); err != nil {
			slog.Error("manifest record error", slog.Any("error", err))
		}

		if err := s.sleep(ctx, s.cfg.ImageDelay); err != nil {
			return finish(err)
		}
	}

	return finish(nil)
}

func (s *Scraper) configureHandlers() {
	s.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put("status", r.StatusCode)
		r.Ctx.Put("body", r.Body)
	})

	s.collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.Ctx != nil {
			r.Ctx.Put("status", r.StatusCode)
		}
	})
}

// fetcher returns a Fetcher issuing requests through the shared collector,
// labelled with phase for metrics.
func (s *Scraper) fetcher(phase string) Fetcher {
	return FetcherFunc(func(ctx context.Context, rawURL string) ([]byte, error) {
		return s.fetch(ctx, phase, rawURL)
	})
}

func (s *Scraper) fetch(ctx context.Context, phase, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.requestCount++
	s.Metrics.IncRequest(phase)

	reqCtx := colly.NewContext()
	start := time.Now()
	err := s.collector.Request(http.MethodGet, rawURL, nil, reqCtx, nil)
	s.Metrics.ObserveDuration(time.Since(start))

	status, _ := reqCtx.GetAny("status").(int)
	if err == nil && status >= http.StatusBadRequest {
		err = errors.New(http.StatusText(status))
	}
	if err != nil {
		classified := classifyError(err, status)
		category := s.countError(rawURL, classified)

		slog.Debug("request error",
			slog.String("url", rawURL),
			slog.String("phase", phase),
			slog.String("category", category),
			slog.Any("error", err),
		)
		return nil, classified
	}

	body, _ := reqCtx.GetAny("body").([]byte)
	return body, nil
}

// countError records err under its category and returns the category.
func (s *Scraper) countError(rawURL string, err error) string {
	category := errorTypeLabel(err)
	s.errorCount++
	s.errorsByType[category]++
	s.failedURLs = append(s.failedURLs, rawURL)
	s.Metrics.IncError(category)
	return category
}

// countStageError counts failures raised outside the fetch path, such as
// parse and filesystem errors. Fetch failures were counted by fetch.
func (s *Scraper) countStageError(rawURL string, err error) {
	if err == nil {
		return
	}
	var pageFetch ErrPageFetch
	var imageFetch ErrImageFetch
	if errors.As(err, &pageFetch) || errors.As(err, &imageFetch) {
		return
	}
	s.countError(rawURL, err)
}

func (s *Scraper) snapshotFailedURLs() []string {
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
		if statusCode >= http.StatusBadRequest {
			return ErrHTTPStatus{StatusCode: statusCode, Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	return err
}
