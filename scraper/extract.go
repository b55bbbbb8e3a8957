package scraper

import (
	"context"
	"log/slog"

	"github.com/aluiziolira/go-scrape-images/models"
	"github.com/aluiziolira/go-scrape-images/parser"
)

// Extractor scans a single page for image URLs.
type Extractor struct {
	fetcher Fetcher
}

// NewExtractor returns an extractor reading pages through fetcher.
func NewExtractor(fetcher Fetcher) *Extractor {
	return &Extractor{fetcher: fetcher}
}

// Scan fetches pageURL and returns its images. Errors are logged and
// reported on the result; the page then contributes no images.
func (e *Extractor) Scan(ctx context.Context, pageURL string) models.PageResult {
	body, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return e.failed(pageURL, ErrPageFetch{URL: pageURL, Err: err})
	}

	images, _, err := parser.ExtractImages(pageURL, body)
	if err != nil {
		return e.failed(pageURL, ErrParse{URL: pageURL, Err: err})
	}

	return models.PageResult{URL: pageURL, Images: images}
}

func (e *Extractor) failed(pageURL string, err error) models.PageResult {
	slog.Error("error fetching page",
		slog.String("url", pageURL),
		slog.String("category", errorTypeLabel(err)),
		slog.Any("error", err),
	)
	return models.PageResult{URL: pageURL, Err: err}
}
