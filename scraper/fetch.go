package scraper

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Fetcher retrieves the body behind an absolute URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, rawURL string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return f(ctx, rawURL)
}

// cachedFetcher remembers page bodies so a page read during discovery is
// not requested again when scanned. Failures are not cached.
type cachedFetcher struct {
	next  Fetcher
	pages *lru.Cache[string, []byte]
}

func newCachedFetcher(next Fetcher, size int) (*cachedFetcher, error) {
	pages, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("page cache: %w", err)
	}
	return &cachedFetcher{next: next, pages: pages}, nil
}

func (c *cachedFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if body, ok := c.pages.Get(rawURL); ok {
		return body, nil
	}
	body, err := c.next.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	c.pages.Add(rawURL, body)
	return body, nil
}
