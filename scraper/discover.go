package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aluiziolira/go-scrape-images/parser"
)

// Discoverer builds the list of pages to scan: the root, the seed paths,
// and any keyword-matching links found on the root page. Links on those
// pages are never followed.
type Discoverer struct {
	fetcher   Fetcher
	root      string
	seedPaths []string
	keywords  []string
}

// NewDiscoverer returns a discoverer rooted at root.
func NewDiscoverer(fetcher Fetcher, root string, seedPaths, keywords []string) *Discoverer {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		lowered = append(lowered, strings.ToLower(k))
	}
	return &Discoverer{
		fetcher:   fetcher,
		root:      root,
		seedPaths: seedPaths,
		keywords:  lowered,
	}
}

// Seeds returns the root followed by the seed paths resolved against it.
func (d *Discoverer) Seeds() []string {
	out := []string{d.root}
	base, err := url.Parse(d.root)
	if err != nil {
		return out
	}
	seen := map[string]struct{}{d.root: {}}
	for _, p := range d.seedPaths {
		abs, ok := parser.Resolve(base, p)
		if !ok {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	return out
}

// Discover returns the pages to scan in discovery order. A failure to read
// the root page is logged and returned alongside the seeds alone.
func (d *Discoverer) Discover(ctx context.Context) ([]string, error) {
	pages := d.Seeds()

	links, err := d.rootLinks(ctx)
	if err != nil {
		slog.Error("error finding pages",
			slog.String("url", d.root),
			slog.String("category", errorTypeLabel(err)),
			slog.Any("error", err),
		)
		return pages, err
	}

	seen := make(map[string]struct{}, len(pages))
	for _, p := range pages {
		seen[p] = struct{}{}
	}
	for _, link := range links {
		if !d.follows(link) {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		pages = append(pages, link)
		slog.Debug("discovered page", slog.String("url", link))
	}
	return pages, nil
}

func (d *Discoverer) rootLinks(ctx context.Context) ([]string, error) {
	base, err := url.Parse(d.root)
	if err != nil {
		return nil, ErrParse{URL: d.root, Err: err}
	}
	body, err := d.fetcher.Fetch(ctx, d.root)
	if err != nil {
		return nil, ErrPageFetch{URL: d.root, Err: err}
	}
	doc, err := parser.ParseDocument(body)
	if err != nil {
		return nil, ErrParse{URL: d.root, Err: err}
	}
	return parser.LinksFromDocument(base, doc), nil
}

// follows reports whether link stays on the root site and names a
// trailer, boat, or product page.
func (d *Discoverer) follows(link string) bool {
	if !strings.HasPrefix(link, d.root) {
		return false
	}
	rootURL, err := url.Parse(d.root)
	if err != nil {
		return false
	}
	linkURL, err := url.Parse(link)
	if err != nil || !strings.EqualFold(linkURL.Host, rootURL.Host) {
		return false
	}
	lower := strings.ToLower(link)
	for _, k := range d.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
