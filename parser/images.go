// Package parser extracts image and link references from fetched pages.
package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// imgSourceAttrs are consulted in order; the first non-empty value wins.
var imgSourceAttrs = []string{"src", "data-src", "data-lazy-src"}

var iconMarkers = []string{"icon", "favicon"}

const backgroundImageMarker = "background-image:url("

var styleURLPattern = regexp.MustCompile(`url\(["']?([^"')\s]+)["']?\)`)

// ParseDocument builds a queryable document from raw HTML.
func ParseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ExtractImages returns the sorted, duplicate-free absolute image URLs
// referenced by body, resolved against pageURL, along with the parsed document.
func ExtractImages(pageURL string, body []byte) ([]string, *goquery.Document, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse page url: %w", err)
	}

	doc, err := ParseDocument(body)
	if err != nil {
		return nil, nil, err
	}

	return ImagesFromDocument(base, doc), doc, nil
}

// ImagesFromDocument collects image URLs from <img> tags and inline
// background-image styles. Icon filtering applies to <img> tags only.
func ImagesFromDocument(base *url.URL, doc *goquery.Document) []string {
	seen := make(map[string]struct{})

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		ref := firstImageSource(s)
		if ref == "" {
			return
		}
		abs, ok := Resolve(base, ref)
		if !ok || IsDataURI(abs) || IsIconURL(abs) {
			return
		}
		seen[abs] = struct{}{}
	})

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		for _, ref := range StyleImageURLs(style) {
			abs, ok := Resolve(base, ref)
			if !ok || IsDataURI(abs) {
				continue
			}
			seen[abs] = struct{}{}
		}
	})

	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// StyleImageURLs returns every url(...) reference in an inline style that
// declares a background image.
func StyleImageURLs(style string) []string {
	if !strings.Contains(stripWhitespace(style), backgroundImageMarker) {
		return nil
	}
	matches := styleURLPattern.FindAllStringSubmatch(style, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// Resolve makes ref absolute against base. A reference carrying a stray
// '%' is retried with that '%' escaped, as browsers do.
func Resolve(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		if u, err = url.Parse(escapeStrayPercents(ref)); err != nil {
			return "", false
		}
	}
	return base.ResolveReference(u).String(), true
}

// escapeStrayPercents rewrites every '%' not starting a valid %XX escape
// as %25.
func escapeStrayPercents(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && (i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// IsDataURI reports whether u is an inline data: URI.
func IsDataURI(u string) bool {
	return strings.HasPrefix(strings.ToLower(u), "data:")
}

// IsIconURL reports whether u looks like an icon or favicon.
func IsIconURL(u string) bool {
	lower := strings.ToLower(u)
	for _, marker := range iconMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func firstImageSource(s *goquery.Selection) string {
	for _, attr := range imgSourceAttrs {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
