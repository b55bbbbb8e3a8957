package parser

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// LinksFromDocument returns the absolute targets of every <a href> in doc,
// in document order and without duplicates. Fragments are kept.
func LinksFromDocument(base *url.URL, doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	var out []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs, ok := Resolve(base, href)
		if !ok {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	})

	return out
}
