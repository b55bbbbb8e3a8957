package pipeline

import "sort"

// ImageSet is an immutable set of image URLs. Union returns a new set and
// never mutates its operands.
type ImageSet struct {
	items map[string]struct{}
}

// NewImageSet builds a set from urls, dropping duplicates and empty strings.
func NewImageSet(urls ...string) ImageSet {
	items := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		items[u] = struct{}{}
	}
	return ImageSet{items: items}
}

// Union returns the set of URLs present in either s or other.
func (s ImageSet) Union(other ImageSet) ImageSet {
	items := make(map[string]struct{}, len(s.items)+len(other.items))
	for u := range s.items {
		items[u] = struct{}{}
	}
	for u := range other.items {
		items[u] = struct{}{}
	}
	return ImageSet{items: items}
}

// Contains reports whether u is in the set.
func (s ImageSet) Contains(u string) bool {
	_, ok := s.items[u]
	return ok
}

// Len returns the number of URLs.
func (s ImageSet) Len() int {
	return len(s.items)
}

// Sorted returns the URLs in lexicographic order.
func (s ImageSet) Sorted() []string {
	out := make([]string, 0, len(s.items))
	for u := range s.items {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
