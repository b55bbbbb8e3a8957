package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// fallbackExtensions are matched in order against the lowercased URL.
var fallbackExtensions = []string{"png", "gif", "webp"}

// ImageFilename derives the local filename for an image URL: the last path
// segment, or image_<hash mod 100000><ext> when that has no extension.
func ImageFilename(rawURL string) string {
	name := lastSegment(rawURL)
	name = invalidFilenameChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." || !strings.Contains(name, ".") {
		return SyntheticFilename(rawURL)
	}
	return name
}

// SyntheticFilename names an image whose URL carries no usable filename.
func SyntheticFilename(rawURL string) string {
	return fmt.Sprintf("image_%d%s", FilenameHash(rawURL), guessExtension(rawURL))
}

// FilenameHash is the stable per-URL number used in synthetic names.
func FilenameHash(rawURL string) uint64 {
	return xxhash.Sum64String(rawURL) % 100000
}

func guessExtension(rawURL string) string {
	lower := strings.ToLower(rawURL)
	for _, ext := range fallbackExtensions {
		if strings.Contains(lower, ext) {
			return "." + ext
		}
	}
	return ".jpg"
}

func lastSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := u.Path
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
