package crawler

import (
	"fmt"
	"io"
	"strings"
)

// imageExtensions is the allow-list of image file extensions.
// Matching is done on the lowercased src attribute, so query strings
// after the extension do not match.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}

// HasImageExtension reports whether src ends in an allow-listed extension,
// ignoring case.
func HasImageExtension(src string) bool {
	lower := strings.ToLower(src)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ImageExtractor selects the downloadable image references of a page.
type ImageExtractor struct {
	out io.Writer
}

// NewImageExtractor creates an extractor that reports counts to out.
// A nil out discards the report.
func NewImageExtractor(out io.Writer) *ImageExtractor {
	if out == nil {
		out = io.Discard
	}
	return &ImageExtractor{out: out}
}

// Extract returns the src of every <img> whose src is non-empty and ends in
// an allow-listed extension. Values are returned as written, unresolved and
// not deduplicated.
func (e *ImageExtractor) Extract(doc *Document) []string {
	sources := make([]string, 0)
	for _, src := range doc.FindAll("img", "src") {
		if src != "" && HasImageExtension(src) {
			sources = append(sources, src)
		}
	}
	fmt.Fprintf(e.out, "Found %d images\n", len(sources))
	return sources
}
