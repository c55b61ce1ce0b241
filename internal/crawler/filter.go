package crawler

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/nao1215/spider/internal/model"
)

// LinkFilter decides which hyperlinks the crawl follows.
// A link is followed only when it resolves to the crawl origin; optional
// glob patterns then narrow the accepted paths further.
type LinkFilter struct {
	origin model.Origin

	// ignorePatterns are path globs that are never crawled.
	ignorePatterns []string

	// followPatterns, when non-empty, restrict the crawl to matching paths.
	followPatterns []string
}

// NewLinkFilter creates a filter anchored to origin.
func NewLinkFilter(origin model.Origin, ignorePatterns, followPatterns []string) *LinkFilter {
	return &LinkFilter{
		origin:         origin,
		ignorePatterns: ignorePatterns,
		followPatterns: followPatterns,
	}
}

// Origin returns the origin the filter is anchored to.
func (f *LinkFilter) Origin() model.Origin {
	return f.origin
}

// Accept resolves href against the page it was found on and reports
// whether the crawl should follow it. The resolved URL has no fragment.
// Rejected links are dropped without error.
func (f *LinkFilter) Accept(page *url.URL, href string) (*url.URL, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, false
	}

	resolved := ref
	if page != nil {
		resolved = page.ResolveReference(ref)
	}
	resolved.Fragment = ""
	resolved.RawFragment = ""

	if !f.InScope(resolved) {
		return nil, false
	}
	if !f.shouldCrawl(resolved) {
		return nil, false
	}
	return resolved, true
}

// InScope reports whether u shares the crawl origin.
// It is also used to re-check the final URL of a redirected fetch.
func (f *LinkFilter) InScope(u *url.URL) bool {
	return f.origin.Contains(u)
}

// shouldCrawl applies the ignore and follow patterns to the URL path.
//
// Logic:
//  1. If the path matches any ignore pattern, skip it
//  2. If follow patterns are set and none matches, skip it
//  3. Otherwise, crawl it
func (f *LinkFilter) shouldCrawl(u *url.URL) bool {
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range f.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(f.followPatterns) == 0 {
		return true
	}
	for _, pattern := range f.followPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing /* to match everything below a prefix
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users/edit"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		ext := strings.TrimPrefix(pattern, "*")
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Bare filename globs such as "logout*" match the last segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
