package crawler

import (
	"net/url"
	"strings"
	"sync"
)

// VisitedSet records the URLs claimed during one crawl.
// It only grows; a new set is created for every crawl.
type VisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewVisitedSet creates an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Claim marks rawURL as visited and reports whether this call was the first
// to do so. The check and the insert happen under one lock, so exactly one
// of several concurrent callers wins.
func (v *VisitedSet) Claim(rawURL string) bool {
	key := NormalizeURL(rawURL)

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

// Contains reports whether rawURL has already been claimed.
func (v *VisitedSet) Contains(rawURL string) bool {
	key := NormalizeURL(rawURL)

	v.mu.Lock()
	defer v.mu.Unlock()

	_, ok := v.seen[key]
	return ok
}

// Len returns the number of claimed URLs.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

// NormalizeURL returns the form of rawURL used as a visited-set key.
// The fragment is dropped, scheme and host are lowercased, and an empty
// path becomes "/", so http://Example.com and http://example.com/#top
// are the same page. Unparseable input is returned unchanged.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
