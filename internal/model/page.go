package model

import (
	"net/http"
	"net/url"
	"strings"
)

// PageResult is the outcome of fetching one page.
// It is produced by the fetcher and consumed immediately by the spider.
type PageResult struct {
	// URL is the URL that was requested.
	URL string `json:"url"`

	// FinalURL is the URL after redirects. Equal to URL when no redirect happened.
	FinalURL string `json:"final_url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the Content-Type response header.
	ContentType string `json:"content_type"`

	// Body is the response body, truncated to the fetcher's size limit.
	Body []byte `json:"-"`
}

// OK reports whether the page was served with 200 OK.
func (p *PageResult) OK() bool {
	return p != nil && p.StatusCode == http.StatusOK
}

// Redirected reports whether the final URL differs from the requested one.
func (p *PageResult) Redirected() bool {
	return p != nil && p.FinalURL != "" && p.FinalURL != p.URL
}

// BaseURL returns the URL that relative references on the page resolve
// against: the final URL after redirects.
func (p *PageResult) BaseURL() (*url.URL, error) {
	if p.FinalURL != "" {
		return url.Parse(p.FinalURL)
	}
	return url.Parse(p.URL)
}

// ImageReference is an image source found on a page, as written in the markup.
type ImageReference struct {
	// Source is the raw src attribute value.
	Source string `json:"source"`

	// Page is the URL of the page the reference was found on.
	Page *url.URL `json:"-"`
}

// Resolve returns the absolute image URL relative to the page.
// The fragment is dropped.
func (r ImageReference) Resolve() (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(r.Source))
	if err != nil {
		return nil, err
	}
	var resolved *url.URL
	if r.Page != nil {
		resolved = r.Page.ResolveReference(ref)
	} else {
		resolved = ref
	}
	resolved.Fragment = ""
	return resolved, nil
}
