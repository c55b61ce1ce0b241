package model

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// URL validation errors.
var (
	// ErrEmptyURL is returned when the URL is empty.
	ErrEmptyURL = errors.New("url cannot be empty")
	// ErrUnsupportedScheme is returned when the URL is not http or https.
	ErrUnsupportedScheme = errors.New("unsupported url scheme: must be http or https")
	// ErrMissingHost is returned when the URL has no host component.
	ErrMissingHost = errors.New("url has no host")
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// Origin is an immutable value object holding the scheme, host and port
// identity of a URL. It is the scope boundary of a crawl.
//
// Default ports are made explicit so that http://a.com and http://a.com:80
// compare equal. Hosts are lowercased.
type Origin struct {
	scheme string
	host   string
	port   string
}

// NewOrigin builds the Origin of an absolute http(s) URL.
func NewOrigin(u *url.URL) (Origin, error) {
	if u == nil {
		return Origin{}, ErrEmptyURL
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != schemeHTTP && scheme != schemeHTTPS {
		return Origin{}, ErrUnsupportedScheme
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Origin{}, ErrMissingHost
	}

	port := u.Port()
	if port == "" {
		port = defaultPort(scheme)
	}

	return Origin{scheme: scheme, host: host, port: port}, nil
}

// ParseOrigin parses rawURL and returns its Origin.
func ParseOrigin(rawURL string) (Origin, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Origin{}, ErrEmptyURL
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Origin{}, err
	}
	return NewOrigin(u)
}

// MustParseOrigin is like ParseOrigin but panics on error.
// Use only for known-valid URLs in tests or initialization.
func MustParseOrigin(rawURL string) Origin {
	o, err := ParseOrigin(rawURL)
	if err != nil {
		panic(err)
	}
	return o
}

func defaultPort(scheme string) string {
	if scheme == schemeHTTPS {
		return "443"
	}
	return "80"
}

// Scheme returns the lowercased scheme.
func (o Origin) Scheme() string {
	return o.scheme
}

// Host returns the lowercased host name without port.
func (o Origin) Host() string {
	return o.host
}

// Port returns the explicit port, including default ports.
func (o Origin) Port() string {
	return o.port
}

// String returns the origin in scheme://host[:port] form.
// Default ports are omitted.
func (o Origin) String() string {
	if o.IsZero() {
		return ""
	}
	if o.port == defaultPort(o.scheme) {
		if strings.Contains(o.host, ":") {
			return o.scheme + "://[" + o.host + "]"
		}
		return o.scheme + "://" + o.host
	}
	return o.scheme + "://" + net.JoinHostPort(o.host, o.port)
}

// IsZero returns true if this is the zero Origin.
func (o Origin) IsZero() bool {
	return o.scheme == "" && o.host == ""
}

// Equals returns true if both origins share scheme, host and port.
func (o Origin) Equals(other Origin) bool {
	return o.scheme == other.scheme && o.host == other.host && o.port == other.port
}

// Contains reports whether u belongs to this origin.
// URLs without an http(s) origin never match.
func (o Origin) Contains(u *url.URL) bool {
	if o.IsZero() {
		return false
	}
	other, err := NewOrigin(u)
	if err != nil {
		return false
	}
	return o.Equals(other)
}
