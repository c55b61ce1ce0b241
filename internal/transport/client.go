package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultMaxRedirects matches net/http's own redirect limit.
	DefaultMaxRedirects = 10

	// checkProxyTimeout bounds the SOCKS5 greeting in CheckProxy.
	checkProxyTimeout = 2 * time.Second

	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

// clientOptions holds the settings applied by NewHTTPClient.
type clientOptions struct {
	timeout      time.Duration
	proxyAddress string
	maxRedirects int
}

// Option configures the client built by NewHTTPClient.
type Option func(*clientOptions)

// WithTimeout sets an upper bound for any single request made by the client.
// Callers still apply their own, usually shorter, per-request deadlines.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithProxy routes every connection through the SOCKS5 proxy at address.
// An empty address means a direct connection.
func WithProxy(address string) Option {
	return func(o *clientOptions) {
		o.proxyAddress = address
	}
}

// WithMaxRedirects sets how many redirects a request may follow.
func WithMaxRedirects(n int) Option {
	return func(o *clientOptions) {
		if n >= 0 {
			o.maxRedirects = n
		}
	}
}

// NewHTTPClient creates the HTTP client used for pages and images.
//
// Redirects are followed up to the configured limit. The final URL is
// available on resp.Request.URL so callers can re-check it against the
// crawl origin.
func NewHTTPClient(opts ...Option) (*http.Client, error) {
	o := clientOptions{maxRedirects: DefaultMaxRedirects}
	for _, opt := range opts {
		opt(&o)
	}

	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("unexpected default transport type")
	}
	tr := base.Clone()

	if o.proxyAddress != "" {
		if !IsValidProxyAddress(o.proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}

		dialer, err := proxy.SOCKS5("tcp", o.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}

		// Environment proxies must not bypass the SOCKS5 dialer.
		tr.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			tr.DialContext = cd.DialContext
		} else {
			tr.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	maxRedirects := o.maxRedirects
	return &http.Client{
		Transport: tr,
		Timeout:   o.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}, nil
}

// IsValidProxyAddress checks if the address is in "host:port" format
// with a port between 1 and 65535.
func IsValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// CheckProxy verifies that a SOCKS5 proxy is listening at address and
// accepts connections without authentication.
func CheckProxy(ctx context.Context, address string) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Greeting: version, one method, "no authentication".
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if resp[0] != socks5Version || resp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	return ProxyStatusOK
}
