package transport

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrProxyNotSOCKS5 is returned when the proxy answers but does not speak SOCKS5.
	ErrProxyNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy can be made.
	ErrProxyCannotConnect = errors.New("cannot connect to proxy")

	// ErrProxyTimeout is returned when the proxy handshake times out.
	ErrProxyTimeout = errors.New("timeout connecting to proxy")

	// ErrTooManyRedirects is returned when a response redirects more than the limit.
	ErrTooManyRedirects = errors.New("stopped after too many redirects")

	errUnknownProxyStatus = errors.New("unknown proxy status")
)

// ProxyStatus is the outcome of CheckProxy.
type ProxyStatus int

const (
	// ProxyStatusOK means the proxy completed a no-auth SOCKS5 greeting.
	ProxyStatusOK ProxyStatus = iota
	// ProxyStatusWrongType means the proxy answered but is not SOCKS5
	// or insists on authentication.
	ProxyStatusWrongType
	// ProxyStatusCannotConnect means the TCP connection failed.
	ProxyStatusCannotConnect
	// ProxyStatusTimeout means the greeting did not finish in time.
	ProxyStatusTimeout
)

var proxyStatuses = [...]struct {
	label string
	err   error
}{
	ProxyStatusOK:            {"OK", nil},
	ProxyStatusWrongType:     {"wrong type (not SOCKS5)", ErrProxyNotSOCKS5},
	ProxyStatusCannotConnect: {"cannot connect", ErrProxyCannotConnect},
	ProxyStatusTimeout:       {"timeout", ErrProxyTimeout},
}

func (s ProxyStatus) known() bool {
	return s >= 0 && int(s) < len(proxyStatuses)
}

func (s ProxyStatus) String() string {
	if !s.known() {
		return "unknown"
	}
	return proxyStatuses[s].label
}

// Err returns the sentinel error for s, or nil for ProxyStatusOK.
func (s ProxyStatus) Err() error {
	if !s.known() {
		return errUnknownProxyStatus
	}
	return proxyStatuses[s].err
}
