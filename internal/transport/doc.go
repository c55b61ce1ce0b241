// Package transport builds the HTTP client shared by the page fetcher and
// the image downloader.
//
// Requests go out directly by default. When a SOCKS5 proxy address is
// configured, every connection is dialed through it using
// golang.org/x/net/proxy, and CheckProxy can verify the proxy speaks SOCKS5
// before a crawl starts.
package transport
