// Package config provides the configuration structures for spider:
// crawl depth and output location, timeouts, concurrency, transport
// settings, and per-site overrides loaded from a YAML file.
package config
