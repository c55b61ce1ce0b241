package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultMaxDepth is the number of hops followed from the starting page.
	DefaultMaxDepth = 5

	// DefaultOutputDir is where downloaded images are written.
	DefaultOutputDir = "./data"

	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 5 * time.Second

	// DefaultDownloadTimeout bounds a single image download.
	// It is independent of the overall crawl deadline.
	DefaultDownloadTimeout = 10 * time.Second

	// DefaultWorkers is the number of pages fetched concurrently.
	// The same number bounds concurrent image downloads.
	DefaultWorkers = 8

	// DefaultMaxPages of 0 means no page cap; the depth budget alone bounds the crawl.
	DefaultMaxPages = 0

	// AppName is the application name used for XDG directory paths.
	AppName = "spider"

	// DefaultUserAgent is sent with every request. Some servers reject
	// requests with Go's default User-Agent, so a browser identity is used.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	// DefaultMaxBodySize limits how much of a page is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultMaxImageSize limits how much of an image is read.
	DefaultMaxImageSize = 50 * 1024 * 1024 // 50MB
)

// Config holds all options for one spider run.
// It is populated from CLI flags and the optional config file and passed
// down explicitly; there is no global configuration state.
type Config struct {
	// URL is the page the crawl starts from.
	URL string

	// Recursive enables following same-origin links from the starting page.
	// When false only the starting page's images are downloaded.
	Recursive bool

	// MaxDepth is the number of hops followed from the starting page.
	MaxDepth int

	// OutputDir is the directory images are saved to.
	OutputDir string

	// Workers bounds concurrent page fetches and concurrent image downloads.
	Workers int

	// Timeout bounds a single page fetch.
	Timeout time.Duration

	// DownloadTimeout bounds a single image download.
	DownloadTimeout time.Duration

	// Deadline bounds the whole crawl. Zero means no deadline.
	Deadline time.Duration

	// MaxPages caps the number of pages fetched. Zero means no cap.
	MaxPages int

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// MaxBodySize is the maximum page body size in bytes.
	MaxBodySize int64

	// MaxImageSize is the maximum image size in bytes.
	MaxImageSize int64

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the YAML config file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds the per-site settings loaded from the config file.
	SiteConfigs *File

	// ReportFile is an optional path a Markdown crawl summary is written to.
	ReportFile string

	// SaveToDB records the crawl in the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	DBDir string
}

// NewConfig creates a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		MaxDepth:        DefaultMaxDepth,
		OutputDir:       DefaultOutputDir,
		Workers:         DefaultWorkers,
		Timeout:         DefaultTimeout,
		DownloadTimeout: DefaultDownloadTimeout,
		MaxPages:        DefaultMaxPages,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
		MaxImageSize:    DefaultMaxImageSize,
		SaveToDB:        true,
		DBDir:           XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for spider.
// On Linux: ~/.local/share/spider
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for spider.
// On Linux: ~/.config/spider
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrNoTarget
	}

	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}

	if c.OutputDir == "" {
		return ErrEmptyOutputDir
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.Timeout <= 0 || c.DownloadTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Deadline < 0 {
		return ErrInvalidDeadline
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.MaxBodySize < 0 || c.MaxImageSize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

// ApplySite overlays site-specific settings on c.
// The depth from the site config only applies when the flag was left at
// its default, so an explicit -l always wins.
func (c *Config) ApplySite(site SiteConfig, depthFlagSet bool) {
	if site.Depth > 0 && !depthFlagSet {
		c.MaxDepth = site.Depth
	}
	if site.UserAgent != "" && c.UserAgent == DefaultUserAgent {
		c.UserAgent = site.UserAgent
	}
}
