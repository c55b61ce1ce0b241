package crawler

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/nao1215/spider/internal/imagemeta"
	"github.com/nao1215/spider/internal/model"
)

const (
	defaultDownloadTimeout = 10 * time.Second
	defaultMaxImageSize    = 50 * 1024 * 1024 // 50MB

	acceptImage = "image/avif,image/webp,image/png,image/*;q=0.8,*/*;q=0.5"

	// fallbackPrefix and fallbackExt frame the generated name used when a
	// URL path has no usable last segment.
	fallbackPrefix = "image_"
	fallbackExt    = ".jpg"
)

// fallbackKey keys the BLAKE2b digest behind fallback file names.
// It is fixed so that the same URL maps to the same name in every run.
var fallbackKey = []byte("spider/fallback-image-name")

// AssetDownloader persists one image.
type AssetDownloader interface {
	Download(ctx context.Context, imageURL *url.URL, outputDir string) model.DownloadOutcome
}

// Downloader is the AssetDownloader that writes images to the local filesystem.
type Downloader struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	maxSize   int64
	inspect   bool
	out       io.Writer
	logger    *slog.Logger
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithDownloadUserAgent sets the User-Agent header for image requests.
func WithDownloadUserAgent(ua string) DownloaderOption {
	return func(d *Downloader) {
		if ua != "" {
			d.userAgent = ua
		}
	}
}

// WithDownloadTimeout bounds each download. The bound is independent of
// the crawl deadline.
func WithDownloadTimeout(timeout time.Duration) DownloaderOption {
	return func(d *Downloader) {
		d.timeout = timeout
	}
}

// WithMaxImageSize limits the size of a single image.
func WithMaxImageSize(size int64) DownloaderOption {
	return func(d *Downloader) {
		if size > 0 {
			d.maxSize = size
		}
	}
}

// WithMetadataInspection toggles EXIF inspection of JPEG downloads.
func WithMetadataInspection(enabled bool) DownloaderOption {
	return func(d *Downloader) {
		d.inspect = enabled
	}
}

// WithDownloadOutput sets where the per-download console lines go.
func WithDownloadOutput(w io.Writer) DownloaderOption {
	return func(d *Downloader) {
		if w != nil {
			d.out = w
		}
	}
}

// WithDownloadLogger sets the logger for diagnostics.
func WithDownloadLogger(logger *slog.Logger) DownloaderOption {
	return func(d *Downloader) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDownloader creates a downloader using client.
func NewDownloader(client *http.Client, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client:    client,
		userAgent: defaultUserAgent,
		timeout:   defaultDownloadTimeout,
		maxSize:   defaultMaxImageSize,
		inspect:   true,
		out:       io.Discard,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches imageURL and writes it to outputDir, creating the
// directory if needed. An existing file with the same name is overwritten.
//
// The request runs on a context detached from ctx's cancellation and
// bounded by the download timeout, so a crawl deadline does not cut off a
// transfer already in progress. Failures are reported in the outcome and
// never returned as errors.
func (d *Downloader) Download(ctx context.Context, imageURL *url.URL, outputDir string) model.DownloadOutcome {
	if imageURL == nil {
		return d.report(model.Failed("", ErrNilURL))
	}
	rawURL := imageURL.String()

	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return d.report(model.Failed(rawURL, fmt.Errorf("failed to create output directory: %w", err)))
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return d.report(model.Failed(rawURL, fmt.Errorf("failed to create request: %w", err)))
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", acceptImage)

	resp, err := d.client.Do(req)
	if err != nil {
		return d.report(model.Failed(rawURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		o := model.Failed(rawURL, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
		o.StatusCode = resp.StatusCode
		return d.report(o)
	}
	if resp.ContentLength > d.maxSize {
		return d.report(model.Failed(rawURL, ErrImageTooLarge))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return d.report(model.Failed(rawURL, fmt.Errorf("failed to read body: %w", err)))
	}
	if int64(len(data)) > d.maxSize {
		return d.report(model.Failed(rawURL, ErrImageTooLarge))
	}

	name := FileName(imageURL)
	path := filepath.Join(outputDir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return d.report(model.Failed(rawURL, fmt.Errorf("failed to write file: %w", err)))
	}

	o := model.Saved(rawURL, path, int64(len(data)))
	if d.inspect && imagemeta.Supports(name) {
		o.Metadata = d.inspectMetadata(rawURL, data)
	}
	return d.report(o)
}

// inspectMetadata returns the EXIF metadata of data, or nil if there is none.
func (d *Downloader) inspectMetadata(rawURL string, data []byte) *model.ImageMetadata {
	meta, err := imagemeta.Inspect(data)
	if err != nil {
		if !errors.Is(err, imagemeta.ErrNoMetadata) {
			d.logger.Debug("failed to read EXIF metadata", "url", rawURL, "error", err)
		}
		return nil
	}
	if meta.IsEmpty() {
		return nil
	}
	if meta.IsSensitive() {
		d.logger.Warn("image carries identifying EXIF metadata",
			"url", rawURL,
			"gps", meta.HasGPS,
			"serial", meta.SerialNumber != "",
			"artist", meta.Artist,
		)
	}
	return meta
}

// report writes the console line for o and returns it.
func (d *Downloader) report(o model.DownloadOutcome) model.DownloadOutcome {
	if o.Success {
		fmt.Fprintf(d.out, "Saved %s -> %s\n", o.ImageURL, o.Path)
	} else {
		fmt.Fprintf(d.out, "Failed %s: %s\n", o.ImageURL, o.Reason)
	}
	return o
}

// FileName returns the local file name for an image URL: the last segment
// of the URL path. When that segment is empty, "." or "..", a name derived
// from a keyed BLAKE2b digest of the whole URL is used instead, for example
// image_3f2a9c0d5e6b7a81.jpg. The fallback is stable across runs.
func FileName(u *url.URL) string {
	p := u.Path
	seg := p[strings.LastIndex(p, "/")+1:]
	if seg != "" && seg != "." && seg != ".." {
		return seg
	}
	return fallbackName(u.String())
}

func fallbackName(rawURL string) string {
	h, err := blake2b.New(8, fallbackKey)
	if err != nil {
		// Only reachable with an invalid size or an oversized key.
		panic(err)
	}
	_, _ = h.Write([]byte(rawURL))
	return fallbackPrefix + hex.EncodeToString(h.Sum(nil)) + fallbackExt
}
