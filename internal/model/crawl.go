package model

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Crawl request defaults.
const (
	// DefaultMaxDepth is the number of hops followed from the origin
	// when no depth is given.
	DefaultMaxDepth = 5

	// DefaultOutputDir is where images are saved when no path is given.
	DefaultOutputDir = "./data"
)

// Crawl request errors.
var (
	// ErrNegativeDepth is returned when the maximum depth is below zero.
	ErrNegativeDepth = errors.New("max depth must be zero or greater")
	// ErrEmptyOutputDir is returned when no output directory is given.
	ErrEmptyOutputDir = errors.New("output directory cannot be empty")
)

// CrawlRequest describes one crawl invocation. It is immutable once built;
// accessors return copies.
type CrawlRequest struct {
	target    *url.URL
	origin    Origin
	maxDepth  int
	outputDir string
	recursive bool
}

// NewCrawlRequest validates the arguments and builds a CrawlRequest.
// A target without a scheme is treated as http.
func NewCrawlRequest(rawURL string, maxDepth int, outputDir string, recursive bool) (CrawlRequest, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return CrawlRequest{}, ErrEmptyURL
	}
	if maxDepth < 0 {
		return CrawlRequest{}, ErrNegativeDepth
	}
	if strings.TrimSpace(outputDir) == "" {
		return CrawlRequest{}, ErrEmptyOutputDir
	}

	if !strings.Contains(rawURL, "://") {
		rawURL = schemeHTTP + "://" + rawURL
	}

	target, err := url.Parse(rawURL)
	if err != nil {
		return CrawlRequest{}, err
	}
	target.Fragment = ""

	origin, err := NewOrigin(target)
	if err != nil {
		return CrawlRequest{}, err
	}

	return CrawlRequest{
		target:    target,
		origin:    origin,
		maxDepth:  maxDepth,
		outputDir: outputDir,
		recursive: recursive,
	}, nil
}

// URL returns a copy of the starting URL.
func (r CrawlRequest) URL() *url.URL {
	if r.target == nil {
		return nil
	}
	u := *r.target
	return &u
}

// Origin returns the crawl scope.
func (r CrawlRequest) Origin() Origin {
	return r.origin
}

// MaxDepth returns the hop budget.
func (r CrawlRequest) MaxDepth() int {
	return r.maxDepth
}

// OutputDir returns the directory images are saved to.
func (r CrawlRequest) OutputDir() string {
	return r.outputDir
}

// Recursive reports whether links from the origin page are followed.
func (r CrawlRequest) Recursive() bool {
	return r.recursive
}

// CrawlSummary collects the results of one crawl.
// It is not safe for concurrent use; the spider serializes updates.
type CrawlSummary struct {
	// ID is the history database identifier, zero until saved.
	ID int64 `json:"id,omitempty"`

	Origin    string `json:"origin"`
	Recursive bool   `json:"recursive"`
	MaxDepth  int    `json:"max_depth"`
	OutputDir string `json:"output_dir"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// OriginStatus is the HTTP status of the initial fetch, zero if it failed.
	OriginStatus int `json:"origin_status"`

	PagesVisited int `json:"pages_visited"`
	PagesFailed  int `json:"pages_failed"`
	ImagesFound  int `json:"images_found"`
	ImagesSaved  int `json:"images_saved"`
	ImagesFailed int `json:"images_failed"`

	// TimedOut is set when the crawl deadline or cancellation stopped the crawl.
	TimedOut bool `json:"timed_out"`

	// Error holds the reason the crawl ended early, if any.
	Error string `json:"error,omitempty"`

	Downloads []DownloadOutcome `json:"downloads,omitempty"`
}

// NewCrawlSummary creates an empty summary for req.
func NewCrawlSummary(req CrawlRequest) *CrawlSummary {
	origin := ""
	if u := req.URL(); u != nil {
		origin = u.String()
	}
	return &CrawlSummary{
		Origin:    origin,
		Recursive: req.Recursive(),
		MaxDepth:  req.MaxDepth(),
		OutputDir: req.OutputDir(),
		StartedAt: time.Now(),
		Downloads: make([]DownloadOutcome, 0),
	}
}

// AddDownload records a download outcome and updates the counters.
func (s *CrawlSummary) AddDownload(o DownloadOutcome) {
	if o.Success {
		s.ImagesSaved++
	} else {
		s.ImagesFailed++
	}
	s.Downloads = append(s.Downloads, o)
}

// Finish stamps the end time.
func (s *CrawlSummary) Finish() {
	s.FinishedAt = time.Now()
}

// Duration returns how long the crawl took, or zero if it has not finished.
func (s *CrawlSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// SavedPaths returns the paths of all successfully saved images.
func (s *CrawlSummary) SavedPaths() []string {
	paths := make([]string, 0, s.ImagesSaved)
	for _, d := range s.Downloads {
		if d.Success {
			paths = append(paths, d.Path)
		}
	}
	return paths
}
