package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/spider/internal/model"
)

// defaultWorkers bounds concurrent page visits and, separately, concurrent
// image downloads.
const defaultWorkers = 8

// Spider crawls a site from a starting page, following same-origin links
// up to a depth budget and downloading the images it finds on the way.
//
// A Spider holds no per-crawl state; every call to Crawl starts with a
// fresh visited set, so one Spider can run several crawls.
type Spider struct {
	fetcher    PageFetcher
	downloader AssetDownloader
	extractor  *ImageExtractor

	// workers bounds concurrent page visits and concurrent downloads.
	workers int

	// maxPages caps the number of pages fetched, origin included.
	// 0 means no cap.
	maxPages int

	ignorePatterns []string
	followPatterns []string

	out    io.Writer
	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithWorkers sets how many pages are fetched at once. The same number of
// downloads may run alongside.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMaxPages sets the maximum number of pages to fetch. 0 disables the cap.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		if maxPages >= 0 {
			s.maxPages = maxPages
		}
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts crawling to URL paths matching at least one
// pattern. An empty slice allows every path.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithOutput sets where progress lines are written.
// Pass the same Console given to the Downloader so lines never interleave.
func WithOutput(w io.Writer) SpiderOption {
	return func(s *Spider) {
		if w != nil {
			s.out = w
		}
	}
}

// WithLogger sets the logger for diagnostics.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider that fetches pages with fetcher and saves
// images with downloader.
func NewSpider(fetcher PageFetcher, downloader AssetDownloader, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:    fetcher,
		downloader: downloader,
		workers:    defaultWorkers,
		out:        io.Discard,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, ok := s.out.(*Console); !ok {
		s.out = NewConsole(s.out)
	}
	s.extractor = NewImageExtractor(s.out)
	return s
}

// queueItem is a frontier entry: a URL and the hops still allowed from it.
type queueItem struct {
	url       string
	remaining int
}

// crawlState is the state of one crawl. The summary is guarded by mu;
// pages and assets lock themselves.
type crawlState struct {
	req    model.CrawlRequest
	filter *LinkFilter

	pages  *VisitedSet
	assets *VisitedSet

	downloads *semaphore.Weighted
	wg        sync.WaitGroup

	mu      sync.Mutex
	summary *model.CrawlSummary
}

// newCrawlState creates the state for one crawl, with fresh visited sets.
func (s *Spider) newCrawlState(req model.CrawlRequest) *crawlState {
	return &crawlState{
		req:       req,
		filter:    NewLinkFilter(req.Origin(), s.ignorePatterns, s.followPatterns),
		pages:     NewVisitedSet(),
		assets:    NewVisitedSet(),
		downloads: semaphore.NewWeighted(int64(s.workers)),
		summary:   model.NewCrawlSummary(req),
	}
}

func (st *crawlState) update(fn func(*model.CrawlSummary)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(st.summary)
}

func (st *crawlState) record(o model.DownloadOutcome) {
	st.update(func(s *model.CrawlSummary) { s.AddDownload(o) })
}

// Crawl runs one crawl described by req.
//
// The starting page is always fetched and its images downloaded. In
// recursive mode its same-origin links are then visited with a budget of
// req.MaxDepth() hops; each visit passes one hop less to the links it
// finds, and a link with no hops left or already visited is dropped.
//
// An error is returned only when the starting page cannot be fetched.
// Failed pages and downloads are recorded in the summary. When ctx is
// cancelled no new work is started, in-flight work is drained and the
// summary is marked as timed out.
func (s *Spider) Crawl(ctx context.Context, req model.CrawlRequest) (*model.CrawlSummary, error) {
	st := s.newCrawlState(req)

	startURL := req.URL().String()
	st.pages.Claim(startURL)

	page, err := s.fetcher.Fetch(ctx, startURL)
	if err != nil {
		fmt.Fprintf(s.out, "Error: Unable to connect to %s\n", startURL)
		s.logger.Debug("origin fetch failed", "url", startURL, "error", err)
		st.summary.PagesFailed++
		st.summary.TimedOut = ctx.Err() != nil
		st.summary.Error = err.Error()
		st.summary.Finish()
		return st.summary, fmt.Errorf("%w: %s: %w", ErrOriginUnreachable, startURL, err)
	}

	fmt.Fprintf(s.out, "page status code is %d\n", page.StatusCode)
	st.update(func(sum *model.CrawlSummary) { sum.OriginStatus = page.StatusCode })

	var frontier []queueItem
	if page.OK() {
		if page.Redirected() {
			st.pages.Claim(page.FinalURL)
		}
		st.update(func(sum *model.CrawlSummary) { sum.PagesVisited++ })
		links := s.processPage(ctx, st, page)
		frontier = queueItems(links, req.MaxDepth())
	} else {
		s.logger.Info("origin returned non-OK status", "url", startURL, "status", page.StatusCode)
		st.update(func(sum *model.CrawlSummary) { sum.PagesFailed++ })
	}

	if req.Recursive() {
		fmt.Fprintln(s.out, "Starting recursive ...")
		s.run(ctx, st, frontier)
	}

	st.wg.Wait()

	if err := ctx.Err(); err != nil {
		st.summary.TimedOut = true
		st.summary.Error = err.Error()
		s.logger.Warn("crawl stopped early", "reason", err)
	}
	st.summary.Finish()

	return st.summary, nil
}

// run serves the frontier with a bounded pool of page visits.
// Only this goroutine touches the frontier; visits hand back the items
// they discover over results, so no worker ever blocks on a full queue.
func (s *Spider) run(ctx context.Context, st *crawlState, frontier []queueItem) {
	results := make(chan []queueItem)

	var g errgroup.Group
	g.SetLimit(s.workers)

	inflight := 0
	launched := 1 // the starting page

	for {
		for len(frontier) > 0 && inflight < s.workers && ctx.Err() == nil {
			if s.maxPages > 0 && launched >= s.maxPages {
				s.logger.Info("page limit reached", "max_pages", s.maxPages)
				frontier = nil
				break
			}

			item := frontier[0]
			frontier = frontier[1:]

			if item.remaining <= 0 || !st.pages.Claim(item.url) {
				continue
			}

			launched++
			inflight++
			g.Go(func() error {
				results <- s.visit(ctx, st, item)
				return nil
			})
		}

		if inflight == 0 {
			break
		}

		items := <-results
		inflight--
		frontier = append(frontier, items...)
	}

	_ = g.Wait()
}

// visit fetches one claimed page and returns the links to enqueue.
func (s *Spider) visit(ctx context.Context, st *crawlState, item queueItem) []queueItem {
	fmt.Fprintf(s.out, "Crawling %s (depth %d)\n", item.url, item.remaining)

	page, err := s.fetcher.Fetch(ctx, item.url)
	if err != nil {
		s.logger.Warn("failed to fetch page", "url", item.url, "error", err)
		st.update(func(sum *model.CrawlSummary) { sum.PagesFailed++ })
		return nil
	}
	if !page.OK() {
		s.logger.Info("page returned non-OK status", "url", item.url, "status", page.StatusCode)
		st.update(func(sum *model.CrawlSummary) { sum.PagesFailed++ })
		return nil
	}
	if !s.acceptRedirect(st, page) {
		return nil
	}

	st.update(func(sum *model.CrawlSummary) { sum.PagesVisited++ })
	links := s.processPage(ctx, st, page)
	return queueItems(links, item.remaining-1)
}

// acceptRedirect re-checks a redirected page: the final URL must stay on
// the crawl origin and must not have been visited already.
func (s *Spider) acceptRedirect(st *crawlState, page *model.PageResult) bool {
	if !page.Redirected() || NormalizeURL(page.FinalURL) == NormalizeURL(page.URL) {
		return true
	}

	final, err := url.Parse(page.FinalURL)
	if err != nil || !st.filter.InScope(final) {
		s.logger.Info("redirect leaves crawl origin", "url", page.URL, "final_url", page.FinalURL)
		return false
	}
	if !st.pages.Claim(page.FinalURL) {
		s.logger.Debug("redirect target already visited", "url", page.URL, "final_url", page.FinalURL)
		return false
	}
	return true
}

// processPage extracts and downloads the images of page and returns its
// accepted links.
func (s *Spider) processPage(ctx context.Context, st *crawlState, page *model.PageResult) []*url.URL {
	base, err := page.BaseURL()
	if err != nil {
		s.logger.Debug("invalid page URL", "url", page.URL, "error", err)
		return nil
	}

	doc, err := ParseDocument(bytes.NewReader(page.Body))
	if err != nil {
		s.logger.Debug("failed to parse page", "url", page.URL, "error", err)
		return nil
	}

	sources := s.extractor.Extract(doc)
	st.update(func(sum *model.CrawlSummary) { sum.ImagesFound += len(sources) })
	s.dispatchDownloads(ctx, st, base, sources)

	links := make([]*url.URL, 0)
	for _, href := range doc.FindAll("a", "href") {
		if u, ok := st.filter.Accept(base, href); ok {
			links = append(links, u)
		}
	}
	return links
}

// dispatchDownloads starts one download per image not yet seen in this
// crawl, at most s.workers at a time. It stops dispatching once ctx is done.
func (s *Spider) dispatchDownloads(ctx context.Context, st *crawlState, base *url.URL, sources []string) {
	for _, src := range sources {
		ref := model.ImageReference{Source: src, Page: base}
		u, err := ref.Resolve()
		if err != nil {
			o := model.Failed(src, fmt.Errorf("invalid image URL: %w", err))
			o.PageURL = base.String()
			fmt.Fprintf(s.out, "Failed %s: %s\n", src, o.Reason)
			st.record(o)
			continue
		}

		if !st.assets.Claim(u.String()) {
			continue
		}

		if err := st.downloads.Acquire(ctx, 1); err != nil {
			return
		}
		st.wg.Add(1)
		go func() {
			defer st.wg.Done()
			defer st.downloads.Release(1)

			o := s.downloader.Download(ctx, u, st.req.OutputDir())
			o.PageURL = base.String()
			st.record(o)
		}()
	}
}

func queueItems(links []*url.URL, remaining int) []queueItem {
	items := make([]queueItem, 0, len(links))
	for _, u := range links {
		items = append(items, queueItem{url: u.String(), remaining: remaining})
	}
	return items
}
