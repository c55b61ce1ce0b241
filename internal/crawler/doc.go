// Package crawler implements the image crawl: fetching pages, selecting
// image references, following same-origin links and saving images.
//
// # Components
//
//   - Spider: coordinates one crawl over an explicit frontier of
//     (URL, remaining hops) items served by a bounded pool of workers
//   - HTTPFetcher: fetches page markup and reports the post-redirect URL
//   - Document: parsed HTML supporting "all elements of tag X with attribute Y"
//   - ImageExtractor: keeps <img src> values with an allow-listed extension
//   - LinkFilter: accepts links resolving to the crawl origin
//   - VisitedSet: claim-once set of normalized URLs
//   - Downloader: saves one image per URL into the output directory
//
// # Depth
//
// The starting page is always fetched. In recursive mode its links start
// with a budget of MaxDepth hops; every followed link passes one hop less
// to the links it finds, and links reaching zero are dropped. A depth of 1
// therefore fetches the starting page and the pages it links to.
//
// # Concurrency
//
// Page visits run on an errgroup limited to the worker count, and image
// downloads share a semaphore of the same width. Only the dispatching
// goroutine touches the frontier. Once the crawl context is done, no new
// page or download is started; downloads already running finish under
// their own timeout.
//
// # Usage
//
//	console := crawler.NewConsole(os.Stdout)
//	fetcher := crawler.NewHTTPFetcher(client)
//	downloader := crawler.NewDownloader(client, crawler.WithDownloadOutput(console))
//	spider := crawler.NewSpider(fetcher, downloader, crawler.WithOutput(console))
//	summary, err := spider.Crawl(ctx, req)
package crawler
