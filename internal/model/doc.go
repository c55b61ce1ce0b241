// Package model defines the data structures shared by the crawler,
// the report writers and the history database.
//
// This package contains the following main types:
//   - Origin: the scheme/host/port identity that scopes a crawl
//   - CrawlRequest: the immutable description of one crawl
//   - PageResult: a fetched page
//   - ImageReference and DownloadOutcome: images found and their fate
//   - CrawlSummary: the per-crawl result used for reporting
//
// The models are serializable to JSON for report output and database storage.
package model
