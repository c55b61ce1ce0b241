// Package report renders crawl summaries and crawl history.
//
// Writers for each output format:
//   - SimpleWriter: human-readable text for terminal display
//   - MarkdownWriter: Markdown with tables, a mermaid chart and alerts
//   - JSONWriter: structured JSON for tool integration
//
// All writers implement Writer and can be composed with MultiWriter.
package report
