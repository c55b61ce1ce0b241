package report

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/spider/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Writer defines the interface for report output.
// Implementations render crawl summaries in various formats.
type Writer interface {
	// Write outputs the summary of one crawl.
	// Returns the number of bytes written and any error encountered.
	Write(summary *model.CrawlSummary) (int, error)

	// WriteHistory outputs a list of past crawls, newest first.
	WriteHistory(crawls []*model.CrawlSummary) (int, error)
}

// Format selects a Writer implementation.
type Format int

const (
	// FormatText is the plain text report.
	FormatText Format = iota
	// FormatMarkdown is the Markdown report.
	FormatMarkdown
	// FormatJSON is the JSON report.
	FormatJSON
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatMarkdown:
		return "markdown"
	case FormatJSON:
		return "json"
	default:
		return "text"
	}
}

// FormatFromPath picks a format from the file extension of path.
// Unknown extensions fall back to FormatText.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".json":
		return FormatJSON
	default:
		return FormatText
	}
}

// NewWriter returns the Writer for format.
func NewWriter(format Format, output io.Writer) Writer {
	switch format {
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint())
	default:
		return NewSimpleWriter(output)
	}
}

// MultiWriter writes to multiple Writers in order.
// Stops on the first error encountered.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers.
// Returns the total bytes written across all writers.
func (m *MultiWriter) Write(summary *model.CrawlSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteHistory outputs the crawl list to all configured Writers.
func (m *MultiWriter) WriteHistory(crawls []*model.CrawlSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHistory(crawls)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

const dateLayout = "2006-01-02 15:04:05 MST"

// title capitalizes fixed English labels. A Caser keeps state, so one is
// built per call.
func title(s string) string {
	return cases.Title(language.English).String(s)
}

func modeLabel(s *model.CrawlSummary) string {
	if s.Recursive {
		return title("recursive")
	}
	return title("single page")
}

func statusLabel(s *model.CrawlSummary) string {
	switch {
	case s.TimedOut:
		return title("timed out")
	case s.Error != "":
		return title("failed")
	default:
		return title("complete")
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

func formatDuration(s *model.CrawlSummary) string {
	d := s.Duration()
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

// hasMetadata reports whether any download carries EXIF data worth listing.
func hasMetadata(s *model.CrawlSummary) bool {
	for _, d := range s.Downloads {
		if !d.Metadata.IsEmpty() {
			return true
		}
	}
	return false
}

// sensitiveCount returns the number of saved images whose metadata can
// locate or identify the author.
func sensitiveCount(s *model.CrawlSummary) int {
	n := 0
	for _, d := range s.Downloads {
		if d.Metadata.IsSensitive() {
			n++
		}
	}
	return n
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
