package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/spider/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose lists every download instead of failures only.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the crawl summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.CrawlSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounters(&sb, summary)
	w.writeDownloads(&sb, summary)
	w.writeMetadata(&sb, summary)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteHistory outputs one line per past crawl.
func (w *SimpleWriter) WriteHistory(crawls []*model.CrawlSummary) (int, error) {
	var sb strings.Builder

	if len(crawls) == 0 {
		sb.WriteString("No crawls recorded.\n")
		return w.output.Write([]byte(sb.String()))
	}

	sb.WriteString(fmt.Sprintf("%-6s %-23s %-10s %6s %6s %6s  %s\n",
		"ID", "STARTED", "STATUS", "PAGES", "SAVED", "FAILED", "ORIGIN"))
	for _, c := range crawls {
		sb.WriteString(fmt.Sprintf("%-6d %-23s %-10s %6d %6d %6d  %s\n",
			c.ID,
			formatDate(c.StartedAt),
			statusLabel(c),
			c.PagesVisited,
			c.ImagesSaved,
			c.ImagesFailed,
			c.Origin,
		))
	}

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, name string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(name)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *model.CrawlSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         SPIDER CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Origin:         %s\n", s.Origin))
	sb.WriteString(fmt.Sprintf("Mode:           %s (max depth %d)\n", modeLabel(s), s.MaxDepth))
	sb.WriteString(fmt.Sprintf("Output:         %s\n", s.OutputDir))
	sb.WriteString(fmt.Sprintf("Started:        %s\n", formatDate(s.StartedAt)))
	sb.WriteString(fmt.Sprintf("Duration:       %s\n", formatDuration(s)))

	switch {
	case s.TimedOut:
		sb.WriteString(fmt.Sprintf("Status:         %s (partial results)\n", statusLabel(s)))
	case s.Error != "":
		sb.WriteString(fmt.Sprintf("Status:         %s - %s\n", statusLabel(s), s.Error))
	default:
		sb.WriteString(fmt.Sprintf("Status:         %s\n", statusLabel(s)))
	}

	sb.WriteString("\n")
}

// writeCounters writes the page and image counters.
func (w *SimpleWriter) writeCounters(sb *strings.Builder, s *model.CrawlSummary) {
	w.writeSection(sb, "SUMMARY")

	sb.WriteString(fmt.Sprintf("  Origin status: %d\n", s.OriginStatus))
	sb.WriteString(fmt.Sprintf("  Pages visited: %d\n", s.PagesVisited))
	sb.WriteString(fmt.Sprintf("  Pages failed:  %d\n", s.PagesFailed))
	sb.WriteString(fmt.Sprintf("  Images found:  %d\n", s.ImagesFound))
	sb.WriteString(fmt.Sprintf("  Images saved:  %d\n", s.ImagesSaved))
	sb.WriteString(fmt.Sprintf("  Images failed: %d\n", s.ImagesFailed))
	sb.WriteString("\n")
}

// writeDownloads lists failed downloads, or every download when verbose.
func (w *SimpleWriter) writeDownloads(sb *strings.Builder, s *model.CrawlSummary) {
	if s.ImagesFailed == 0 && !w.verbose && !w.showEmpty {
		return
	}

	w.writeSection(sb, "DOWNLOADS")

	written := 0
	for _, d := range s.Downloads {
		switch {
		case d.Success && w.verbose:
			sb.WriteString(fmt.Sprintf("  [+] %s -> %s (%d bytes)\n", d.ImageURL, d.Path, d.Bytes))
			written++
		case !d.Success:
			sb.WriteString(fmt.Sprintf("  [x] %s: %s\n", d.ImageURL, d.Reason))
			written++
		}
	}
	if written == 0 {
		sb.WriteString("  No downloads\n")
	}
	sb.WriteString("\n")
}

// writeMetadata lists images that carry EXIF data.
func (w *SimpleWriter) writeMetadata(sb *strings.Builder, s *model.CrawlSummary) {
	if !hasMetadata(s) {
		return
	}

	w.writeSection(sb, "IMAGE METADATA")

	for _, d := range s.Downloads {
		m := d.Metadata
		if m.IsEmpty() {
			continue
		}
		indicator := "i"
		if m.IsSensitive() {
			indicator = "!"
		}
		sb.WriteString(fmt.Sprintf("[%s] %s\n", indicator, d.Path))
		if m.Make != "" || m.Model != "" {
			sb.WriteString(fmt.Sprintf("    Camera:   %s\n", strings.TrimSpace(m.Make+" "+m.Model)))
		}
		if m.SerialNumber != "" {
			sb.WriteString(fmt.Sprintf("    Serial:   %s\n", m.SerialNumber))
		}
		if m.Artist != "" {
			sb.WriteString(fmt.Sprintf("    Artist:   %s\n", m.Artist))
		}
		if m.HasGPS {
			sb.WriteString(fmt.Sprintf("    GPS:      %s, %s\n", m.Latitude, m.Longitude))
		}
		if w.verbose && m.Software != "" {
			sb.WriteString(fmt.Sprintf("    Software: %s\n", m.Software))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by spider\n")
	sb.WriteString("https://github.com/nao1215/spider\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
