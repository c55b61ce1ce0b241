package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/spider/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the crawl summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.CrawlSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeImages(md, summary)
	w.writeDownloads(md, summary)
	w.writeMetadata(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteHistory outputs a table of past crawls.
func (w *MarkdownWriter) WriteHistory(crawls []*model.CrawlSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl History")
	md.PlainText("")

	if len(crawls) == 0 {
		md.PlainText("No crawls recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(crawls))
	for i, c := range crawls {
		rows[i] = []string{
			strconv.FormatInt(c.ID, 10),
			formatDate(c.StartedAt),
			"`" + c.Origin + "`",
			modeLabel(c),
			strconv.Itoa(c.PagesVisited),
			strconv.Itoa(c.ImagesSaved),
			strconv.Itoa(c.ImagesFailed),
			statusLabel(c),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Origin", "Mode", "Pages", "Saved", "Failed", "Status"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.CrawlSummary) {
	md.H1("Spider Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Origin", "`" + s.Origin + "`"},
			{"Mode", modeLabel(s)},
			{"Max Depth", strconv.Itoa(s.MaxDepth)},
			{"Output Directory", "`" + s.OutputDir + "`"},
			{"Started", formatDate(s.StartedAt)},
			{"Duration", formatDuration(s)},
			{"Origin Status", strconv.Itoa(s.OriginStatus)},
			{"Pages Visited", strconv.Itoa(s.PagesVisited)},
			{"Pages Failed", strconv.Itoa(s.PagesFailed)},
			{"Status", w.statusText(s)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) statusText(s *model.CrawlSummary) string {
	switch {
	case s.TimedOut:
		return "⚠️ " + statusLabel(s) + " (partial results)"
	case s.Error != "":
		return "❌ " + statusLabel(s) + " - " + s.Error
	default:
		return "✅ " + statusLabel(s)
	}
}

// writeImages writes the image counters, chart and alert.
func (w *MarkdownWriter) writeImages(md *markdown.Markdown, s *model.CrawlSummary) {
	md.H2("Images")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Found", "Saved", "Failed"},
		Rows: [][]string{
			{strconv.Itoa(s.ImagesFound), strconv.Itoa(s.ImagesSaved), strconv.Itoa(s.ImagesFailed)},
		},
	})
	md.PlainText("")

	if s.ImagesSaved+s.ImagesFailed > 0 {
		w.writePieChart(md, s)
	}

	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of download results.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.CrawlSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Download Results"),
		piechart.WithShowData(true),
	)

	if s.ImagesSaved > 0 {
		chart.LabelAndIntValue("Saved", uint64(s.ImagesSaved))
	}
	if s.ImagesFailed > 0 {
		chart.LabelAndIntValue("Failed", uint64(s.ImagesFailed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes the most important alert for the crawl.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.CrawlSummary) {
	sensitive := sensitiveCount(s)

	switch {
	case sensitive > 0:
		md.Cautionf(
			"%d image(s) carry GPS coordinates or identifying EXIF data.",
			sensitive,
		)
	case s.TimedOut:
		md.Warningf(
			"The crawl stopped before the frontier was exhausted. %d page(s) were visited.",
			s.PagesVisited,
		)
	case s.ImagesFailed > 0:
		md.Importantf(
			"%d of %d download(s) failed.",
			s.ImagesFailed, s.ImagesSaved+s.ImagesFailed,
		)
	case s.ImagesSaved == 0:
		md.Note("No images were saved.")
	default:
		md.Tip("All images were saved.")
	}
	md.PlainText("")
}

// writeDownloads writes one table row per download attempt.
func (w *MarkdownWriter) writeDownloads(md *markdown.Markdown, s *model.CrawlSummary) {
	md.H2("Downloads")
	md.PlainText("")

	if len(s.Downloads) == 0 {
		md.PlainText("No images were downloaded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Downloads))
	for i, d := range s.Downloads {
		result := "✅ `" + d.Path + "`"
		size := strconv.FormatInt(d.Bytes, 10)
		if !d.Success {
			result = "❌ " + truncateString(d.Reason, 60)
			size = "-"
		}
		rows[i] = []string{
			truncateString(d.ImageURL, 60),
			result,
			size,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Image", "Result", "Bytes"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeMetadata writes EXIF details for images that carry them.
func (w *MarkdownWriter) writeMetadata(md *markdown.Markdown, s *model.CrawlSummary) {
	if !hasMetadata(s) {
		return
	}

	md.H2("Image Metadata")
	md.PlainText("")

	rows := make([][]string, 0)
	for _, d := range s.Downloads {
		m := d.Metadata
		if m.IsEmpty() {
			continue
		}
		gps := "-"
		if m.HasGPS {
			gps = m.Latitude + ", " + m.Longitude
		}
		rows = append(rows, []string{
			"`" + d.Path + "`",
			orDash(strings.TrimSpace(m.Make + " " + m.Model)),
			orDash(m.SerialNumber),
			orDash(m.Artist),
			gps,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"File", "Camera", "Serial", "Artist", "GPS"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [spider](https://github.com/nao1215/spider)*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
