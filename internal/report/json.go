package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/spider/internal/model"
)

// JSONWriter renders crawl summaries as JSON for other tools to consume.
// Output is compact unless an indent is configured.
type JSONWriter struct {
	baseWriter

	prefix string
	indent string

	// version, when set, wraps summaries in a JSONReport envelope.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent formats the output over several lines, starting each line
// with prefix and nesting levels with indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix, w.indent = prefix, indent
	}
}

// WithPrettyPrint indents the output with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion wraps every summary in a JSONReport carrying version.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter returns a JSONWriter writing to output.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is a crawl summary with the version of the tool that produced it.
type JSONReport struct {
	Version string              `json:"version"`
	Summary *model.CrawlSummary `json:"summary"`
}

// Write outputs one summary, enveloped when a version is set.
func (w *JSONWriter) Write(summary *model.CrawlSummary) (int, error) {
	if w.version == "" {
		return w.encode(summary)
	}
	return w.encode(JSONReport{Version: w.version, Summary: summary})
}

// WriteHistory outputs the crawl list as a JSON array; nil becomes [].
func (w *JSONWriter) WriteHistory(crawls []*model.CrawlSummary) (int, error) {
	if crawls == nil {
		crawls = []*model.CrawlSummary{}
	}
	return w.encode(crawls)
}

// encode writes v followed by a newline. URLs keep their '&' and '<'
// characters unescaped.
func (w *JSONWriter) encode(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.prefix != "" || w.indent != "" {
		enc.SetIndent(w.prefix, w.indent)
	}
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
