package crawler

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page.
//
// The tree is built by golang.org/x/net/html, which tolerates the malformed
// markup common on the web; selections run through goquery.
type Document struct {
	root *html.Node
	doc  *goquery.Document
}

// ParseDocument parses HTML from r.
// Malformed markup is repaired the way browsers do; an error is returned
// only when r itself fails.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{
		root: root,
		doc:  goquery.NewDocumentFromNode(root),
	}, nil
}

// FindAll returns the value of attr for every tag element that carries
// attr, in document order. Elements with the attribute present but empty
// are included with an empty value.
func (d *Document) FindAll(tag, attr string) []string {
	values := make([]string, 0)
	if d == nil || d.doc == nil {
		return values
	}

	d.doc.Find(tag + "[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr(attr)
		values = append(values, v)
	})
	return values
}

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() string {
	if d == nil || d.doc == nil {
		return ""
	}
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}
