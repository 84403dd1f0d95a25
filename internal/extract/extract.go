// Package extract turns a level sort page into chart entries.
//
// Each chart on a sort page is rendered by a script reference whose src ends
// in the listing script name, followed by an inline script that calls
// SORT<id>() and a comment carrying the chart title:
//
//	<script src="/03/sort.js"></script><script>SORT03075U();</script><!-- Title -->
//
// The first path segment of src and the lower-cased id form the chart's
// detail page link: {domain}/03/03075u.htm.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/JakeFAU/sdvx-chart-sync/internal/chart"
	"github.com/JakeFAU/sdvx-chart-sync/internal/logging"
)

// Reasons a script reference yields no entry.
var (
	ErrMalformedSource = errors.New("script src has fewer than two path segments")
	ErrNoInlineScript  = errors.New("no inline script follows the script reference")
	ErrNoSortCall      = errors.New("inline script has no SORT call")
	ErrNoComment       = errors.New("no comment follows the inline script")
)

var sortCall = regexp.MustCompile(`SORT(.*?)\(\);`)

// Extractor applies the sort page extraction rule.
type Extractor struct {
	domain       string
	scriptSuffix string
	logger       *zap.Logger
}

// New returns an Extractor building links under domain and selecting script
// references whose src ends with scriptSuffix.
func New(domain, scriptSuffix string, logger *zap.Logger) *Extractor {
	return &Extractor{
		domain:       strings.TrimRight(domain, "/"),
		scriptSuffix: scriptSuffix,
		logger:       logging.Named(logger, "extract"),
	}
}

// Parse builds a document from raw page HTML.
func Parse(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// EntriesFromHTML parses body and returns its entries.
func (x *Extractor) EntriesFromHTML(body []byte, level string) (iter.Seq[chart.Entry], error) {
	doc, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return x.Entries(doc, level), nil
}

// Entries lazily yields the entries of doc in document order. Script
// references that do not satisfy the rule are logged and skipped.
func (x *Extractor) Entries(doc *goquery.Document, level string) iter.Seq[chart.Entry] {
	return func(yield func(chart.Entry) bool) {
		for _, node := range doc.Find("script[src]").Nodes {
			src := attr(node, "src")
			if !strings.HasSuffix(src, x.scriptSuffix) {
				continue
			}
			entry, err := x.ExtractEntry(node, level)
			if err != nil {
				x.logger.Warn("skipping chart entry",
					zap.String("level", level),
					zap.String("src", src),
					zap.Error(err),
				)
				continue
			}
			if !yield(entry) {
				return
			}
		}
	}
}

// ExtractEntry derives one entry from a listing script reference.
func (x *Extractor) ExtractEntry(ref *html.Node, level string) (chart.Entry, error) {
	part1, err := SourceSegment(attr(ref, "src"))
	if err != nil {
		return chart.Entry{}, err
	}

	inline := nextSiblingElement(ref, "script")
	if inline == nil {
		return chart.Entry{}, ErrNoInlineScript
	}
	code := strings.TrimSpace(nodeText(inline))
	if code == "" {
		return chart.Entry{}, ErrNoInlineScript
	}

	id, err := SortID(code)
	if err != nil {
		return chart.Entry{}, err
	}

	comment := nextSiblingComment(inline)
	if comment == nil {
		return chart.Entry{}, ErrNoComment
	}

	return chart.Entry{
		Name:  strings.TrimSpace(comment.Data),
		Level: level,
		Link:  BuildLink(x.domain, part1, strings.ToLower(id)),
	}, nil
}

// SourceSegment returns the second "/"-delimited segment of a script src.
func SourceSegment(src string) (string, error) {
	parts := strings.Split(src, "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: %q", ErrMalformedSource, src)
	}
	return parts[1], nil
}

// SortID returns the identifier wrapped by the first SORT...(); call in code.
func SortID(code string) (string, error) {
	m := sortCall.FindStringSubmatch(code)
	if m == nil {
		return "", ErrNoSortCall
	}
	return m[1], nil
}

// BuildLink assembles a chart detail page URL.
func BuildLink(domain, part1, part2 string) string {
	return fmt.Sprintf("%s/%s/%s.htm", domain, part1, part2)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nextSiblingElement(n *html.Node, tag string) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == tag {
			return s
		}
	}
	return nil
}

func nextSiblingComment(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.CommentNode {
			return s
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
