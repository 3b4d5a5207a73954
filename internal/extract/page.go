// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

// PageExtractor scrapes the HTML abstract page. It is the last resort:
// the abstract becomes the main text.
type PageExtractor struct {
	fetcher Fetcher
	baseURL string
}

// NewPageExtractor returns a PageExtractor that fetches from baseURL
// (DefaultAbsURL when empty).
func NewPageExtractor(f Fetcher, baseURL string) *PageExtractor {
	return &PageExtractor{fetcher: f, baseURL: endpoint(baseURL, DefaultAbsURL)}
}

// Name returns "page".
func (e *PageExtractor) Name() string { return "page" }

func (e *PageExtractor) Format() types.Format { return types.FormatPage }

// Extract downloads abs/<id> and reads title, authors, abstract, comments
// and subjects. The attempt succeeds only when the abstract is non-empty.
func (e *PageExtractor) Extract(ctx context.Context, arxivID string) (Content, error) {
	data, err := e.fetcher.Fetch(ctx, e.baseURL+arxivID)
	if err != nil {
		return Content{}, err
	}
	return ParsePage(data)
}

// ParsePage extracts abstract page fields from raw HTML.
func ParsePage(data []byte) (Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return Content{}, fmt.Errorf("parsing abstract page: %w", err)
	}

	c := Content{Format: types.FormatPage}

	if sel := doc.Find("h1.title").First(); sel.Length() > 0 {
		c.Title = collapse(strings.TrimPrefix(strings.TrimSpace(sel.Text()), "Title:"))
	}
	if sel := doc.Find("div.authors").First(); sel.Length() > 0 {
		raw := strings.TrimPrefix(strings.TrimSpace(sel.Text()), "Authors:")
		c.Authors = splitList(raw, ",")
	}
	if sel := doc.Find("blockquote.abstract").First(); sel.Length() > 0 {
		c.MainText = collapse(strings.TrimPrefix(strings.TrimSpace(sel.Text()), "Abstract:"))
	}
	if sel := doc.Find("td.tablecell.comments").First(); sel.Length() > 0 {
		c.Comments = collapse(sel.Text())
	}
	if sel := doc.Find("td.tablecell.subjects").First(); sel.Length() > 0 {
		c.Subjects = splitList(sel.Text(), ";")
	}

	c.Success = c.MainText != ""
	if !c.Success {
		c.Reason = "abstract page has no abstract"
	}
	return c, nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := collapse(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
