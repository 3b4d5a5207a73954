// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest lists the papers submitted to an arXiv category on a
// given day through the Atom query API.
package harvest

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIURL is the arXiv Atom query endpoint.
const DefaultAPIURL = "https://export.arxiv.org/api/query"

// DefaultPageSize is the number of entries requested per page.
const DefaultPageSize = 1000

// Fetcher retrieves a URL body. *fetch.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Entry is the metadata for one listed paper.
type Entry struct {
	// ArxivID is the last path segment of the entry id, version included.
	ArxivID    string
	Title      string
	Authors    []string
	Published  string
	Abstract   string
	Categories []string
}

// ParseError reports an Atom response that could not be decoded.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing arXiv response from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Lister pages through the arXiv query API.
type Lister struct {
	fetcher  Fetcher
	apiURL   string
	pageSize int
}

// NewLister returns a Lister that issues requests through f. An empty
// apiURL or non-positive pageSize selects the defaults.
func NewLister(f Fetcher, apiURL string, pageSize int) *Lister {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Lister{fetcher: f, apiURL: apiURL, pageSize: pageSize}
}

// List returns every paper in category submitted on the UTC calendar day
// containing day. Pages are requested until the reported total is reached
// or a short page comes back.
func (l *Lister) List(ctx context.Context, day time.Time, category string) ([]Entry, error) {
	var entries []Entry
	for start := 0; ; start += l.pageSize {
		u := l.pageURL(day, category, start)
		body, err := l.fetcher.Fetch(ctx, u)
		if err != nil {
			return nil, err
		}

		var feed atomFeed
		if err := xml.Unmarshal(body, &feed); err != nil {
			return nil, &ParseError{URL: u, Err: err}
		}

		for _, e := range feed.Entries {
			entries = append(entries, e.toEntry())
		}

		if len(feed.Entries) < l.pageSize || (feed.TotalResults > 0 && len(entries) >= feed.TotalResults) {
			return entries, nil
		}
	}
}

func (l *Lister) pageURL(day time.Time, category string, start int) string {
	d := day.UTC().Format("20060102")
	q := fmt.Sprintf("cat:%s AND submittedDate:[%s0000 TO %s2359]", category, d, d)

	v := url.Values{}
	v.Set("search_query", q)
	v.Set("start", strconv.Itoa(start))
	v.Set("max_results", strconv.Itoa(l.pageSize))
	v.Set("sortBy", "submittedDate")
	v.Set("sortOrder", "ascending")
	return l.apiURL + "?" + v.Encode()
}

// arXiv Atom feed XML structures.
type atomFeed struct {
	TotalResults int         `xml:"http://a9.com/-/spec/opensearch/1.1/ totalResults"`
	Entries      []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

func (e atomEntry) toEntry() Entry {
	out := Entry{
		ArxivID:   idFromURL(e.ID),
		Title:     collapseSpace(e.Title),
		Published: strings.TrimSpace(e.Published),
		Abstract:  strings.TrimSpace(e.Summary),
	}
	for _, a := range e.Authors {
		out.Authors = append(out.Authors, strings.TrimSpace(a.Name))
	}
	for _, c := range e.Categories {
		if c.Term != "" {
			out.Categories = append(out.Categories, c.Term)
		}
	}
	return out
}

// idFromURL returns the last path segment of an entry id
// (e.g. "http://arxiv.org/abs/2301.07041v1" gives "2301.07041v1").
func idFromURL(idURL string) string {
	idURL = strings.TrimRight(strings.TrimSpace(idURL), "/")
	if i := strings.LastIndex(idURL, "/"); i >= 0 {
		return idURL[i+1:]
	}
	return idURL
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
