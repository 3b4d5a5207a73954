// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the arxiv-indexer pipeline:
// the Article record persisted in the registry and the vector store, search
// results, and the configuration blocks for each stage.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Format identifies which representation of a paper produced its content.
type Format string

const (
	// FormatSource is the author-uploaded TeX source bundle.
	FormatSource Format = "tex"
	// FormatDocument is the rendered PDF.
	FormatDocument Format = "pdf"
	// FormatPage is the HTML abstract page.
	FormatPage Format = "html"
)

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	switch f {
	case FormatSource, FormatDocument, FormatPage:
		return true
	}
	return false
}

// TimestampLayout is the wire form of Article timestamps: UTC, second
// precision, trailing Z.
const TimestampLayout = "2006-01-02T15:04:05Z"

// BibEntry is one bibliography item: the citation key and its raw text.
type BibEntry struct {
	Key  string `json:"key" yaml:"key"`
	Text string `json:"text" yaml:"text"`
}

// Article is the normalized record for one paper. Identity and metadata
// (ArxivID, Published, Categories) are set when the paper is first listed;
// the content fields are filled once by extraction.
type Article struct {
	// ArxivID is the arXiv identifier, possibly with a version suffix
	// (e.g. "2401.12345v2").
	ArxivID string `json:"arxiv_id" yaml:"arxiv_id"`

	Title    string   `json:"title" yaml:"title"`
	Authors  []string `json:"authors" yaml:"authors"`
	Abstract string   `json:"abstract" yaml:"abstract"`

	// Categories lists subject categories, primary first (e.g. "cs.AI").
	Categories []string `json:"categories" yaml:"categories"`

	// Format records which extractor produced the content fields.
	Format Format `json:"format" yaml:"format"`

	Sections     []string   `json:"sections" yaml:"sections"`
	MainText     string     `json:"main_text" yaml:"main_text"`
	Figures      []string   `json:"figures" yaml:"figures"`
	Equations    []string   `json:"equations" yaml:"equations"`
	Bibliography []BibEntry `json:"bibliography" yaml:"bibliography"`

	// Comments is the free-text comments field from the abstract page
	// (page counts, venue notes). Empty for most sources.
	Comments string `json:"comments,omitempty" yaml:"comments,omitempty"`

	// Subjects are the display subject names from the abstract page
	// (e.g. "Machine Learning (cs.LG)").
	Subjects []string `json:"subjects,omitempty" yaml:"subjects,omitempty"`

	Published   time.Time `json:"published" yaml:"published"`
	ProcessedAt time.Time `json:"processed_at" yaml:"processed_at"`
}

// articleJSON mirrors Article with string timestamps so the wire form
// always carries second-precision UTC values.
type articleJSON struct {
	ArxivID      string     `json:"arxiv_id"`
	Title        string     `json:"title"`
	Authors      []string   `json:"authors"`
	Abstract     string     `json:"abstract"`
	Categories   []string   `json:"categories"`
	Format       Format     `json:"format"`
	Sections     []string   `json:"sections"`
	MainText     string     `json:"main_text"`
	Figures      []string   `json:"figures"`
	Equations    []string   `json:"equations"`
	Bibliography []BibEntry `json:"bibliography"`
	Comments     string     `json:"comments,omitempty"`
	Subjects     []string   `json:"subjects,omitempty"`
	Published    string     `json:"published"`
	ProcessedAt  string     `json:"processed_at"`
}

// MarshalJSON encodes the article as a flat object with timestamps in
// TimestampLayout. Nil slices are written as empty arrays.
func (a Article) MarshalJSON() ([]byte, error) {
	return json.Marshal(articleJSON{
		ArxivID:      a.ArxivID,
		Title:        a.Title,
		Authors:      nonNil(a.Authors),
		Abstract:     a.Abstract,
		Categories:   nonNil(a.Categories),
		Format:       a.Format,
		Sections:     nonNil(a.Sections),
		MainText:     a.MainText,
		Figures:      nonNil(a.Figures),
		Equations:    nonNil(a.Equations),
		Bibliography: nonNil(a.Bibliography),
		Comments:     a.Comments,
		Subjects:     a.Subjects,
		Published:    FormatTimestamp(a.Published),
		ProcessedAt:  FormatTimestamp(a.ProcessedAt),
	})
}

// UnmarshalJSON decodes the flat object form. Timestamps may be any
// RFC 3339 value; they are normalized to UTC at second precision.
func (a *Article) UnmarshalJSON(data []byte) error {
	var raw articleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	published, err := ParseTimestamp(raw.Published)
	if err != nil {
		return fmt.Errorf("published: %w", err)
	}
	processed, err := ParseTimestamp(raw.ProcessedAt)
	if err != nil {
		return fmt.Errorf("processed_at: %w", err)
	}
	*a = Article{
		ArxivID:      raw.ArxivID,
		Title:        raw.Title,
		Authors:      raw.Authors,
		Abstract:     raw.Abstract,
		Categories:   raw.Categories,
		Format:       raw.Format,
		Sections:     raw.Sections,
		MainText:     raw.MainText,
		Figures:      raw.Figures,
		Equations:    raw.Equations,
		Bibliography: raw.Bibliography,
		Comments:     raw.Comments,
		Subjects:     raw.Subjects,
		Published:    published,
		ProcessedAt:  processed,
	}
	return nil
}

// FormatTimestamp renders t in TimestampLayout. The zero time renders as "".
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Truncate(time.Second).Format(TimestampLayout)
}

// ParseTimestamp parses an RFC 3339 timestamp and normalizes it to UTC
// at second precision. An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(time.Second), nil
}

// BaseID strips the version suffix from an arXiv identifier
// (e.g. "2401.12345v2" becomes "2401.12345"). Identifiers without a
// trailing v<digits> are returned unchanged.
func BaseID(arxivID string) string {
	i := strings.LastIndexByte(arxivID, 'v')
	if i <= 0 || i == len(arxivID)-1 {
		return arxivID
	}
	for _, r := range arxivID[i+1:] {
		if r < '0' || r > '9' {
			return arxivID
		}
	}
	return arxivID[:i]
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
