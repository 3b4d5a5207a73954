// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

// PDFConverter linearizes PDF bytes into text. convert.Converter
// satisfies it.
type PDFConverter interface {
	Convert(ctx context.Context, data []byte) (string, error)
}

// headingPrefixes are the lowercase openings treated as section headings.
var headingPrefixes = []string{"introduction", "background", "method", "conclusion", "discussion", "results"}

// DocumentExtractor pulls plain text out of the rendered PDF and guesses
// section headings line by line.
type DocumentExtractor struct {
	fetcher   Fetcher
	baseURL   string
	converter PDFConverter
}

// NewDocumentExtractor returns a DocumentExtractor that fetches from
// baseURL (DefaultPDFURL when empty) and linearizes with conv.
func NewDocumentExtractor(f Fetcher, baseURL string, conv PDFConverter) *DocumentExtractor {
	return &DocumentExtractor{fetcher: f, baseURL: endpoint(baseURL, DefaultPDFURL), converter: conv}
}

// Name returns "document".
func (e *DocumentExtractor) Name() string { return "document" }

// Format returns types.FormatDocument.
func (e *DocumentExtractor) Format() types.Format { return types.FormatDocument }

// Extract downloads <id>.pdf and converts it. A document with no
// extractable text yields Success false.
func (e *DocumentExtractor) Extract(ctx context.Context, arxivID string) (Content, error) {
	data, err := e.fetcher.Fetch(ctx, e.baseURL+arxivID+".pdf")
	if err != nil {
		return Content{}, err
	}

	text, err := e.converter.Convert(ctx, data)
	if err != nil {
		return Content{}, fmt.Errorf("converting PDF: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Content{Format: types.FormatDocument, Reason: "PDF contains no extractable text"}, nil
	}

	return Content{
		Format:   types.FormatDocument,
		Success:  true,
		MainText: text,
		Sections: DetectHeadings(text),
	}, nil
}

// DetectHeadings returns the trimmed lines of text that look like section
// headings: all-caps lines, lines numbered 1. through 5., and lines that
// open with a common section name.
func DetectHeadings(text string) []string {
	var headings []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && isHeading(line) {
			headings = append(headings, line)
		}
	}
	return headings
}

func isHeading(line string) bool {
	if isUpper(line) {
		return true
	}
	for _, p := range []string{"1.", "2.", "3.", "4.", "5."} {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	lower := strings.ToLower(line)
	for _, p := range headingPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// isUpper reports whether s has at least one cased letter and no
// lowercase letters.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
