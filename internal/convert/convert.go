// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert linearizes PDF documents into plain text with pluggable
// backends: a pure-Go reader and the poppler pdftotext tool.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

// Converter transforms PDF bytes into plain text. Page and line order are
// preserved; other layout is not.
type Converter interface {
	// Name returns the backend identifier.
	Name() string

	// Convert returns the text content of the PDF in data.
	Convert(ctx context.Context, data []byte) (string, error)
}

// New returns the converter for backend. An empty backend selects the
// native reader.
func New(backend types.PDFBackend) (Converter, error) {
	switch backend {
	case types.PDFBackendNative, "":
		return NativeConverter{}, nil
	case types.PDFBackendPdftotext:
		return NewPdftotextConverter(), nil
	default:
		return nil, fmt.Errorf("unknown PDF backend %q: use native or pdftotext", backend)
	}
}

// NativeConverter reads PDFs in-process with github.com/ledongthuc/pdf.
type NativeConverter struct{}

// Name returns "native".
func (NativeConverter) Name() string { return string(types.PDFBackendNative) }

// Convert extracts the text of every page, one output line per text line.
// Lines are rebuilt from glyph positions: a vertical move starts a new line
// and a horizontal gap inserts a space. Malformed documents that make the
// reader panic are reported as errors.
func (NativeConverter) Convert(ctx context.Context, data []byte) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("reading PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		if page := layoutText(p.Content().Text); page != "" {
			pages = append(pages, page)
		}
	}
	return strings.Join(pages, "\n"), nil
}

const (
	// lineTolerance is the vertical move, as a fraction of the font size,
	// that still counts as the same line.
	lineTolerance = 0.5
	// wordGap is the horizontal gap, as a fraction of the font size, that
	// separates two words.
	wordGap = 0.15
)

// layoutText joins positioned glyphs in content-stream order into lines.
func layoutText(glyphs []pdf.Text) string {
	var (
		lines   []string
		line    strings.Builder
		pending bool
		prev    pdf.Text
		started bool
	)
	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			lines = append(lines, s)
		}
		line.Reset()
		pending = false
	}

	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			pending = true
			continue
		}
		if started {
			size := max(prev.FontSize, g.FontSize, 1)
			switch {
			case math.Abs(g.Y-prev.Y) > lineTolerance*size:
				flush()
			case g.X-(prev.X+prev.W) > wordGap*size:
				pending = true
			}
		}
		if pending && line.Len() > 0 {
			line.WriteByte(' ')
		}
		pending = false
		line.WriteString(g.S)
		prev, started = g, true
	}
	flush()
	return strings.Join(lines, "\n")
}
