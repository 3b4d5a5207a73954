// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

// maxSourceFile caps how much of a single archive member is read.
const maxSourceFile = 100 << 20

const documentClass = `\documentclass`

// SourceExtractor parses the author-uploaded TeX bundle from the e-print
// endpoint. Bundles are usually gzipped tar archives; a lone gzipped TeX
// file is accepted too.
type SourceExtractor struct {
	fetcher Fetcher
	baseURL string
}

// NewSourceExtractor returns a SourceExtractor that fetches from baseURL
// (DefaultSourceURL when empty).
func NewSourceExtractor(f Fetcher, baseURL string) *SourceExtractor {
	return &SourceExtractor{fetcher: f, baseURL: endpoint(baseURL, DefaultSourceURL)}
}

// Name returns "source".
func (e *SourceExtractor) Name() string { return "source" }

// Format returns types.FormatSource.
func (e *SourceExtractor) Format() types.Format { return types.FormatSource }

// Extract downloads the bundle, locates the first .tex file that declares
// a document class and parses it. A bundle without one yields
// Success false.
func (e *SourceExtractor) Extract(ctx context.Context, arxivID string) (Content, error) {
	data, err := e.fetcher.Fetch(ctx, e.baseURL+arxivID)
	if err != nil {
		return Content{}, err
	}

	main, err := findMainTeX(data)
	if err != nil {
		return Content{}, err
	}
	if main == "" {
		return Content{Format: types.FormatSource, Reason: "no main TeX file found"}, nil
	}

	doc := ParseTeX(main)
	return Content{
		Format:       types.FormatSource,
		Success:      true,
		MainText:     doc.MainText,
		Sections:     doc.Sections,
		Figures:      doc.Figures,
		Equations:    doc.Equations,
		Bibliography: doc.Bibliography,
	}, nil
}

// findMainTeX returns the contents of the main TeX file in an e-print
// payload, or "" when there is none.
func findMainTeX(data []byte) (string, error) {
	payload, err := maybeGunzip(data)
	if err != nil {
		return "", err
	}

	tr := tar.NewReader(bytes.NewReader(payload))
	hdr, err := tr.Next()
	if err != nil {
		// Not an archive: the payload is a single TeX file.
		if s := string(payload); strings.Contains(s, documentClass) {
			return s, nil
		}
		return "", nil
	}

	for ; ; hdr, err = tr.Next() {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("reading source archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, ".tex") {
			continue
		}
		body, err := io.ReadAll(io.LimitReader(tr, maxSourceFile))
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", hdr.Name, err)
		}
		if s := string(body); strings.Contains(s, documentClass) {
			return s, nil
		}
	}
}

// maybeGunzip decompresses data when it carries the gzip magic bytes and
// returns it unchanged otherwise.
func maybeGunzip(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, maxSourceFile))
	if err != nil {
		return nil, fmt.Errorf("decompressing source: %w", err)
	}
	return out, nil
}
