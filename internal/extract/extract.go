// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns an arXiv paper into normalized content. Three
// extractors cover the TeX source bundle, the rendered PDF and the HTML
// abstract page; a Coordinator tries them in order and keeps the first
// successful result.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

// Default arXiv endpoints. The arXiv ID is appended to each.
const (
	DefaultSourceURL = "https://arxiv.org/e-print/"
	DefaultPDFURL    = "https://arxiv.org/pdf/"
	DefaultAbsURL    = "https://arxiv.org/abs/"
)

// Fetcher retrieves a URL body. *fetch.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor produces content for one paper from one representation.
// Each implementation handles a single format. Per Strategy pattern.
type Extractor interface {
	// Name returns the extractor identifier used in failure reports.
	Name() string

	// Format returns the representation this extractor reads.
	Format() types.Format

	// Extract fetches and parses the paper. A returned error means the
	// attempt failed outright; Content.Success false means the fetch worked
	// but produced nothing usable.
	Extract(ctx context.Context, arxivID string) (Content, error)
}

// Content is the normalized output of one extraction attempt.
type Content struct {
	Format  types.Format
	Success bool

	// Reason explains an unsuccessful attempt.
	Reason string

	MainText     string
	Sections     []string
	Figures      []string
	Equations    []string
	Bibliography []types.BibEntry

	// Page metadata, filled by the abstract page extractor only.
	Title    string
	Authors  []string
	Comments string
	Subjects []string
}

// Failure records why one extractor did not produce content.
type Failure struct {
	Extractor string
	Reason    string
}

func (f Failure) String() string {
	return f.Extractor + ": " + f.Reason
}

// ExtractionError reports that every extractor failed for a paper.
type ExtractionError struct {
	ArxivID  string
	Failures []Failure
}

func (e *ExtractionError) Error() string {
	reasons := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		reasons[i] = f.String()
	}
	return fmt.Sprintf("all extractors failed for %s: %s", e.ArxivID, strings.Join(reasons, "; "))
}

// Result is the winning content plus the failures recorded before it.
type Result struct {
	Content  Content
	Failures []Failure
}

// Coordinator tries extractors in order and returns the first success.
type Coordinator struct {
	extractors []Extractor
}

// NewCoordinator returns a Coordinator over the given extractors, tried in
// the order given.
func NewCoordinator(extractors ...Extractor) *Coordinator {
	return &Coordinator{extractors: extractors}
}

// NewDefaultCoordinator wires the standard source, document, page order
// against the endpoints in cfg. Empty endpoints fall back to the arXiv
// defaults.
func NewDefaultCoordinator(f Fetcher, cfg types.ArxivConfig, conv PDFConverter) *Coordinator {
	return NewCoordinator(
		NewSourceExtractor(f, cfg.SourceURL),
		NewDocumentExtractor(f, cfg.PDFURL, conv),
		NewPageExtractor(f, cfg.AbsURL),
	)
}

// Extract runs each extractor until one succeeds. Errors and unsuccessful
// content are both recorded as failures; when every extractor fails the
// result is an *ExtractionError listing all of them. A cancelled context
// stops the sequence immediately.
func (c *Coordinator) Extract(ctx context.Context, arxivID string) (Result, error) {
	var failures []Failure
	for _, ex := range c.extractors {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		content, err := ex.Extract(ctx, arxivID)
		switch {
		case err != nil:
			failures = append(failures, Failure{Extractor: ex.Name(), Reason: err.Error()})
		case !content.Success:
			reason := content.Reason
			if reason == "" {
				reason = "no usable content"
			}
			failures = append(failures, Failure{Extractor: ex.Name(), Reason: reason})
		default:
			if content.Format == "" {
				content.Format = ex.Format()
			}
			return Result{Content: content, Failures: failures}, nil
		}
	}
	return Result{}, &ExtractionError{ArxivID: arxivID, Failures: failures}
}

func endpoint(base, fallback string) string {
	if base == "" {
		return fallback
	}
	return base
}
