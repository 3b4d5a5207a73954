// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest drives the daily import: list each configured category
// for every day since the last import, extract and file each new article,
// then embed its abstract and upsert it into the vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/arxiv-indexer/internal/extract"
	"github.com/pdiddy/arxiv-indexer/internal/harvest"
	"github.com/pdiddy/arxiv-indexer/internal/registry"
	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

// ErrNoWatermark is returned when no start date is given and the vector
// store holds no articles to resume from.
var ErrNoWatermark = errors.New("no import watermark: vector store is empty, give an explicit start date")

// Lister lists the papers submitted on one day in one category.
type Lister interface {
	List(ctx context.Context, day time.Time, category string) ([]harvest.Entry, error)
}

// Extractor produces article content with format fallback.
type Extractor interface {
	Extract(ctx context.Context, arxivID string) (extract.Result, error)
}

// Embedder turns abstracts into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the part of the vector store the driver writes to.
type Store interface {
	Upsert(ctx context.Context, articles []types.Article, vectors [][]float32) error
	UpsertOne(ctx context.Context, a *types.Article, vector []float32) error
	LatestImportWatermark(ctx context.Context) (time.Time, bool, error)
}

// indexBatch caps the articles embedded and upserted per bulk call.
const indexBatch = 64

// Driver runs imports. All fields except Now are required.
type Driver struct {
	Lister     Lister
	Extractor  Extractor
	Registry   *registry.Registry
	Embedder   Embedder
	Store      Store
	Categories []string

	// Out receives one progress line per article and the run summary.
	Out io.Writer

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// Summary counts the outcome of one run.
type Summary struct {
	RunID      string    `yaml:"run_id" json:"run_id"`
	Start      time.Time `yaml:"start" json:"start"`
	End        time.Time `yaml:"end" json:"end"`
	Days       int       `yaml:"days" json:"days"`
	FailedDays int       `yaml:"failed_days" json:"failed_days"`
	Imported   int       `yaml:"imported" json:"imported"`
	Reused     int       `yaml:"reused" json:"reused"`
	Failed     int       `yaml:"failed" json:"failed"`
	FailedIDs  []string  `yaml:"failed_ids,omitempty" json:"failed_ids,omitempty"`
}

// Total returns the number of articles processed.
func (s Summary) Total() int {
	return s.Imported + s.Reused + s.Failed
}

// HasFailures reports whether any day or article failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0 || s.FailedDays > 0
}

func (d *Driver) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Driver) out() io.Writer {
	if d.Out != nil {
		return d.Out
	}
	return io.Discard
}

// Run imports every day in [start, today) in UTC. start is since when
// given, otherwise the day after the store's watermark. A failed day is
// logged and skipped, never retried; a failed article is logged and
// skipped without aborting its day. Run returns early only on context
// cancellation or when no start can be determined.
func (d *Driver) Run(ctx context.Context, since *time.Time) (Summary, error) {
	start, err := d.startDay(ctx, since)
	if err != nil {
		return Summary{}, err
	}
	today := truncateDay(d.now())

	s := Summary{RunID: uuid.NewString(), Start: start, End: today}
	log := slog.With("run", s.RunID)
	log.Info("import started", "start", start.Format(time.DateOnly), "end", today.Format(time.DateOnly),
		"categories", strings.Join(d.Categories, ","))

	w := d.out()
	for day := start; day.Before(today); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			d.printSummary(&s)
			return s, err
		}
		s.Days++
		if err := d.importDay(ctx, log, day, &s); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				d.printSummary(&s)
				return s, ctxErr
			}
			s.FailedDays++
			fmt.Fprintf(w, "failed day: %s (%v)\n", day.Format(time.DateOnly), err)
			log.Error("day failed", "day", day.Format(time.DateOnly), "error", err)
		}
	}

	d.printSummary(&s)
	log.Info("import finished", "imported", s.Imported, "reused", s.Reused,
		"failed", s.Failed, "failed_days", s.FailedDays)
	return s, nil
}

func (d *Driver) startDay(ctx context.Context, since *time.Time) (time.Time, error) {
	if since != nil {
		return truncateDay(*since), nil
	}
	wm, ok, err := d.Store.LatestImportWatermark(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading import watermark: %w", err)
	}
	if !ok {
		return time.Time{}, ErrNoWatermark
	}
	return truncateDay(wm).AddDate(0, 0, 1), nil
}

func (d *Driver) printSummary(s *Summary) {
	fmt.Fprintf(d.out(), "\nImport summary: %d imported, %d reused, %d failed (total: %d) over %d days, %d days failed\n",
		s.Imported, s.Reused, s.Failed, s.Total(), s.Days, s.FailedDays)
}

// importDay lists every category for day, prepares each article, then
// indexes the prepared articles in bulk. A listing error fails the whole
// day.
func (d *Driver) importDay(ctx context.Context, log *slog.Logger, day time.Time, s *Summary) error {
	var entries []harvest.Entry
	for _, cat := range d.Categories {
		listed, err := d.Lister.List(ctx, day, cat)
		if err != nil {
			return fmt.Errorf("listing %s: %w", cat, err)
		}
		entries = append(entries, listed...)
	}
	entries = DedupeByID(entries)
	log.Info("day listed", "day", day.Format(time.DateOnly), "articles", len(entries))

	w := d.out()
	fail := func(id string, err error) {
		s.Failed++
		s.FailedIDs = append(s.FailedIDs, id)
		fmt.Fprintf(w, "failed:  %s (%v)\n", id, err)
		log.Warn("article failed", "id", id, "day", day.Format(time.DateOnly), "error", err)
	}

	var ready []prepared
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := d.prepare(ctx, e)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fail(e.ArxivID, err)
			continue
		}
		ready = append(ready, p)
	}

	for start := 0; start < len(ready); start += indexBatch {
		chunk := ready[start:min(start+indexBatch, len(ready))]
		errs := d.index(ctx, log, chunk)
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, p := range chunk {
			id := p.article.ArxivID
			switch {
			case errs[i] != nil:
				fail(id, errs[i])
			case p.reused:
				s.Reused++
				fmt.Fprintf(w, "reused:  %s\n", id)
			default:
				s.Imported++
				fmt.Fprintf(w, "imported: %s\n", id)
			}
		}
	}
	return nil
}

// prepared is a filed article reloaded from the registry, ready to index.
type prepared struct {
	article *types.Article
	reused  bool
}

// prepare files e, extracts it unless an article.json already exists, and
// reloads the persisted copy. The reloaded article is what gets embedded so
// the index always matches the file.
func (d *Driver) prepare(ctx context.Context, e harvest.Entry) (prepared, error) {
	dir, err := d.Registry.File(registry.Record{
		ArxivID:    e.ArxivID,
		Published:  e.Published,
		Categories: e.Categories,
	})
	if err != nil {
		return prepared{}, fmt.Errorf("filing: %w", err)
	}

	var reused bool
	path := filepath.Join(dir, registry.ArticleFile)
	if _, statErr := os.Stat(path); statErr == nil {
		reused = true
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return prepared{}, fmt.Errorf("checking %s: %w", path, statErr)
	} else {
		article, err := d.build(ctx, e)
		if err != nil {
			return prepared{}, err
		}
		if _, err := d.Registry.Save(dir, article); err != nil {
			return prepared{}, fmt.Errorf("saving: %w", err)
		}
	}

	article, err := d.Registry.Load(path)
	if err != nil {
		return prepared{}, fmt.Errorf("reloading: %w", err)
	}
	if strings.TrimSpace(article.Abstract) == "" {
		return prepared{}, fmt.Errorf("no abstract to embed")
	}
	return prepared{article: article, reused: reused}, nil
}

// index embeds and upserts chunk with one call each and returns a per-article
// error slice. When a bulk call fails the chunk is retried one article at a
// time, so a single bad article fails alone.
func (d *Driver) index(ctx context.Context, log *slog.Logger, chunk []prepared) []error {
	errs := make([]error, len(chunk))
	texts := make([]string, len(chunk))
	for i, p := range chunk {
		texts[i] = p.article.Abstract
	}

	vectors, err := d.Embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) != len(chunk) {
		err = fmt.Errorf("got %d vectors for %d abstracts", len(vectors), len(chunk))
	}
	if err != nil {
		log.Warn("batch embedding failed, embedding one by one", "articles", len(chunk), "error", err)
		vectors = nil
	} else {
		articles := make([]types.Article, len(chunk))
		for i, p := range chunk {
			articles[i] = *p.article
		}
		if err = d.Store.Upsert(ctx, articles, vectors); err == nil {
			return errs
		}
		log.Warn("bulk upsert failed, indexing one by one", "articles", len(chunk), "error", err)
	}

	for i, p := range chunk {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		var vector []float32
		if vectors != nil {
			vector = vectors[i]
		} else {
			v, err := d.Embedder.Embed(ctx, p.article.Abstract)
			if err != nil {
				errs[i] = fmt.Errorf("embedding: %w", err)
				continue
			}
			vector = v
		}
		if err := d.Store.UpsertOne(ctx, p.article, vector); err != nil {
			errs[i] = fmt.Errorf("indexing: %w", err)
		}
	}
	return errs
}

// build extracts content for e and merges it with the listing metadata.
// Listing metadata wins; page metadata fills gaps.
func (d *Driver) build(ctx context.Context, e harvest.Entry) (*types.Article, error) {
	published, err := registry.ParsePublished(e.Published)
	if err != nil {
		return nil, err
	}
	res, err := d.Extractor.Extract(ctx, e.ArxivID)
	if err != nil {
		return nil, err
	}
	c := res.Content

	a := &types.Article{
		ArxivID:      e.ArxivID,
		Title:        e.Title,
		Authors:      e.Authors,
		Abstract:     e.Abstract,
		Categories:   e.Categories,
		Format:       c.Format,
		Sections:     c.Sections,
		MainText:     c.MainText,
		Figures:      c.Figures,
		Equations:    c.Equations,
		Bibliography: c.Bibliography,
		Comments:     c.Comments,
		Subjects:     c.Subjects,
		Published:    published,
		ProcessedAt:  d.now().UTC().Truncate(time.Second),
	}
	if a.Title == "" {
		a.Title = c.Title
	}
	if len(a.Authors) == 0 {
		a.Authors = c.Authors
	}
	if a.Abstract == "" && c.Format == types.FormatPage {
		a.Abstract = c.MainText
	}
	return a, nil
}

// DedupeByID keeps the first entry for each identifier, preserving order.
func DedupeByID(entries []harvest.Entry) []harvest.Entry {
	seen := make(map[string]bool, len(entries))
	out := make([]harvest.Entry, 0, len(entries))
	for _, e := range entries {
		if seen[e.ArxivID] {
			continue
		}
		seen[e.ArxivID] = true
		out = append(out, e)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
