// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/arxiv-indexer/internal/extract"
	"github.com/pdiddy/arxiv-indexer/internal/harvest"
	"github.com/pdiddy/arxiv-indexer/internal/registry"
	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

type listKey struct {
	day string
	cat string
}

type fakeLister struct {
	entries map[listKey][]harvest.Entry
	errs    map[listKey]error
	calls   []listKey
}

func (f *fakeLister) List(_ context.Context, day time.Time, category string) ([]harvest.Entry, error) {
	k := listKey{day.Format(time.DateOnly), category}
	f.calls = append(f.calls, k)
	if err := f.errs[k]; err != nil {
		return nil, err
	}
	return f.entries[k], nil
}

type fakeExtractor struct {
	errs  map[string]error
	calls []string
}

func (f *fakeExtractor) Extract(_ context.Context, id string) (extract.Result, error) {
	f.calls = append(f.calls, id)
	if err := f.errs[id]; err != nil {
		return extract.Result{}, err
	}
	return extract.Result{Content: extract.Content{
		Format:   types.FormatSource,
		Success:  true,
		MainText: "Body of " + id,
		Sections: []string{"Introduction"},
		Comments: "10 pages",
		Subjects: []string{"Artificial Intelligence (cs.AI)"},
	}}, nil
}

type fakeEmbedder struct {
	texts    []string
	batches  [][]string
	batchErr error
	errs     map[string]error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if err := f.errs[text]; err != nil {
		return nil, err
	}
	f.texts = append(f.texts, text)
	return []float32{float32(len(text))}, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, texts)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		f.texts = append(f.texts, text)
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

type fakeStore struct {
	watermark time.Time
	hasMark   bool
	markErr   error
	upserted  []*types.Article
	bulkCalls int
	oneCalls  int
	bulkErr   error
	oneErrs   map[string]error
}

func (f *fakeStore) Upsert(_ context.Context, articles []types.Article, vectors [][]float32) error {
	f.bulkCalls++
	if len(articles) != len(vectors) {
		return errors.New("length mismatch")
	}
	if f.bulkErr != nil {
		return f.bulkErr
	}
	for i := range articles {
		f.upserted = append(f.upserted, &articles[i])
	}
	return nil
}

func (f *fakeStore) UpsertOne(_ context.Context, a *types.Article, _ []float32) error {
	f.oneCalls++
	if err := f.oneErrs[a.ArxivID]; err != nil {
		return err
	}
	f.upserted = append(f.upserted, a)
	return nil
}

func (f *fakeStore) LatestImportWatermark(context.Context) (time.Time, bool, error) {
	return f.watermark, f.hasMark, f.markErr
}

func entry(id, published string, cats ...string) harvest.Entry {
	return harvest.Entry{
		ArxivID:    id,
		Title:      "Title " + id,
		Authors:    []string{"A. Author"},
		Published:  published,
		Abstract:   "Abstract of " + id,
		Categories: cats,
	}
}

type harness struct {
	driver    *Driver
	lister    *fakeLister
	extractor *fakeExtractor
	embedder  *fakeEmbedder
	store     *fakeStore
	out       *bytes.Buffer
}

var fixedNow = time.Date(2024, 2, 4, 9, 30, 15, 500, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		lister:    &fakeLister{entries: map[listKey][]harvest.Entry{}, errs: map[listKey]error{}},
		extractor: &fakeExtractor{errs: map[string]error{}},
		embedder:  &fakeEmbedder{},
		store:     &fakeStore{},
		out:       &bytes.Buffer{},
	}
	h.driver = &Driver{
		Lister:     h.lister,
		Extractor:  h.extractor,
		Registry:   registry.New(t.TempDir()),
		Embedder:   h.embedder,
		Store:      h.store,
		Categories: []string{"cs.AI", "cs.LG"},
		Out:        h.out,
		Now:        func() time.Time { return fixedNow },
	}
	return h
}

func since(s string) *time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestRun_NoWatermark(t *testing.T) {
	h := newHarness(t)
	_, err := h.driver.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoWatermark)
	assert.Empty(t, h.lister.calls)
}

func TestRun_WatermarkError(t *testing.T) {
	h := newHarness(t)
	h.store.markErr = errors.New("qdrant down")
	_, err := h.driver.Run(context.Background(), nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoWatermark)
}

func TestRun_ResumesAfterWatermark(t *testing.T) {
	h := newHarness(t)
	h.store.watermark = time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	h.store.hasMark = true

	s, err := h.driver.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Days)
	assert.Equal(t, []listKey{{"2024-02-03", "cs.AI"}, {"2024-02-03", "cs.LG"}}, h.lister.calls)
}

func TestRun_DaysExcludeToday(t *testing.T) {
	h := newHarness(t)
	s, err := h.driver.Run(context.Background(), since("2024-02-01"))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Days)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), s.Start)
	assert.Equal(t, time.Date(2024, 2, 4, 0, 0, 0, 0, time.UTC), s.End)
	assert.NotEmpty(t, s.RunID)
	for _, c := range h.lister.calls {
		assert.NotEqual(t, "2024-02-04", c.day)
	}
}

func TestRun_ImportsAndDedupes(t *testing.T) {
	h := newHarness(t)
	h.lister.entries[listKey{"2024-02-01", "cs.AI"}] = []harvest.Entry{
		entry("2402.00001", "2024-02-01T10:00:00Z", "cs.AI", "cs.LG"),
		entry("2402.00002", "2024-02-01T11:00:00Z", "cs.AI"),
	}
	h.lister.entries[listKey{"2024-02-01", "cs.LG"}] = []harvest.Entry{
		entry("2402.00001", "2024-02-01T10:00:00Z", "cs.AI", "cs.LG"),
		entry("2402.00003", "2024-02-01T12:00:00Z", "cs.LG"),
	}

	s, err := h.driver.Run(context.Background(), since("2024-02-01"))
	require.NoError(t, err)

	assert.Equal(t, 3, s.Imported)
	assert.Equal(t, 0, s.Failed)
	assert.False(t, s.HasFailures())
	assert.Equal(t, []string{"2402.00001", "2402.00002", "2402.00003"}, h.extractor.calls)
	require.Len(t, h.store.upserted, 3)

	a := h.store.upserted[0]
	assert.Equal(t, "Title 2402.00001", a.Title)
	assert.Equal(t, types.FormatSource, a.Format)
	assert.Equal(t, "10 pages", a.Comments)
	assert.Equal(t, []string{"Artificial Intelligence (cs.AI)"}, a.Subjects)
	assert.Equal(t, []string{"cs.AI", "cs.LG"}, a.Categories)
	assert.Equal(t, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC), a.Published)
	assert.Equal(t, fixedNow.Truncate(time.Second), a.ProcessedAt)
	assert.Equal(t, "Abstract of 2402.00001", h.embedder.texts[0])

	saved, ok, err := h.driver.Registry.LoadByID("2402.00003")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Body of 2402.00003", saved.MainText)

	assert.Contains(t, h.out.String(), "imported: 2402.00002\n")
	assert.Contains(t, h.out.String(), "Import summary: 3 imported, 0 reused, 0 failed (total: 3)")
}

func TestRun_ArticleFailureIsolated(t *testing.T) {
	h := newHarness(t)
	h.lister.entries[listKey{"2024-02-03", "cs.AI"}] = []harvest.Entry{
		entry("2402.00010", "2024-02-03T10:00:00Z", "cs.AI"),
		entry("2402.00011", "2024-02-03T10:00:00Z", "cs.AI"),
		entry("2402.00012", "bad-date", "cs.AI"),
	}
	h.extractor.errs["2402.00010"] = &extract.ExtractionError{
		ArxivID:  "2402.00010",
		Failures: []extract.Failure{{Extractor: "source", Reason: "404"}},
	}

	s, err := h.driver.Run(context.Background(), since("2024-02-03"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Imported)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, []string{"2402.00010", "2402.00012"}, s.FailedIDs)
	assert.True(t, s.HasFailures())
	assert.Contains(t, h.out.String(), "failed:  2402.00010 (all extractors failed for 2402.00010")
	assert.Contains(t, h.out.String(), "failed:  2402.00012 (filing:")
}

func TestRun_DayFailureSkipsDay(t *testing.T) {
	h := newHarness(t)
	h.lister.errs[listKey{"2024-02-02", "cs.LG"}] = &harvest.ParseError{URL: "u", Err: errors.New("bad xml")}
	h.lister.entries[listKey{"2024-02-02", "cs.AI"}] = []harvest.Entry{entry("2402.00020", "2024-02-02T10:00:00Z", "cs.AI")}
	h.lister.entries[listKey{"2024-02-03", "cs.AI"}] = []harvest.Entry{entry("2402.00030", "2024-02-03T10:00:00Z", "cs.AI")}

	s, err := h.driver.Run(context.Background(), since("2024-02-01"))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Days)
	assert.Equal(t, 1, s.FailedDays)
	assert.Equal(t, 1, s.Imported)
	assert.Equal(t, []string{"2402.00030"}, h.extractor.calls)
	assert.Contains(t, h.out.String(), "failed day: 2024-02-02")
}

func TestRun_ReusesExistingArticle(t *testing.T) {
	h := newHarness(t)
	e := entry("2402.00040", "2024-02-03T10:00:00Z", "cs.AI")
	h.lister.entries[listKey{"2024-02-03", "cs.AI"}] = []harvest.Entry{e}

	reg := h.driver.Registry
	dir, err := reg.File(registry.Record{ArxivID: e.ArxivID, Published: e.Published, Categories: e.Categories})
	require.NoError(t, err)
	_, err = reg.Save(dir, &types.Article{
		ArxivID:    e.ArxivID,
		Abstract:   "Stored abstract",
		Categories: []string{"cs.AI"},
		Format:     types.FormatPage,
		Published:  time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	s, err := h.driver.Run(context.Background(), since("2024-02-03"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Reused)
	assert.Equal(t, 0, s.Imported)
	assert.Empty(t, h.extractor.calls)
	assert.Equal(t, []string{"Stored abstract"}, h.embedder.texts)
	require.Len(t, h.store.upserted, 1)
	assert.Equal(t, types.FormatPage, h.store.upserted[0].Format)
}

func TestRun_MissingAbstractFails(t *testing.T) {
	h := newHarness(t)
	e := entry("2402.00050", "2024-02-03T10:00:00Z", "cs.AI")
	e.Abstract = ""
	h.lister.entries[listKey{"2024-02-03", "cs.AI"}] = []harvest.Entry{e}

	s, err := h.driver.Run(context.Background(), since("2024-02-03"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Failed)
	assert.Empty(t, h.store.upserted)
}

func TestRun_IndexesDayInBulk(t *testing.T) {
	h := newHarness(t)
	h.lister.entries[listKey{"2024-02-03", "cs.AI"}] = []harvest.Entry{
		entry("2402.00060", "2024-02-03T10:00:00Z", "cs.AI"),
		entry("2402.00061", "2024-02-03T10:00:00Z", "cs.AI"),
		entry("2402.00062", "bad-date", "cs.AI"),
	}

	s, err := h.driver.Run(context.Background(), since("2024-02-03"))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Imported)
	assert.Equal(t, 1, s.Failed)
	require.Len(t, h.embedder.batches, 1)
	assert.Equal(t, []string{"Abstract of 2402.00060", "Abstract of 2402.00061"}, h.embedder.batches[0])
	assert.Equal(t, 1, h.store.bulkCalls)
	assert.Zero(t, h.store.oneCalls)
	require.Len(t, h.store.upserted, 2)
	assert.Equal(t, "2402.00061", h.store.upserted[1].ArxivID)
}

func TestRun_BatchEmbeddingFailureFallsBack(t *testing.T) {
	h := newHarness(t)
	h.lister.entries[listKey{"2024-02-03", "cs.AI"}] = []harvest.Entry{
		entry("2402.00070", "2024-02-03T10:00:00Z", "cs.AI"),
		entry("2402.00071", "2024-02-03T10:00:00Z", "cs.AI"),
	}
	h.embedder.batchErr = errors.New("batch rejected")
	h.embedder.errs = map[string]error{"Abstract of 2402.00070": errors.New("text too long")}

	s, err := h.driver.Run(context.Background(), since("2024-02-03"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Imported)
	assert.Equal(t, []string{"2402.00070"}, s.FailedIDs)
	assert.Zero(t, h.store.bulkCalls)
	assert.Equal(t, 1, h.store.oneCalls)
	assert.Contains(t, h.out.String(), "failed:  2402.00070 (embedding: text too long)")
	assert.Contains(t, h.out.String(), "imported: 2402.00071\n")
}

func TestRun_BulkUpsertFailureFallsBack(t *testing.T) {
	h := newHarness(t)
	h.lister.entries[listKey{"2024-02-03", "cs.AI"}] = []harvest.Entry{
		entry("2402.00080", "2024-02-03T10:00:00Z", "cs.AI"),
		entry("2402.00081", "2024-02-03T10:00:00Z", "cs.AI"),
	}
	h.store.bulkErr = errors.New("payload too large")
	h.store.oneErrs = map[string]error{"2402.00081": errors.New("bad point")}

	s, err := h.driver.Run(context.Background(), since("2024-02-03"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Imported)
	assert.Equal(t, []string{"2402.00081"}, s.FailedIDs)
	assert.Equal(t, 1, h.store.bulkCalls)
	assert.Equal(t, 2, h.store.oneCalls)
	require.Len(t, h.embedder.batches, 1, "vectors from the batch are reused")
	assert.Contains(t, h.out.String(), "failed:  2402.00081 (indexing: bad point)")
}

func TestRun_ChunksLargeDays(t *testing.T) {
	h := newHarness(t)
	var entries []harvest.Entry
	for i := range indexBatch + 1 {
		entries = append(entries, entry(fmt.Sprintf("2402.%05d", 100+i), "2024-02-03T10:00:00Z", "cs.AI"))
	}
	h.lister.entries[listKey{"2024-02-03", "cs.AI"}] = entries

	s, err := h.driver.Run(context.Background(), since("2024-02-03"))
	require.NoError(t, err)
	assert.Equal(t, indexBatch+1, s.Imported)
	require.Len(t, h.embedder.batches, 2)
	assert.Len(t, h.embedder.batches[0], indexBatch)
	assert.Len(t, h.embedder.batches[1], 1)
	assert.Equal(t, 2, h.store.bulkCalls)
}

func TestRun_Cancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.driver.Run(ctx, since("2024-02-01"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.lister.calls)
}

func TestDedupeByID(t *testing.T) {
	in := []harvest.Entry{
		{ArxivID: "b", Title: "first b"},
		{ArxivID: "a"},
		{ArxivID: "b", Title: "second b"},
		{ArxivID: "c"},
	}
	got := DedupeByID(in)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{got[0].ArxivID, got[1].ArxivID, got[2].ArxivID})
	assert.Equal(t, "first b", got[0].Title)
	assert.Empty(t, DedupeByID(nil))
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.yaml")
	s := Summary{RunID: "r1", Days: 2, Imported: 5, Failed: 1, FailedIDs: []string{"2402.1"}}
	require.NoError(t, WriteReport(path, s))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "r1", got["run_id"])
	assert.Equal(t, 5, got["imported"])
	assert.Equal(t, []any{"2402.1"}, got["failed_ids"])
}
