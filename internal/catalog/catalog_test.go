// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/arxiv-indexer/internal/registry"
	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) (*Store, *registry.Registry) {
	t.Helper()
	tmpDir := t.TempDir()
	reg := registry.New(filepath.Join(tmpDir, "registry"))

	store, err := NewStore(types.CatalogConfig{Dir: filepath.Join(tmpDir, "catalog"), MaxResults: 20}, reg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store, reg
}

func saveArticle(t *testing.T, reg *registry.Registry, a *types.Article) string {
	t.Helper()
	dir, err := reg.FileArticle(a)
	if err != nil {
		t.Fatal(err)
	}
	path, err := reg.Save(dir, a)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func sampleArticles() []*types.Article {
	return []*types.Article{
		{
			ArxivID:    "2402.00001",
			Title:      "Sparse Transformers for Long Documents",
			Authors:    []string{"Ada Lovelace"},
			Abstract:   "We study attention sparsity in transformers.",
			Categories: []string{"cs.CL", "cs.LG"},
			Format:     types.FormatSource,
			MainText:   "Attention is computed over blocks.",
			Published:  time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ArxivID:    "2402.00002",
			Title:      "Graph Neural Networks on Molecules",
			Authors:    []string{"Alan Turing"},
			Abstract:   "Message passing for chemistry.",
			Categories: []string{"cs.LG"},
			Format:     types.FormatDocument,
			Published:  time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			ArxivID:    "2312.00003",
			Title:      "Planning with Language Models",
			Authors:    []string{"Grace Hopper"},
			Abstract:   "Transformers as planners.",
			Categories: []string{"cs.AI"},
			Format:     types.FormatPage,
			Published:  time.Date(2023, 12, 30, 10, 0, 0, 0, time.UTC),
		},
	}
}

func populate(t *testing.T, reg *registry.Registry) {
	t.Helper()
	for _, a := range sampleArticles() {
		saveArticle(t, reg, a)
	}
}

func ids(results []QueryResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ArxivID
	}
	return out
}

// --- tests ---

func TestSync_IndexesThenSkips(t *testing.T) {
	store, reg := testSetup(t)
	populate(t, reg)

	var buf bytes.Buffer
	summary, err := store.Sync(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Indexed != 3 || summary.Total() != 3 {
		t.Fatalf("first sync = %+v, want 3 indexed", summary)
	}
	if !strings.Contains(buf.String(), "indexing 2402.00001") {
		t.Errorf("output missing progress line:\n%s", buf.String())
	}

	summary, err = store.Sync(context.Background(), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 3 || summary.Indexed != 0 {
		t.Fatalf("second sync = %+v, want 3 skipped", summary)
	}

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestSync_UpdatesChangedFile(t *testing.T) {
	store, reg := testSetup(t)
	populate(t, reg)
	if _, err := store.Sync(context.Background(), &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	a := sampleArticles()[1]
	a.Title = "Equivariant Graph Networks"
	path := saveArticle(t, reg, a)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	summary, err := store.Sync(context.Background(), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 || summary.Skipped != 2 {
		t.Fatalf("sync = %+v, want 1 updated 2 skipped", summary)
	}

	results, err := store.Search(context.Background(), QueryOptions{Query: "equivariant"})
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(results); len(got) != 1 || got[0] != "2402.00002" {
		t.Errorf("search after update = %v", got)
	}
	results, err = store.Search(context.Background(), QueryOptions{Query: "molecules"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("stale title still indexed: %v", ids(results))
	}
}

func TestSync_SkipsUnsavedAndPrunes(t *testing.T) {
	store, reg := testSetup(t)
	populate(t, reg)
	if _, err := reg.File(registry.Record{ArxivID: "2402.00009", Published: "2024-02-03", Categories: []string{"cs.AI"}}); err != nil {
		t.Fatal(err)
	}

	summary, err := store.Sync(context.Background(), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Indexed != 3 {
		t.Fatalf("sync = %+v, want 3 indexed", summary)
	}

	if err := os.RemoveAll(filepath.Join(reg.Root(), "2023")); err != nil {
		t.Fatal(err)
	}
	summary, err = store.Sync(context.Background(), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Removed != 1 {
		t.Fatalf("sync = %+v, want 1 removed", summary)
	}
	n, _ := store.Count(context.Background())
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestSync_Cancelled(t *testing.T) {
	store, reg := testSetup(t)
	populate(t, reg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Sync(ctx, &bytes.Buffer{}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestSearch(t *testing.T) {
	store, reg := testSetup(t)
	populate(t, reg)
	if _, err := store.Sync(context.Background(), &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{"full text newest first", QueryOptions{Query: "transformers"}, []string{"2402.00001", "2312.00003"}},
		{"body text", QueryOptions{Query: "blocks"}, []string{"2402.00001"}},
		{"category", QueryOptions{Category: "cs.LG"}, []string{"2402.00002", "2402.00001"}},
		{"year", QueryOptions{Year: 2023}, []string{"2312.00003"}},
		{"text and category", QueryOptions{Query: "transformers", Category: "cs.AI"}, []string{"2312.00003"}},
		{"limit", QueryOptions{MaxResults: 1}, []string{"2402.00002"}},
		{"no match", QueryOptions{Query: "quantum"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Search(context.Background(), tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			got := ids(results)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Search(%+v) = %v, want %v", tt.opts, got, tt.want)
			}
		})
	}
}

func TestSearch_ResultFields(t *testing.T) {
	store, reg := testSetup(t)
	populate(t, reg)
	if _, err := store.Sync(context.Background(), &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(context.Background(), QueryOptions{Query: "sparsity"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Title != "Sparse Transformers for Long Documents" || r.Format != "tex" {
		t.Errorf("unexpected result %+v", r)
	}
	if len(r.Authors) != 1 || r.Authors[0] != "Ada Lovelace" {
		t.Errorf("authors = %v", r.Authors)
	}
	if len(r.Categories) != 2 {
		t.Errorf("categories = %v", r.Categories)
	}
	if r.Published != "2024-02-01T10:00:00Z" {
		t.Errorf("published = %q", r.Published)
	}
	if !strings.Contains(r.Snippet, "[sparsity]") {
		t.Errorf("snippet = %q, want highlighted hit", r.Snippet)
	}
}

func TestExport(t *testing.T) {
	store, reg := testSetup(t)
	populate(t, reg)
	if _, err := store.Sync(context.Background(), &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	yamlPath, err := store.ExportYAML(context.Background(), QueryOptions{Category: "cs.LG"})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	var fromYAML []QueryResult
	if err := yaml.Unmarshal(data, &fromYAML); err != nil {
		t.Fatal(err)
	}
	if len(fromYAML) != 2 {
		t.Errorf("yaml export has %d entries, want 2", len(fromYAML))
	}

	jsonPath, err := store.ExportJSON(context.Background(), QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var fromJSON []QueryResult
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		t.Fatal(err)
	}
	if len(fromJSON) != 3 {
		t.Errorf("json export has %d entries, want 3", len(fromJSON))
	}
}

func TestExport_EmptyCatalog(t *testing.T) {
	store, _ := testSetup(t)
	path, err := store.ExportJSON(context.Background(), QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("empty export = %q, want []", data)
	}
}
