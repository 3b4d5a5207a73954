// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/arxiv-indexer/internal/embeddings"
	"github.com/pdiddy/arxiv-indexer/internal/fetch"
	"github.com/pdiddy/arxiv-indexer/internal/harvest"
	"github.com/pdiddy/arxiv-indexer/internal/ingest"
	"github.com/pdiddy/arxiv-indexer/internal/registry"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import papers published since a date or since the last import",
	Long: `Import lists the configured arXiv categories for every day from the start
date up to yesterday (UTC), extracts and files each new paper in the registry,
and indexes its abstract embedding in the vector store.

Without --since the import resumes the day after the newest paper already in
the vector store. An empty store requires --since. Failed days are skipped,
not retried; rerun with --since to revisit them.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := pipelineConfig()

	var since *time.Time
	if raw, _ := cmd.Flags().GetString("since"); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return fmt.Errorf("invalid --since %q: use YYYY-MM-DD", raw)
		}
		since = &t
	}
	if len(cfg.Arxiv.Categories) == 0 {
		return fmt.Errorf("no categories configured: set arxiv.categories")
	}

	f := fetch.New(cfg.Arxiv)
	coord, err := newCoordinator(cfg, f)
	if err != nil {
		return err
	}
	store, emb, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	defer emb.Close()

	driver := &ingest.Driver{
		Lister:     harvest.NewLister(f, cfg.Arxiv.APIURL, cfg.Arxiv.PageSize),
		Extractor:  coord,
		Registry:   registry.New(cfg.Registry.Root),
		Embedder:   emb,
		Store:      store,
		Categories: cfg.Arxiv.Categories,
		Out:        os.Stdout,
	}

	summary, err := driver.Run(ctx, since)
	if c, ok := emb.(*embeddings.Cached); ok {
		slog.Debug("embedding cache", "run", summary.RunID, "entries", c.Len())
	}
	if errors.Is(err, ingest.ErrNoWatermark) {
		return fmt.Errorf("%w (use --since YYYY-MM-DD)", err)
	}
	if report, _ := cmd.Flags().GetString("report"); report != "" && summary.RunID != "" {
		if rerr := ingest.WriteReport(report, summary); rerr != nil {
			return rerr
		}
		fmt.Printf("Report written to %s\n", report)
	}
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d article(s) and %d day(s) failed", summary.Failed, summary.FailedDays)
	}
	return nil
}

func init() {
	importCmd.Flags().String("since", "", "first day to import (YYYY-MM-DD, UTC); default resumes after the last import")
	importCmd.Flags().String("report", "", "write the run summary as YAML to this path")
	importCmd.Flags().String("pdf-backend", "", "PDF text backend: native or pdftotext")

	viper.BindPFlag("pdf.backend", importCmd.Flags().Lookup("pdf-backend"))

	rootCmd.AddCommand(importCmd)
}
