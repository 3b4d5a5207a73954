// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog keeps a local SQLite full-text index of the articles in
// the registry. It is a derived index like the registry's link axes: it
// can be dropped and rebuilt from the article.json files at any time.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/arxiv-indexer/internal/registry"
	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

const (
	dbFile = "catalog.db"

	defaultMaxResults = 20
)

// Store manages the catalog database.
type Store struct {
	db         *sql.DB
	dir        string
	reg        *registry.Registry
	maxResults int
}

// NewStore opens or creates cfg.Dir/catalog.db over the articles in reg.
func NewStore(cfg types.CatalogConfig, reg *registry.Registry) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(cfg.Dir, dbFile)+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, dir: cfg.Dir, reg: reg, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			arxiv_id TEXT NOT NULL UNIQUE,
			title TEXT,
			authors TEXT,
			abstract TEXT,
			categories TEXT,
			format TEXT,
			main_text TEXT,
			comments TEXT,
			published TEXT,
			processed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			arxiv_id TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='articles_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	// External-content FTS4: deletes must run before the row changes so the
	// index can read the old values.
	ftsStatements := []string{
		`CREATE VIRTUAL TABLE articles_fts USING fts4(content="articles", title, abstract, main_text)`,
		`CREATE TRIGGER articles_bu BEFORE UPDATE ON articles BEGIN
			DELETE FROM articles_fts WHERE docid=old.rowid;
		END`,
		`CREATE TRIGGER articles_bd BEFORE DELETE ON articles BEGIN
			DELETE FROM articles_fts WHERE docid=old.rowid;
		END`,
		`CREATE TRIGGER articles_au AFTER UPDATE ON articles BEGIN
			INSERT INTO articles_fts(docid, title, abstract, main_text)
			VALUES (new.rowid, new.title, new.abstract, new.main_text);
		END`,
		`CREATE TRIGGER articles_ai AFTER INSERT ON articles BEGIN
			INSERT INTO articles_fts(docid, title, abstract, main_text)
			VALUES (new.rowid, new.title, new.abstract, new.main_text);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// SyncSummary holds counts from one catalog sync.
type SyncSummary struct {
	Indexed int
	Updated int
	Skipped int
	Removed int
	Failed  int
}

// Total returns the number of registry articles processed.
func (s SyncSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Sync brings the catalog up to date with the registry. Articles whose
// article.json is unchanged since the last sync are skipped; articles no
// longer in the registry are removed.
func (s *Store) Sync(ctx context.Context, w io.Writer) (SyncSummary, error) {
	ids, err := s.reg.List(registry.Filter{})
	if err != nil {
		return SyncSummary{}, fmt.Errorf("listing registry: %w", err)
	}

	var summary SyncSummary
	present := make(map[string]bool, len(ids))

	for _, id := range ids {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}
		present[id] = true

		paths, ok := s.reg.Paths(id)
		if !ok {
			continue
		}
		path := paths["article"]
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			// Filed but not yet saved.
			continue
		}
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", id, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE arxiv_id = ?`, id,
		).Scan(&storedModTime)
		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", id)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		article, err := s.reg.Load(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", id, err)
			summary.Failed++
			continue
		}
		if err := s.upsert(ctx, article, modTime); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", id, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s\n", id)
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s\n", id)
			summary.Indexed++
		}
	}

	removed, err := s.prune(ctx, present)
	if err != nil {
		return summary, err
	}
	summary.Removed = removed

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, removed: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Removed, summary.Failed)
	return summary, nil
}

func (s *Store) upsert(ctx context.Context, a *types.Article, modTime string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	authorsJSON, _ := json.Marshal(a.Authors)
	categoriesJSON, _ := json.Marshal(a.Categories)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO articles (arxiv_id, title, authors, abstract, categories, format,
			main_text, comments, published, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(arxiv_id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, abstract=excluded.abstract,
			categories=excluded.categories, format=excluded.format,
			main_text=excluded.main_text, comments=excluded.comments,
			published=excluded.published, processed_at=excluded.processed_at`,
		a.ArxivID, a.Title, string(authorsJSON), a.Abstract, string(categoriesJSON),
		string(a.Format), a.MainText, a.Comments,
		types.FormatTimestamp(a.Published), types.FormatTimestamp(a.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting article: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (arxiv_id, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(arxiv_id) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		a.ArxivID, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}
	return tx.Commit()
}

// prune deletes catalog rows whose article left the registry.
func (s *Store) prune(ctx context.Context, present map[string]bool) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT arxiv_id FROM articles`)
	if err != nil {
		return 0, fmt.Errorf("listing catalog: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning row: %w", err)
		}
		if !present[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range stale {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE arxiv_id = ?`, id); err != nil {
			return 0, fmt.Errorf("removing %s: %w", id, err)
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM indexing_status WHERE arxiv_id = ?`, id); err != nil {
			return 0, fmt.Errorf("removing status for %s: %w", id, err)
		}
	}
	return len(stale), nil
}

// Count returns the number of catalogued articles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}
	return n, nil
}
