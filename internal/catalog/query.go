// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// QueryOptions holds catalog query parameters.
type QueryOptions struct {
	// Query is the full-text search string over title, abstract and body.
	Query string

	// Category keeps articles listing this category.
	Category string

	// Year keeps articles published in this year.
	Year int

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// QueryResult is one catalogued article.
type QueryResult struct {
	ArxivID    string   `json:"arxiv_id" yaml:"arxiv_id"`
	Title      string   `json:"title" yaml:"title"`
	Authors    []string `json:"authors" yaml:"authors"`
	Abstract   string   `json:"abstract" yaml:"abstract"`
	Categories []string `json:"categories" yaml:"categories"`
	Format     string   `json:"format" yaml:"format"`
	Published  string   `json:"published" yaml:"published"`

	// Snippet is the matching passage with hits in brackets; empty for
	// filter-only queries.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// Search queries the catalog. Full-text matches and filter-only listings
// are both ordered newest first.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT a.arxiv_id, a.title, a.authors, a.abstract, a.categories, a.format,
				a.published, snippet(articles_fts, '[', ']', '...', -1, 16)
			FROM articles_fts
			JOIN articles a ON a.rowid = articles_fts.docid
			WHERE articles_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT a.arxiv_id, a.title, a.authors, a.abstract, a.categories, a.format,
				a.published, ''
			FROM articles a
			WHERE 1=1`)
	}

	if opts.Category != "" {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(a.categories) WHERE value = ?)`)
		args = append(args, opts.Category)
	}
	if opts.Year != 0 {
		qb.WriteString(` AND substr(a.published, 1, 4) = ?`)
		args = append(args, fmt.Sprintf("%04d", opts.Year))
	}

	qb.WriteString(` ORDER BY a.published DESC, a.arxiv_id LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			r              QueryResult
			authorsJSON    sql.NullString
			categoriesJSON sql.NullString
		)
		if err := rows.Scan(&r.ArxivID, &r.Title, &authorsJSON, &r.Abstract,
			&categoriesJSON, &r.Format, &r.Published, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if authorsJSON.Valid {
			json.Unmarshal([]byte(authorsJSON.String), &r.Authors)
		}
		if categoriesJSON.Valid {
			json.Unmarshal([]byte(categoriesJSON.String), &r.Categories)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
