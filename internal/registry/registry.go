// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry files articles on disk under a date tree and maintains
// two derived lookup axes made of relative symbolic links:
//
//	root/YYYY/MM/DD/<id>/article.json      canonical payload
//	root/by_id/<id>                        -> ../YYYY/MM/DD/<id>
//	root/by_category/<cat>/<id>            -> ../../YYYY/MM/DD/<id>
//
// The date tree is the source of truth; the links can be rebuilt from it.
// The registry assumes a single writer per root.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

const (
	byIDDir       = "by_id"
	byCategoryDir = "by_category"

	// ArticleFile is the payload file name inside each article directory.
	ArticleFile = "article.json"
)

// Registry is a filesystem article registry rooted at one directory.
type Registry struct {
	root string
}

// New returns a Registry rooted at root. The directory is created lazily
// on the first File call.
func New(root string) *Registry {
	return &Registry{root: filepath.Clean(root)}
}

// Root returns the registry root directory.
func (r *Registry) Root() string { return r.root }

// Record is the metadata needed to file an article.
type Record struct {
	ArxivID    string
	Published  string
	Categories []string
}

// RecordFromArticle builds a Record from an Article's identity fields.
func RecordFromArticle(a *types.Article) Record {
	return Record{
		ArxivID:    a.ArxivID,
		Published:  types.FormatTimestamp(a.Published),
		Categories: a.Categories,
	}
}

// Locate resolves id through the by_id axis. It reports false when the id
// is unknown or its link is dangling. The date tree is never scanned.
func (r *Registry) Locate(id string) (string, bool) {
	if !validName(id) {
		return "", false
	}
	link := filepath.Join(r.root, byIDDir, id)
	target, err := os.Readlink(link)
	if err != nil {
		return "", false
	}
	dir := target
	if !filepath.IsAbs(target) {
		dir = filepath.Join(filepath.Dir(link), target)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return dir, true
}

// File creates the article directory for rec and its lookup links. It is
// idempotent: existing directories and links are left untouched.
func (r *Registry) File(rec Record) (string, error) {
	published, err := rec.validate()
	if err != nil {
		return "", err
	}

	rel := filepath.Join(
		fmt.Sprintf("%04d", published.Year()),
		fmt.Sprintf("%02d", int(published.Month())),
		fmt.Sprintf("%02d", published.Day()),
		rec.ArxivID,
	)
	dir := filepath.Join(r.root, rel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating article directory: %w", err)
	}

	if err := r.link(filepath.Join(r.root, byIDDir, rec.ArxivID), dir); err != nil {
		return "", err
	}
	for _, cat := range rec.Categories {
		if err := r.link(filepath.Join(r.root, byCategoryDir, cat, rec.ArxivID), dir); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// FileArticle files a by its identity fields.
func (r *Registry) FileArticle(a *types.Article) (string, error) {
	return r.File(RecordFromArticle(a))
}

// link creates a symlink at linkPath pointing at target, expressed
// relative to the link's own directory. An existing entry at linkPath is
// left alone.
func (r *Registry) link(linkPath, target string) error {
	if _, err := os.Lstat(linkPath); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking link %s: %w", linkPath, err)
	}

	linkDir := filepath.Dir(linkPath)
	if err := os.MkdirAll(linkDir, 0o755); err != nil {
		return fmt.Errorf("creating link directory: %w", err)
	}
	rel, err := filepath.Rel(linkDir, target)
	if err != nil {
		return fmt.Errorf("computing relative link: %w", err)
	}
	if err := os.Symlink(rel, linkPath); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("creating link %s: %w", linkPath, err)
	}
	return nil
}

// Paths returns the files held for id keyed by logical name. Today the
// only entry is "article".
func (r *Registry) Paths(id string) (map[string]string, bool) {
	dir, ok := r.Locate(id)
	if !ok {
		return nil, false
	}
	return map[string]string{"article": filepath.Join(dir, ArticleFile)}, true
}

// Filter narrows List. Month requires Year and Day requires Month; zero
// values mean no filter on that field.
type Filter struct {
	Year     int
	Month    int
	Day      int
	Category string
}

// List returns the sorted identifiers filed under the filter.
func (r *Registry) List(f Filter) ([]string, error) {
	if (f.Month != 0 && f.Year == 0) || (f.Day != 0 && f.Month == 0) {
		return nil, fmt.Errorf("invalid filter: month requires year and day requires month")
	}

	var catIDs map[string]bool
	if f.Category != "" {
		ids, err := r.categoryIDs(f.Category)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []string{}, nil
		}
		catIDs = ids
	}

	walkRoot := r.root
	if f.Year != 0 {
		walkRoot = filepath.Join(walkRoot, fmt.Sprintf("%04d", f.Year))
		if f.Month != 0 {
			walkRoot = filepath.Join(walkRoot, fmt.Sprintf("%02d", f.Month))
			if f.Day != 0 {
				walkRoot = filepath.Join(walkRoot, fmt.Sprintf("%02d", f.Day))
			}
		}
	}

	found := make(map[string]bool)
	err := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path == walkRoot {
			return nil
		}
		name := d.Name()
		if filepath.Dir(path) == r.root && (name == byIDDir || name == byCategoryDir) {
			return filepath.SkipDir
		}
		if looksLikeID(name) {
			found[name] = true
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking registry: %w", err)
	}

	ids := make([]string, 0, len(found))
	for id := range found {
		if catIDs == nil || catIDs[id] {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *Registry) categoryIDs(category string) (map[string]bool, error) {
	entries, err := os.ReadDir(filepath.Join(r.root, byCategoryDir, category))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading category %s: %w", category, err)
	}
	ids := make(map[string]bool, len(entries))
	for _, e := range entries {
		ids[e.Name()] = true
	}
	return ids, nil
}

// Save writes a to dir/article.json through a temp file and rename.
func (r *Registry) Save(dir string, a *types.Article) (string, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling article: %w", err)
	}
	path := filepath.Join(dir, ArticleFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return path, nil
}

// Load reads an article.json file.
func (r *Registry) Load(path string) (*types.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var a types.Article
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &a, nil
}

// LoadByID locates id and loads its article. It reports false when the id
// is unknown or no article has been saved yet.
func (r *Registry) LoadByID(id string) (*types.Article, bool, error) {
	paths, ok := r.Paths(id)
	if !ok {
		return nil, false, nil
	}
	if _, err := os.Stat(paths["article"]); errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	a, err := r.Load(paths["article"])
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

// looksLikeID is the directory-name heuristic for article directories:
// longer than four characters with at least one digit. Date segments are
// at most four characters and never match.
func looksLikeID(name string) bool {
	return len(name) > 4 && strings.ContainsFunc(name, unicode.IsDigit)
}

// validName rejects identifiers that would escape their axis directory.
func validName(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

// validate checks rec and returns its published time in UTC.
func (rec Record) validate() (time.Time, error) {
	var missing []string
	if rec.ArxivID == "" {
		missing = append(missing, "arxiv_id")
	}
	if rec.Published == "" {
		missing = append(missing, "published")
	}
	if rec.Categories == nil {
		missing = append(missing, "categories")
	}
	if len(missing) > 0 {
		return time.Time{}, &MissingFieldError{Fields: missing}
	}
	if !validName(rec.ArxivID) {
		return time.Time{}, &FieldTypeError{Field: "arxiv_id", Want: "identifier without path separators"}
	}
	for _, c := range rec.Categories {
		if !validName(c) {
			return time.Time{}, &FieldTypeError{Field: "categories", Want: "category codes without path separators"}
		}
	}
	return ParsePublished(rec.Published)
}

// publishedLayouts are the ISO 8601 forms accepted for published.
var publishedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParsePublished parses an ISO 8601 date or timestamp and returns it in
// UTC. Timestamps without an offset are taken as UTC.
func ParsePublished(s string) (time.Time, error) {
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &DateFormatError{Value: s}
}
