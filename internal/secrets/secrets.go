// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads the credentials arxiv-indexer needs for remote
// backends from the secrets directory (default .secrets/). Each regular file
// holds one credential: the file name is the key, the trimmed contents the
// value. Keeping keys out of arxiv-indexer.yaml lets the config file be
// committed.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Key names understood by the CLI.
const (
	QdrantAPIKey = "qdrant-api-key"
	GeminiAPIKey = "gemini-api-key"
)

// Keys maps credential names to values.
type Keys map[string]string

// Lookup returns configured when it is set, so a key given in the config
// file or environment wins over the secrets directory.
func (k Keys) Lookup(name, configured string) string {
	if configured != "" {
		return configured
	}
	return k[name]
}

// Names returns the loaded key names in sorted order. Values are never
// exposed so the result is safe to log.
func (k Keys) Names() []string {
	names := make([]string, 0, len(k))
	for name := range k {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads the credentials in dir. A missing directory yields no keys:
// the Ollama embedder and a local Qdrant need none. Hidden files,
// subdirectories and empty files are ignored; unreadable files are logged
// and skipped.
func Load(dir string) (Keys, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Keys{}, nil
		}
		return nil, fmt.Errorf("secrets dir %s: %w (set secrets_dir or remove it)", dir, err)
	}

	keys := make(Keys)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("skipping unreadable credential", "dir", dir, "key", name, "error", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			keys[name] = value
		}
	}
	return keys, nil
}
