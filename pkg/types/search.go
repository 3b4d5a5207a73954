// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"cmp"
	"slices"
)

// SearchResult pairs an Article with its similarity score from the vector
// store. Higher scores are more similar.
type SearchResult struct {
	Article Article `json:"article" yaml:"article"`
	Score   float64 `json:"score" yaml:"score"`
}

// ByScoreDesc orders results by descending score. Ties fall back to the
// arXiv identifier so the order is deterministic.
func ByScoreDesc(a, b SearchResult) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.Article.ArxivID, b.Article.ArxivID)
}

// SortByScore sorts results in place, most similar first.
func SortByScore(results []SearchResult) {
	slices.SortStableFunc(results, ByScoreDesc)
}
