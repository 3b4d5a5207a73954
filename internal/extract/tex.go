// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

// TeX structure patterns.
var (
	sectionRe  = regexp.MustCompile(`\\(?:sub){0,2}section\*?\{([^}]+)\}`)
	captionRe  = regexp.MustCompile(`\\caption\{([^}]+)\}`)
	equationRe = regexp.MustCompile(`(?s)\\begin\{equation\*?\}(.*?)\\end\{equation\*?\}`)

	// bibitemRe matches the head of a bibliography item; the body runs to
	// the next item, a blank line or end of input.
	bibitemRe = regexp.MustCompile(`\\bibitem(?:\[[^\]]*\])?\{([^}]+)\}`)
)

// Cleaning patterns, applied in order.
var (
	commentRe      = regexp.MustCompile(`(?m)(^|[^\\])%.*$`)
	displayMathRe  = regexp.MustCompile(`(?s)\$\$.*?\$\$`)
	inlineMathRe   = regexp.MustCompile(`\$[^$]*\$`)
	commandRe      = regexp.MustCompile(`\\[a-zA-Z]+\*?(?:\[[^\]]*\])?(?:\{[^}]*\})?`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// TeXDocument holds the structure pulled out of a main TeX file.
type TeXDocument struct {
	Sections     []string
	Figures      []string
	Equations    []string
	Bibliography []types.BibEntry
	MainText     string
}

// ParseTeX extracts headings, captions, equation bodies and bibliography
// items from src, plus a cleaned plain-text rendition.
func ParseTeX(src string) TeXDocument {
	return TeXDocument{
		Sections:     submatches(sectionRe, src),
		Figures:      submatches(captionRe, src),
		Equations:    submatches(equationRe, src),
		Bibliography: parseBibliography(src),
		MainText:     CleanTeX(src),
	}
}

func submatches(re *regexp.Regexp, src string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(src, -1) {
		if s := strings.TrimSpace(m[1]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseBibliography(src string) []types.BibEntry {
	matches := bibitemRe.FindAllStringSubmatchIndex(src, -1)
	var entries []types.BibEntry
	for i, m := range matches {
		key := src[m[2]:m[3]]
		end := len(src)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := src[m[1]:end]
		if j := strings.Index(body, "\n\n"); j >= 0 {
			body = body[:j]
		}
		entries = append(entries, types.BibEntry{
			Key:  strings.TrimSpace(key),
			Text: strings.TrimSpace(whitespaceRuns.ReplaceAllString(body, " ")),
		})
	}
	return entries
}

// CleanTeX strips comments, equation environments, inline and display
// math and control sequences, then collapses whitespace.
func CleanTeX(src string) string {
	text := commentRe.ReplaceAllString(src, "$1")
	text = equationRe.ReplaceAllString(text, " ")
	text = displayMathRe.ReplaceAllString(text, " ")
	text = inlineMathRe.ReplaceAllString(text, " ")
	text = commandRe.ReplaceAllString(text, " ")
	text = whitespaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
