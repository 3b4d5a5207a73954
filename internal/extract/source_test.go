// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"archive/tar"
	"bytes"
	"context"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

type tarFile struct {
	name string
	body string
}

func buildTar(t *testing.T, files ...tarFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     f.name,
			Mode:     0o644,
			Size:     int64(len(f.body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const mainTeX = "\\documentclass{article}\n\\begin{document}\n\\section{Intro}\nHello world.\n\\end{document}\n"

func TestSourceExtractor_GzippedTar(t *testing.T) {
	archive := gzipBytes(t, buildTar(t,
		tarFile{"macros.tex", `\newcommand{\R}{\mathbb{R}}`},
		tarFile{"fig.png", "PNG"},
		tarFile{"paper.tex", mainTeX},
	))
	f := &mapFetcher{bodies: map[string][]byte{"http://src.test/2401.00001": archive}}

	c, err := NewSourceExtractor(f, "http://src.test/").Extract(context.Background(), "2401.00001")
	require.NoError(t, err)
	assert.True(t, c.Success)
	assert.Equal(t, types.FormatSource, c.Format)
	assert.Equal(t, []string{"Intro"}, c.Sections)
	assert.Contains(t, c.MainText, "Hello world.")
}

func TestSourceExtractor_PlainTar(t *testing.T) {
	archive := buildTar(t, tarFile{"main.tex", mainTeX})
	f := &mapFetcher{bodies: map[string][]byte{DefaultSourceURL + "2401.00002": archive}}

	c, err := NewSourceExtractor(f, "").Extract(context.Background(), "2401.00002")
	require.NoError(t, err)
	assert.True(t, c.Success)
}

func TestSourceExtractor_SingleGzippedFile(t *testing.T) {
	f := &mapFetcher{bodies: map[string][]byte{DefaultSourceURL + "2401.00003": gzipBytes(t, []byte(mainTeX))}}

	c, err := NewSourceExtractor(f, "").Extract(context.Background(), "2401.00003")
	require.NoError(t, err)
	assert.True(t, c.Success)
	assert.Equal(t, []string{"Intro"}, c.Sections)
}

func TestSourceExtractor_NoMainFile(t *testing.T) {
	archive := gzipBytes(t, buildTar(t, tarFile{"body.tex", `\section{Only a fragment}`}))
	f := &mapFetcher{bodies: map[string][]byte{DefaultSourceURL + "2401.00004": archive}}

	c, err := NewSourceExtractor(f, "").Extract(context.Background(), "2401.00004")
	require.NoError(t, err)
	assert.False(t, c.Success)
	assert.Equal(t, "no main TeX file found", c.Reason)
}

func TestSourceExtractor_PDFOnlySubmission(t *testing.T) {
	f := &mapFetcher{bodies: map[string][]byte{DefaultSourceURL + "2401.00005": []byte("%PDF-1.4\n...")}}

	c, err := NewSourceExtractor(f, "").Extract(context.Background(), "2401.00005")
	require.NoError(t, err)
	assert.False(t, c.Success)
}

func TestSourceExtractor_FetchError(t *testing.T) {
	_, err := NewSourceExtractor(&mapFetcher{}, "").Extract(context.Background(), "2401.00006")
	require.Error(t, err)
}

func TestSourceExtractor_CorruptGzip(t *testing.T) {
	f := &mapFetcher{bodies: map[string][]byte{DefaultSourceURL + "2401.00007": {0x1f, 0x8b, 0x00, 0x01}}}
	_, err := NewSourceExtractor(f, "").Extract(context.Background(), "2401.00007")
	require.Error(t, err)
}
