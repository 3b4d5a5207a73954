// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

const binPdftotext = "pdftotext"

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes()))
		}
		return err
	}
	return nil
}

// PdftotextConverter pipes PDFs through poppler's pdftotext binary.
type PdftotextConverter struct {
	exec executor
}

// NewPdftotextConverter returns a converter that runs pdftotext from PATH.
func NewPdftotextConverter() *PdftotextConverter {
	return &PdftotextConverter{exec: osExecutor{}}
}

// Name returns "pdftotext".
func (c *PdftotextConverter) Name() string { return string(types.PDFBackendPdftotext) }

// Convert writes data to pdftotext's stdin and returns its stdout.
func (c *PdftotextConverter) Convert(ctx context.Context, data []byte) (string, error) {
	if _, err := c.exec.LookPath(binPdftotext); err != nil {
		return "", fmt.Errorf("%s not found on PATH: %w", binPdftotext, err)
	}

	var out bytes.Buffer
	args := []string{"-enc", "UTF-8", "-", "-"}
	if err := c.exec.RunPiped(ctx, binPdftotext, args, bytes.NewReader(data), &out); err != nil {
		return "", fmt.Errorf("running %s: %w", binPdftotext, err)
	}
	return out.String(), nil
}
