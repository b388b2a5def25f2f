// Package pdf adapts PDF fetching, structured parsing, and cover-image
// rendering for the PDF enhancer.
package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Renderer renders page 1 of a PDF to a PNG cover image at 150 DPI using
// pdfcpu's render command (explicitly off-loaded to a
// worker goroutine by the caller since rasterization is CPU-bound).
type Renderer struct {
	conf *model.Configuration
}

func NewRenderer() *Renderer {
	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.EXPORTIMAGES
	return &Renderer{conf: conf}
}

// RenderCoverImage implements out.PDFRenderer. pdfcpu's render pipeline is
// file-based, so pdfBytes is staged to a temp file and the rendered PNG is
// read back from a temp output directory.
func (r *Renderer) RenderCoverImage(ctx context.Context, pdfBytes []byte) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "benchscope-pdf-render-*")
	if err != nil {
		return nil, fmt.Errorf("pdf renderer: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inFile := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(inFile, pdfBytes, 0o600); err != nil {
		return nil, fmt.Errorf("pdf renderer: stage input file: %w", err)
	}

	outDir := filepath.Join(tmpDir, "out")
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return nil, fmt.Errorf("pdf renderer: create output dir: %w", err)
	}

	conf := r.conf
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.RenderImagesFile(inFile, outDir, []string{"1"}, conf); err != nil {
		return nil, fmt.Errorf("pdf renderer: render page 1: %w", err)
	}

	rendered, err := firstFileIn(outDir)
	if err != nil {
		return nil, fmt.Errorf("pdf renderer: read rendered output: %w", err)
	}

	return os.ReadFile(rendered)
}

func firstFileIn(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("no rendered output file found in %s", dir)
}
