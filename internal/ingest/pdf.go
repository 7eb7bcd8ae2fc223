package ingest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFResult reports a per-page PDF ingest.
type PDFResult struct {
	Pages   int      `json:"pages"`
	Results []Result `json:"results"`
}

// PDF renders each page of a PDF to an image and analyzes it, storing one
// parse record per page. Pages are processed in order; a page whose
// analysis fails is stored with a failed status and does not stop the run.
func (in *Ingestor) PDF(ctx context.Context, owner, source, pdfPath string) (*PDFResult, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	pageCount, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("page count for %s: %w", filepath.Base(pdfPath), err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF has no pages: %s", filepath.Base(pdfPath))
	}

	in.logger.Info("ingesting PDF", "file", filepath.Base(pdfPath), "pages", pageCount)

	out := &PDFResult{Pages: pageCount}
	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		image, err := renderPage(pdfPath, page)
		if err != nil {
			return out, fmt.Errorf("render page %d: %w", page, err)
		}

		label := fmt.Sprintf("%s p.%d", filepath.Base(pdfPath), page)
		result, err := in.Image(ctx, owner, source, label, image, "image/png")
		if err != nil {
			return out, fmt.Errorf("page %d: %w", page, err)
		}
		out.Results = append(out.Results, *result)
	}
	return out, nil
}

// renderPage renders a single PDF page to PNG bytes using pdftoppm
// (poppler-utils).
func renderPage(pdfPath string, page int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "kotoba-page-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := fmt.Sprintf("%d", page)
	cmd := exec.Command("pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", "300",
		"-singlefile",
		pdfPath,
		outputPrefix,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return data, nil
}
