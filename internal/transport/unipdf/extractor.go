// Package unipdf extracts page text from PDF files with UniPDF.
package unipdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

var licenseOnce sync.Once

// Extractor reads PDFs page by page.
type Extractor struct{}

// New activates the metered license key, once per process, and returns an Extractor.
// An empty key leaves UniPDF unlicensed, which it reports at extraction time.
func New(licenseKey string) (*Extractor, error) {
	var err error
	if licenseKey != "" {
		licenseOnce.Do(func() {
			err = license.SetMeteredKey(licenseKey)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("set unipdf license: %w", err)
	}
	return &Extractor{}, nil
}

// ExtractFile extracts the text of the PDF at path.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	return e.Extract(ctx, f)
}

// Extract returns the text of every page in order, pages joined by a blank line.
func (e *Extractor) Extract(ctx context.Context, r io.ReadSeeker) (string, error) {
	reader, err := model.NewPdfReader(r)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("count pages: %w", err)
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page, err := reader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("page %d: extract text: %w", i, err)
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n\n"), nil
}
