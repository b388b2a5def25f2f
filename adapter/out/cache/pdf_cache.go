package cache

import (
	"os"
	"path/filepath"
)

// PDFCache implements out.PDFCache as a flat directory of raw PDF bytes on
// local disk, avoiding a re-download across runs for the same paper.
type PDFCache struct {
	dir string
}

func NewPDFCache(dir string) *PDFCache {
	return &PDFCache{dir: dir}
}

func (c *PDFCache) Get(arxivID string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(arxivID))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *PDFCache) Put(arxivID string, pdfBytes []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path(arxivID), pdfBytes, 0o644)
}

func (c *PDFCache) path(arxivID string) string {
	return filepath.Join(c.dir, arxivID+".pdf")
}
