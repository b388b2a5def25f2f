package out

import "context"

// PDFFetcher downloads the raw bytes of an arxiv paper's PDF.
type PDFFetcher interface {
	Fetch(ctx context.Context, arxivID string) ([]byte, error)
}

// PDFRenderer renders page 1 of a PDF to a PNG cover image. This is the only
// stage explicitly off-loaded to a worker thread since it is CPU-bound.
// A nil PDFRenderer is a valid configuration for "rendering toolchain
// unavailable"; the enhancer then leaves the cover-image fields empty.
type PDFRenderer interface {
	RenderCoverImage(ctx context.Context, pdfBytes []byte) ([]byte, error)
}

// ImageUploader stores a rendered cover image and returns its hero image key.
type ImageUploader interface {
	Upload(ctx context.Context, imageBytes []byte, fileName string) (key string, url string, err error)
}
