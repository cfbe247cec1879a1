package domain

import (
	"context"
	"errors"
)

// ErrNoSuchPage is returned by RasterDocument.RenderPage when the requested
// page does not exist. It marks the end of the document, not a failure.
var ErrNoSuchPage = errors.New("no such page")

// PageImage represents a single rasterized document page.
type PageImage struct {
	PageNumber int
	ImagePath  string // path to the temporary image file
	Width      int
	Height     int
}

// Rasterizer turns raw PDF bytes into page images on demand.
type Rasterizer interface {
	// Open prepares a document session. The returned document owns a scoped
	// temporary area and must be closed by the caller.
	Open(ctx context.Context, pdf []byte) (RasterDocument, error)
}

// RasterDocument renders individual pages of an opened PDF.
type RasterDocument interface {
	// RenderPage rasterizes the 1-based page to an image file and returns its
	// location. ErrNoSuchPage signals that the page is past the end.
	RenderPage(ctx context.Context, page int) (*PageImage, error)

	// Close releases the document and removes its temporary files.
	Close() error
}
