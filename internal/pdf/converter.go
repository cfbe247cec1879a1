// Package pdf implements PDF page rasterization using go-fitz.
package pdf

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"

	"github.com/imovel-limpo/engine/internal/domain"
)

// Render resolution. 200 DPI keeps small print legible for text recognition
// without producing images the vision service rejects for size.
const renderDPI = 200

// Converter opens PDF documents for page-by-page rasterization.
type Converter struct{}

// NewConverter creates a new PDF converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Open loads the PDF from memory and prepares a scoped temporary directory
// for rendered pages. The caller must Close the returned document.
func (c *Converter) Open(ctx context.Context, pdfBytes []byte) (domain.RasterDocument, error) {
	if len(pdfBytes) == 0 {
		return nil, domain.ValidationError("arquivo vazio", nil)
	}

	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return nil, domain.ConversionError(
			"Erro ao processar PDF. Tente enviar como imagem.", err)
	}

	tempDir, err := os.MkdirTemp("", "matricula-pages-*")
	if err != nil {
		doc.Close()
		return nil, domain.IOError("failed to create temp directory", err)
	}

	return &document{doc: doc, tempDir: tempDir}, nil
}

type document struct {
	doc     *fitz.Document
	tempDir string
}

// RenderPage rasterizes the 1-based page to a PNG file in the document's
// temporary directory. Pages past the end return domain.ErrNoSuchPage.
func (d *document) RenderPage(ctx context.Context, page int) (*domain.PageImage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if page < 1 || page > d.doc.NumPage() {
		return nil, domain.ErrNoSuchPage
	}

	img, err := d.doc.ImageDPI(page-1, renderDPI)
	if err != nil {
		return nil, domain.ConversionError(
			fmt.Sprintf("Erro ao converter a página %d do PDF.", page), err)
	}

	outputPath := filepath.Join(d.tempDir, fmt.Sprintf("page_%03d.png", page))
	outputFile, err := os.Create(outputPath)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("failed to create output file for page %d", page), err)
	}
	err = png.Encode(outputFile, img)
	outputFile.Close()
	if err != nil {
		return nil, domain.ConversionError(
			fmt.Sprintf("Erro ao converter a página %d do PDF.", page), err)
	}

	bounds := boundsOf(img)
	return &domain.PageImage{
		PageNumber: page,
		ImagePath:  outputPath,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
	}, nil
}

// Close releases the underlying document and removes the temporary directory.
func (d *document) Close() error {
	var errs []error

	if d.doc != nil {
		d.doc.Close()
		d.doc = nil
	}

	if d.tempDir != "" {
		if err := os.RemoveAll(d.tempDir); err != nil {
			errs = append(errs, err)
		}
		d.tempDir = ""
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

func boundsOf(img image.Image) image.Rectangle {
	if img == nil {
		return image.Rectangle{}
	}
	return img.Bounds()
}
