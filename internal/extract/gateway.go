// Package extract turns uploaded artifacts into raw document text and raw
// text into a structured property record.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imovel-limpo/engine/internal/domain"
	"github.com/imovel-limpo/engine/internal/llm"
	"github.com/imovel-limpo/engine/internal/observability"
)

const (
	// MaxUploadBytes caps incoming artifacts before any processing happens.
	MaxUploadBytes = 10 << 20

	// MaxPDFPages caps rasterization regardless of the document's true length.
	MaxPDFPages = 10

	ocrMaxTokens = 4096
)

// Extraction methods reported to callers.
const (
	MethodPlainText = "plain_text"
	MethodImageOCR  = "image_ocr"
	MethodPDFOCR    = "pdf_to_image_ocr"
)

// Upload is an incoming artifact: raw bytes plus a declared media type, or a
// media type inferred from the filename extension when undeclared.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".txt":  "text/plain",
}

// MediaType resolves the effective media type of the upload.
func (u Upload) MediaType() string {
	if u.ContentType != "" {
		return u.ContentType
	}
	ext := strings.ToLower(filepath.Ext(u.Filename))
	if mt, ok := extensionTypes[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Gateway turns an uploaded artifact into raw document text.
type Gateway struct {
	completer  llm.Completer
	rasterizer domain.Rasterizer
	logger     *observability.Logger
}

// NewGateway creates a new extraction gateway.
func NewGateway(completer llm.Completer, rasterizer domain.Rasterizer, logger *observability.Logger) *Gateway {
	return &Gateway{
		completer:  completer,
		rasterizer: rasterizer,
		logger:     logger.WithComponent("extract-gateway"),
	}
}

// Extract produces the raw text of the upload and the method used. Uploads
// over MaxUploadBytes are rejected before any external call is made.
func (g *Gateway) Extract(ctx context.Context, up Upload) (string, string, error) {
	if len(up.Data) > MaxUploadBytes {
		return "", "", domain.ValidationError(
			fmt.Sprintf("Arquivo muito grande (máximo %d MB).", MaxUploadBytes>>20), nil)
	}

	mediaType := up.MediaType()
	g.logger.Info().
		Str("file", up.Filename).
		Str("media_type", mediaType).
		Int("size_bytes", len(up.Data)).
		Msg("Extracting uploaded document")

	switch {
	case mediaType == "text/plain":
		return string(up.Data), MethodPlainText, nil

	case mediaType == "application/pdf":
		text, err := g.extractPDF(ctx, up.Data)
		if err != nil {
			return "", "", err
		}
		return text, MethodPDFOCR, nil

	case strings.HasPrefix(mediaType, "image/"):
		text, err := g.recognizeImage(ctx, mediaType, up.Data)
		if err != nil {
			return "", "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", "", domain.EmptyExtractionError(
				"Não foi possível extrair texto da imagem.", nil)
		}
		return text, MethodImageOCR, nil

	default:
		return "", "", domain.UnsupportedMediaError(
			"Tipo não suportado. Use PDF, imagem ou texto.", nil)
	}
}

// extractPDF rasterizes up to MaxPDFPages pages and recognizes each one.
// A missing page means the document ended; a failing page stops the loop but
// keeps the text gathered so far, since a partial matrícula is still useful.
func (g *Gateway) extractPDF(ctx context.Context, pdfBytes []byte) (string, error) {
	doc, err := g.rasterizer.Open(ctx, pdfBytes)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			g.logger.Warn().Err(cerr).Msg("Failed to clean up rasterized pages")
		}
	}()

	var pageTexts []string
	for page := 1; page <= MaxPDFPages; page++ {
		img, err := doc.RenderPage(ctx, page)
		if err != nil {
			if errors.Is(err, domain.ErrNoSuchPage) {
				g.logger.Debug().Int("page", page).Msg("Reached end of document")
				break
			}
			if ctx.Err() != nil {
				return "", err
			}
			g.logger.Warn().Err(err).Int("page", page).
				Msg("Page processing failed, keeping pages extracted so far")
			break
		}

		imageData, err := os.ReadFile(img.ImagePath)
		if err != nil {
			return "", domain.IOError(fmt.Sprintf("failed to read rendered page %d", page), err)
		}

		text, err := g.recognizeImage(ctx, "image/png", imageData)
		if err != nil {
			if ctx.Err() != nil {
				return "", err
			}
			g.logger.Warn().Err(err).Int("page", page).
				Msg("Page recognition failed, keeping pages extracted so far")
			break
		}

		g.logger.Info().Int("page", page).Int("chars", len(text)).Msg("Page recognized")
		if strings.TrimSpace(text) != "" {
			pageTexts = append(pageTexts, fmt.Sprintf("--- PÁGINA %d ---\n%s", page, text))
		}
	}

	full := strings.Join(pageTexts, "\n\n")
	if strings.TrimSpace(full) == "" {
		return "", domain.EmptyExtractionError("Não foi possível extrair texto do PDF.", nil)
	}

	g.logger.Info().Int("pages", len(pageTexts)).Int("chars", len(full)).
		Msg("PDF text extraction finished")
	return full, nil
}

func (g *Gateway) recognizeImage(ctx context.Context, mime string, data []byte) (string, error) {
	resp, err := g.completer.Complete(ctx, llm.Request{
		Prompt:    ocrPrompt,
		Image:     &llm.Image{MIME: mime, Data: data},
		MaxTokens: ocrMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
