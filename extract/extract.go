// Package extract pulls plain text out of uploaded documents.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// OCR reads text from an image. Implementations should honor ctx.
type OCR interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Extractor dispatches on MIME type to the PDF or DOCX extractor.
type Extractor struct {
	ocr OCR
}

// New returns an Extractor. ocr may be nil, in which case embedded images
// are skipped.
func New(ocr OCR) *Extractor {
	return &Extractor{ocr: ocr}
}

func (e *Extractor) Supports(mimeType string) bool {
	switch normalizeMIME(mimeType) {
	case MIMEPDF, MIMEDOCX:
		return true
	}
	return false
}

// Extract returns the document text with OCR'd image text appended in
// marked sections.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	switch normalizeMIME(mimeType) {
	case MIMEPDF:
		text, err := PDFText(data)
		if err != nil || e.ocr == nil {
			return text, err
		}
		images, err := PDFImages(data)
		if err != nil {
			slog.Warn("pdf: skipping image text", "err", err)
			return text, nil
		}
		ocrText, err := ocrPageImages(ctx, images, e.ocr)
		if err != nil {
			return "", err
		}
		return text + ocrText, nil
	case MIMEDOCX:
		return DOCXText(ctx, data, e.ocr)
	default:
		return "", fmt.Errorf("unsupported file type: %s", mimeType)
	}
}

// normalizeMIME drops parameters such as "; charset=binary".
func normalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func ocrSection(where, text string) string {
	return "\n--- OCR Text from " + where + " ---\n" + text + "\n--- End OCR ---"
}
