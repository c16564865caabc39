package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageImage is one embedded image of a PDF page. Index counts from 1
// within its page.
type PageImage struct {
	Page  int
	Index int
	Data  []byte
}

func (img PageImage) label() string {
	return fmt.Sprintf("PDF Image (Page %d, Image %d)", img.Page, img.Index)
}

var disableConfigDir sync.Once

// pdfcpu reads and writes a config dir under the user's home unless told not to.
func pdfcpuConfig() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	return model.NewDefaultConfiguration()
}

// PDFImages returns the embedded images of every page in page order.
// Thumbnails are skipped.
func PDFImages(data []byte) (images []PageImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			images, err = nil, fmt.Errorf("reading pdf images: %v", r)
		}
	}()

	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, pdfcpuConfig())
	if err != nil {
		return nil, fmt.Errorf("reading pdf images: %w", err)
	}

	for _, byObj := range pages {
		objNrs := make([]int, 0, len(byObj))
		for nr := range byObj {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)

		index := 0
		for _, nr := range objNrs {
			img := byObj[nr]
			if img.Thumb || img.Reader == nil {
				continue
			}
			raw, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("reading image %d on page %d: %w", nr, img.PageNr, err)
			}
			index++
			images = append(images, PageImage{Page: img.PageNr, Index: index, Data: raw})
		}
	}
	sort.SliceStable(images, func(i, j int) bool { return images[i].Page < images[j].Page })
	return images, nil
}

// ocrPageImages runs each image through ocr and renders the non-empty
// results as marked sections. Failing images are logged and skipped.
func ocrPageImages(ctx context.Context, images []PageImage, ocr OCR) (string, error) {
	var sb strings.Builder
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := ocr.Recognize(ctx, img.Data)
		if err != nil {
			slog.Warn("pdf: ocr failed", "page", img.Page, "image", img.Index, "err", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			sb.WriteString(ocrSection(img.label(), text))
		}
	}
	return sb.String(), nil
}
