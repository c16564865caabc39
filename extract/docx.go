package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/packager"
	"github.com/gomutex/godocx/wml/ctypes"
)

const (
	docxMediaDir   = "word/media/"
	docxImageLabel = "Embedded DOCX Image"
)

// DOCXText returns the paragraph text of a .docx document, paragraphs
// separated by a blank line. When ocr is set, each embedded image is run
// through it and any recognized text is appended in a marked section.
func DOCXText(ctx context.Context, data []byte, ocr OCR) (string, error) {
	doc, err := packager.Unpack(&data)
	if err != nil {
		return "", fmt.Errorf("opening docx: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(paragraphs(doc), "\n\n"))

	if ocr == nil {
		return sb.String(), nil
	}
	for _, m := range media(doc) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := ocr.Recognize(ctx, m.data)
		if err != nil {
			slog.Warn("docx: ocr failed", "name", m.name, "err", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			sb.WriteString(ocrSection(docxImageLabel, text))
		}
	}
	return sb.String(), nil
}

// paragraphs returns the non-empty top-level body paragraphs.
func paragraphs(doc *docx.RootDoc) []string {
	if doc.Document == nil || doc.Document.Body == nil {
		return nil
	}
	var out []string
	for _, child := range doc.Document.Body.Children {
		if child.Para == nil {
			continue
		}
		if p := strings.TrimSpace(paragraphText(child.Para.GetCT())); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func paragraphText(p *ctypes.Paragraph) string {
	var sb strings.Builder
	for _, pc := range p.Children {
		if pc.Run == nil {
			continue
		}
		for _, rc := range pc.Run.Children {
			switch {
			case rc.Text != nil:
				sb.WriteString(rc.Text.Text)
			case rc.Tab != nil:
				sb.WriteByte('\t')
			case rc.Break != nil, rc.CarrRtn != nil:
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}

type mediaPart struct {
	name string
	data []byte
}

// media returns the word/media parts sorted by name.
func media(doc *docx.RootDoc) []mediaPart {
	var parts []mediaPart
	doc.FileMap.Range(func(k, v any) bool {
		name, ok := k.(string)
		if !ok || !strings.HasPrefix(name, docxMediaDir) {
			return true
		}
		if data, ok := v.([]byte); ok && len(data) > 0 {
			parts = append(parts, mediaPart{name: name, data: data})
		}
		return true
	})
	sort.Slice(parts, func(i, j int) bool { return parts[i].name < parts[j].name })
	return parts
}
