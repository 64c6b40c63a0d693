package extract

import (
	"context"
	"fmt"
	"log"
	"strings"
)

func (e *Extractor) extractPDF(ctx context.Context, data []byte) Result {
	texts, err := e.pages.PageTexts(ctx, data)
	if err != nil {
		return failed(KindPDF, err)
	}

	blocks := make([]string, len(texts))
	var needOCR []int
	for i, text := range texts {
		page := i + 1
		text = strings.TrimSpace(text)
		if text == "" {
			needOCR = append(needOCR, page)
			continue
		}
		blocks[i] = fmt.Sprintf("📄 Страница %d:\n%s", page, text)
	}

	if len(needOCR) > 0 {
		e.ocrPages(ctx, data, needOCR, blocks)
	}

	var out []string
	for _, block := range blocks {
		if block != "" {
			out = append(out, block)
		}
	}
	if len(out) == 0 {
		return empty(KindPDF)
	}
	return ok(KindPDF, strings.Join(out, "\n\n"))
}

// ocrPages rasterizes pages[0]..pages[len-1] in one pass and fills blocks for
// the pages that had no text layer. Failures are logged and leave the native
// blocks untouched.
func (e *Extractor) ocrPages(ctx context.Context, data []byte, pages []int, blocks []string) {
	first, last := pages[0], pages[len(pages)-1]
	images, err := e.raster.Rasterize(ctx, data, first, last)
	if err != nil {
		log.Printf("pdf rasterize pages %d-%d failed: %v", first, last, err)
		return
	}
	for _, page := range pages {
		idx := page - first
		if idx >= len(images) {
			log.Printf("pdf rasterize returned %d images, page %d missing", len(images), page)
			continue
		}
		text, err := e.ocr.Recognize(ctx, images[idx], e.lang)
		if err != nil {
			log.Printf("pdf ocr page %d failed: %v", page, err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			blocks[page-1] = fmt.Sprintf("📄 Страница %d (OCR):\n%s", page, text)
		}
	}
}
