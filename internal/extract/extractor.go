// Package extract turns attachment bytes into plain text: OCR for images,
// the native text layer plus OCR fallback for PDF, and structured reads of
// DOCX and XLSX containers.
package extract

import (
	"context"
	"fmt"
	"log"
)

// OCR recognizes text in an encoded raster image.
type OCR interface {
	Recognize(ctx context.Context, image []byte, lang string) (string, error)
}

// Rasterizer renders the inclusive page range first..last of a PDF into one
// encoded image per page, in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte, first, last int) ([][]byte, error)
}

// PageReader returns the native text layer of every PDF page, index 0 being page 1.
type PageReader interface {
	PageTexts(ctx context.Context, pdf []byte) ([]string, error)
}

type Options struct {
	Language   string
	OCR        OCR
	Rasterizer Rasterizer
	Pages      PageReader
}

type Extractor struct {
	lang   string
	ocr    OCR
	raster Rasterizer
	pages  PageReader
}

// New builds an Extractor. Unset backends default to the tesseract and
// pdftoppm command-line tools and the text layer reader.
func New(opts Options) *Extractor {
	e := &Extractor{
		lang:   opts.Language,
		ocr:    opts.OCR,
		raster: opts.Rasterizer,
		pages:  opts.Pages,
	}
	if e.lang == "" {
		e.lang = "rus+eng"
	}
	if e.ocr == nil {
		e.ocr = &Tesseract{}
	}
	if e.raster == nil {
		e.raster = &Pdftoppm{}
	}
	if e.pages == nil {
		e.pages = TextLayerReader{}
	}
	return e
}

// Extract classifies the attachment and extracts its text.
func (e *Extractor) Extract(ctx context.Context, data []byte, fileName, mimeType string) Result {
	return e.ExtractKind(ctx, Classify(fileName, mimeType), data)
}

// ExtractKind extracts text for an already classified attachment. It never
// panics; every failure is reported as a StatusFailed result.
func (e *Extractor) ExtractKind(ctx context.Context, kind Kind, data []byte) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("extract %s panic: %v", kind, r)
			res = failed(kind, fmt.Errorf("internal error: %v", r))
		}
	}()
	if ctx == nil {
		ctx = context.Background()
	}
	switch kind {
	case KindImage:
		res = e.extractImage(ctx, data)
	case KindPDF:
		res = e.extractPDF(ctx, data)
	case KindDOCX:
		res = extractDOCX(data)
	case KindXLSX:
		res = extractXLSX(data)
	default:
		res = failed(KindUnknown, ErrUnsupported)
	}
	if res.Status == StatusFailed {
		log.Printf("extract %s failed: %v", kind, res.Err)
	}
	return res
}
