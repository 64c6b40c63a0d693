package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var errNoPages = errors.New("pdf has no readable pages")

// TextLayerReader reads the text layer of each page, decoding glyphs through
// the font encodings and ToUnicode maps. Files the reader cannot open are
// rewritten by pdfcpu once and read again.
type TextLayerReader struct{}

func (TextLayerReader) PageTexts(ctx context.Context, data []byte) ([]string, error) {
	r, err := openPDF(data)
	if err != nil {
		repaired, rerr := normalizePDF(data)
		if rerr != nil {
			return nil, fmt.Errorf("open pdf: %w", err)
		}
		if r, err = openPDF(repaired); err != nil {
			return nil, fmt.Errorf("open repaired pdf: %w", err)
		}
	}

	texts := make([]string, r.NumPage())
	for i := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// left empty so the page goes to OCR
			log.Printf("pdf page %d text layer: %v", i+1, err)
			continue
		}
		texts[i] = strings.TrimSpace(text)
	}
	return texts, nil
}

func openPDF(data []byte) (*pdf.Reader, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	if r.NumPage() == 0 {
		return nil, errNoPages
	}
	return r, nil
}

// normalizePDF lets pdfcpu parse, repair and rewrite the file with a plain
// cross-reference table.
func normalizePDF(data []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &out, conf); err != nil {
		return nil, fmt.Errorf("pdfcpu optimize: %w", err)
	}
	return out.Bytes(), nil
}
