package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// images with a longer edge are shrunk before OCR
	maxOCREdge    = 3000
	targetOCREdge = 2500
)

func (e *Extractor) extractImage(ctx context.Context, data []byte) Result {
	encoded, err := prepareImage(data)
	if err != nil {
		return failed(KindImage, err)
	}
	text, err := e.ocr.Recognize(ctx, encoded, e.lang)
	if err != nil {
		return failed(KindImage, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return empty(KindImage)
	}
	return ok(KindImage, text)
}

// prepareImage decodes any supported format, flattens it to opaque RGB on a
// white background, bounds its size and re-encodes it as PNG.
func prepareImage(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	dst := normalizeImage(src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func normalizeImage(src image.Image) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if longest := max(w, h); longest > maxOCREdge {
		w = max(1, w*targetOCREdge/longest)
		h = max(1, h*targetOCREdge/longest)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}
	return dst
}
