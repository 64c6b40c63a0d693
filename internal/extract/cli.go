package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Tesseract runs the tesseract binary, feeding the image through stdin.
type Tesseract struct {
	Binary string
}

func (t *Tesseract) Recognize(ctx context.Context, img []byte, lang string) (string, error) {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	args := []string{"stdin", "stdout"}
	if lang != "" {
		args = append(args, "-l", lang)
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(img)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Pdftoppm renders PDF pages to PNG with poppler's pdftoppm.
type Pdftoppm struct {
	Binary string
	DPI    int
}

func (p *Pdftoppm) Rasterize(ctx context.Context, pdf []byte, first, last int) ([][]byte, error) {
	bin := p.Binary
	if bin == "" {
		bin = "pdftoppm"
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 300
	}
	dir, err := os.MkdirTemp("", "officebot-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, bin,
		"-png", "-r", strconv.Itoa(dpi),
		"-f", strconv.Itoa(first), "-l", strconv.Itoa(last),
		input, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	files, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(files) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images for pages %d-%d", first, last)
	}
	sortPageFiles(files)
	images := make([][]byte, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read page image: %w", err)
		}
		images = append(images, data)
	}
	return images, nil
}

// sortPageFiles orders page-<n>.png files by n; pdftoppm pads n inconsistently
// across page counts so a lexical sort is not enough.
func sortPageFiles(files []string) {
	pageNum := func(path string) int {
		base := strings.TrimSuffix(filepath.Base(path), ".png")
		n, _ := strconv.Atoi(base[strings.LastIndexByte(base, '-')+1:])
		return n
	}
	sort.Slice(files, func(i, j int) bool { return pageNum(files[i]) < pageNum(files[j]) })
}
