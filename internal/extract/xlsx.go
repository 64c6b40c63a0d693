package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var sheetDelimiter = "\n\n" + strings.Repeat("=", 50) + "\n\n"

var errLegacyXLS = errors.New("формат .xls не поддерживается, сохраните файл как .xlsx")

func extractXLSX(data []byte) Result {
	if bytes.HasPrefix(data, oleMagic) {
		return failed(KindXLSX, errLegacyXLS)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return failed(KindXLSX, fmt.Errorf("open xlsx: %w", err))
	}
	defer f.Close()

	var sheets []string
	for _, name := range f.GetSheetList() {
		// cached values only, formulas are not evaluated
		rows, err := f.GetRows(name)
		if err != nil {
			return failed(KindXLSX, fmt.Errorf("read sheet %s: %w", name, err))
		}
		var lines []string
		for _, row := range rows {
			if blankRow(row) {
				continue
			}
			lines = append(lines, strings.Join(row, "\t"))
		}
		if len(lines) > 0 {
			sheets = append(sheets, fmt.Sprintf("📊 Лист: %s\n%s", name, strings.Join(lines, "\n")))
		}
	}
	if len(sheets) == 0 {
		return empty(KindXLSX)
	}
	return ok(KindXLSX, strings.Join(sheets, sheetDelimiter))
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
