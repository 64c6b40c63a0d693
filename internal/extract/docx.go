package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// legacy Office binaries (.doc, .xls) are OLE compound files
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

var errLegacyDoc = errors.New("формат .doc не поддерживается, сохраните файл как .docx")

func extractDOCX(data []byte) Result {
	if bytes.HasPrefix(data, oleMagic) {
		return failed(KindDOCX, errLegacyDoc)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return failed(KindDOCX, fmt.Errorf("open docx: %w", err))
	}
	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return failed(KindDOCX, errors.New("word/document.xml not found"))
	}
	rc, err := body.Open()
	if err != nil {
		return failed(KindDOCX, fmt.Errorf("open document.xml: %w", err))
	}
	defer rc.Close()

	paragraphs, rows, err := parseDocumentXML(rc)
	if err != nil {
		return failed(KindDOCX, err)
	}

	var blocks []string
	if len(paragraphs) > 0 {
		blocks = append(blocks, "📝 Текст документа:\n"+strings.Join(paragraphs, "\n"))
	}
	if len(rows) > 0 {
		blocks = append(blocks, "📊 Таблицы:\n"+strings.Join(rows, "\n"))
	}
	if len(blocks) == 0 {
		return empty(KindDOCX)
	}
	return ok(KindDOCX, strings.Join(blocks, "\n\n"))
}

// parseDocumentXML returns the non-blank body paragraphs and the rows of the
// top-level tables, cells joined by " | " with blank cells dropped. Text of
// nested tables is folded into the enclosing cell.
func parseDocumentXML(r io.Reader) (paragraphs, rows []string, err error) {
	dec := xml.NewDecoder(r)
	var (
		tableDepth int
		runDepth   int
		inText     bool
		para       strings.Builder
		cell       strings.Builder
		cellParas  int
		cells      []string
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "tr":
				if tableDepth == 1 {
					cells = cells[:0]
				}
			case "tc":
				if tableDepth == 1 {
					cell.Reset()
					cellParas = 0
				}
			case "p":
				para.Reset()
			case "r":
				runDepth++
			case "t":
				inText = true
			case "tab":
				// w:pPr/w:tabs holds tab stops, not characters
				if runDepth > 0 {
					para.WriteByte('\t')
				}
			case "br", "cr":
				if runDepth > 0 {
					para.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				runDepth--
			case "t":
				inText = false
			case "p":
				text := para.String()
				if tableDepth == 0 {
					if strings.TrimSpace(text) != "" {
						paragraphs = append(paragraphs, text)
					}
					continue
				}
				if cellParas > 0 {
					cell.WriteByte('\n')
				}
				cell.WriteString(text)
				cellParas++
			case "tc":
				if tableDepth == 1 {
					if s := strings.TrimSpace(cell.String()); s != "" {
						cells = append(cells, s)
					}
				}
			case "tr":
				if tableDepth == 1 && len(cells) > 0 {
					rows = append(rows, strings.Join(cells, " | "))
				}
			case "tbl":
				tableDepth--
			}
		}
	}
	return paragraphs, rows, nil
}
