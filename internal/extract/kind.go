package extract

import (
	"path/filepath"
	"strings"
)

// Kind is the document family an attachment belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindPDF
	KindDOCX
	KindXLSX
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindPDF:
		return "pdf"
	case KindDOCX:
		return "docx"
	case KindXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

var extensionKinds = map[string]Kind{
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".bmp":  KindImage,
	".tiff": KindImage,
	".tif":  KindImage,
	".webp": KindImage,
	".gif":  KindImage,
	".pdf":  KindPDF,
	".docx": KindDOCX,
	".doc":  KindDOCX,
	".xlsx": KindXLSX,
	".xls":  KindXLSX,
}

// Classify resolves the kind from the file extension and falls back to the
// declared MIME type when the extension is missing or not recognized.
func Classify(fileName, mimeType string) Kind {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(fileName)))
	if kind, ok := extensionKinds[ext]; ok {
		return kind
	}
	return kindFromMIME(mimeType)
}

func kindFromMIME(mimeType string) Kind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case mt == "":
		return KindUnknown
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case mt == "application/pdf":
		return KindPDF
	case strings.Contains(mt, "wordprocessingml"), mt == "application/msword":
		return KindDOCX
	case strings.Contains(mt, "spreadsheetml"), mt == "application/vnd.ms-excel":
		return KindXLSX
	default:
		return KindUnknown
	}
}
