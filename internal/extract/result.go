package extract

import (
	"errors"
	"fmt"
)

type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// ErrUnsupported is carried by results for attachments of KindUnknown.
var ErrUnsupported = errors.New("unsupported file type")

// Result is the outcome of one extraction. Text is set only for StatusOK and
// Err only for StatusFailed.
type Result struct {
	Kind   Kind
	Status Status
	Text   string
	Err    error
}

func ok(kind Kind, text string) Result {
	return Result{Kind: kind, Status: StatusOK, Text: text}
}

func empty(kind Kind) Result {
	return Result{Kind: kind, Status: StatusEmpty}
}

func failed(kind Kind, err error) Result {
	return Result{Kind: kind, Status: StatusFailed, Err: err}
}

func (r Result) OK() bool { return r.Status == StatusOK }

// Message renders the result for the chat user.
func (r Result) Message() string {
	switch r.Status {
	case StatusOK:
		return r.Text
	case StatusEmpty:
		return emptyMessage(r.Kind)
	default:
		return failureMessage(r.Kind, r.Err)
	}
}

func emptyMessage(kind Kind) string {
	switch kind {
	case KindImage:
		return "📷 Текст на изображении не распознан"
	case KindPDF:
		return "📄 В PDF не найден текст"
	case KindDOCX:
		return "📝 Документ пуст"
	case KindXLSX:
		return "📊 Файл не содержит данных"
	default:
		return "Текст не найден"
	}
}

func failureMessage(kind Kind, err error) string {
	reason := "неизвестная ошибка"
	if err != nil {
		reason = err.Error()
	}
	switch kind {
	case KindImage:
		return fmt.Sprintf("❌ Ошибка распознавания изображения: %s", reason)
	case KindPDF:
		return fmt.Sprintf("❌ Ошибка обработки PDF: %s", reason)
	case KindDOCX:
		return fmt.Sprintf("❌ Ошибка обработки DOCX: %s", reason)
	case KindXLSX:
		return fmt.Sprintf("❌ Ошибка обработки XLSX: %s", reason)
	default:
		return "❌ Неподдерживаемый тип файла. Отправьте изображение, PDF, DOCX или XLSX."
	}
}
