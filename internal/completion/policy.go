package completion

import "strings"

// RefusalMessage is returned instead of a completion when the policy rejects a turn.
const RefusalMessage = "🙅 Я консультирую только по продуктам Microsoft Office: Word, Excel, PowerPoint, Outlook и другим. Пожалуйста, задайте вопрос по этой теме."

var defaultKeywords = []string{
	"office", "word", "excel", "powerpoint", "outlook", "onenote", "access", "teams", "onedrive",
	"sharepoint", "vba", "макрос", "ворд", "эксел", "офис", "аутлук", "таблиц", "ячейк",
	"формул", "документ", "презентац", "слайд", "диаграм", "шрифт", "абзац", "страниц",
	"лист", "почт", "сводн", "docx", "xlsx", "pptx", "pdf",
}

// Policy is a keyword allow-list over the composed user turn.
type Policy struct {
	keywords []string
}

// NewPolicy lowercases keywords; an empty list selects the built-in Office terms.
func NewPolicy(keywords []string) *Policy {
	if len(keywords) == 0 {
		keywords = defaultKeywords
	}
	p := &Policy{keywords: make([]string, 0, len(keywords))}
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			p.keywords = append(p.keywords, kw)
		}
	}
	return p
}

func (p *Policy) Allows(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range p.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
