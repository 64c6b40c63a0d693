package bot

import "fmt"

const (
	greetingText = "Привет! 📎\n" +
		"Я помогаю с Microsoft Office: Word, Excel, PowerPoint, Outlook.\n" +
		"Вы можете прислать:\n" +
		"• Текстовый вопрос по Microsoft Office\n" +
		"• Фото (скриншот)\n" +
		"• Файл-изображение (JPG, PNG, BMP, TIFF, WEBP)\n" +
		"• PDF, DOCX или XLSX документ\n" +
		"Я помогу разобраться!"

	helpText = "Команды:\n" +
		"/start — приветствие\n" +
		"/help — эта справка\n" +
		"/clear — очистить историю диалога\n\n" +
		"Пришлите вопрос, скриншот или документ (изображение, PDF, DOCX, XLSX). " +
		"Подпись к файлу будет использована как вопрос."

	clearedText     = "🧹 История диалога очищена."
	clearFailedText = "⚠️ Не удалось очистить историю. Попробуйте позже."
	photoProgress   = "📸 Обрабатываю фото..."
	unsupportedText = "Поддерживаются только изображения (JPG, PNG и др.), PDF, DOCX и XLSX файлы."
	unknownInput    = "Отправьте текстовый вопрос, фото или документ."
	busyText        = "⏳ Слишком много запросов, попробуйте через минуту."
	downloadFailed  = "⚠️ Не удалось загрузить файл. Попробуйте ещё раз."

	previewLength = 300
)

func fileProgress(name string) string {
	return fmt.Sprintf("📎 Обрабатываю файл: %s...", name)
}

func tooLargeText(maxBytes int64) string {
	return fmt.Sprintf("⚠️ Файл слишком большой. Максимальный размер: %d МБ.", maxBytes>>20)
}

// previewText shows the first previewLength characters of the recognized text.
func previewText(fileName, text string) string {
	runes := []rune(text)
	preview := text
	if len(runes) > previewLength {
		preview = string(runes[:previewLength]) + "..."
	}
	if fileName == "" {
		return "Распознано:\n" + preview
	}
	return fmt.Sprintf("Файл: %s\nРаспознано:\n%s", fileName, preview)
}
