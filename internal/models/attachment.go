package models

// Attachment describes a file sent to the bot before it is downloaded.
// It only lives for the duration of one update.
type Attachment struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}
