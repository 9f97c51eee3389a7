package models

import "time"

// FileType classifies a stored attachment by how the chat handler will
// consume it.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeText  FileType = "text"
	FileTypeOther FileType = "other"
)

// Upload records an attachment persisted under the upload directory.
type Upload struct {
	ID           int64     `json:"id"`
	StoredName   string    `json:"stored_name"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	FileType     FileType  `json:"file_type"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
}
