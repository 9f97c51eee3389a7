package models

// Attachment references a previously stored file by its generated name.
// It is produced by the client and only ever resolved against the
// upload directory.
type Attachment struct {
	Filename     string `json:"filename"`
	IsScreenshot bool   `json:"isScreenshot"`
}
