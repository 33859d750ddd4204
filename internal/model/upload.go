package model

import "time"

// Upload is a spreadsheet file uploaded through the dashboard. Its content is
// stored alongside and served as the source "upload:<id>".
type Upload struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Format     string    `json:"format"` // "csv" or "xlsx"
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum"` // hex SHA-256 of the content
	UploadedAt time.Time `json:"uploaded_at"`
}

// UploadSourcePrefix prefixes the source id of an uploaded file.
const UploadSourcePrefix = "upload:"

// SourceID returns the source id the upload is registered under.
func (u *Upload) SourceID() string {
	return UploadSourcePrefix + u.ID
}
