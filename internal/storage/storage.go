package storage

import (
	"errors"

	"github.com/martinsuchenak/camdash/internal/model"
)

var (
	ErrUploadNotFound = errors.New("upload not found")
	ErrInvalidID      = errors.New("invalid upload ID")
)

// UploadStorage defines the interface for uploaded spreadsheet storage
type UploadStorage interface {
	ListUploads() ([]model.Upload, error)
	GetUpload(id string) (*model.Upload, error)
	FindUploadByChecksum(checksum string) (*model.Upload, error)
	ReadUpload(id string) ([]byte, error)
	CreateUpload(upload *model.Upload, content []byte) error
	DeleteUpload(id string) error
}
