package source

import (
	"bytes"
	"context"

	"github.com/martinsuchenak/camdash/internal/model"
)

// ContentReader reads the stored bytes of an upload.
type ContentReader interface {
	ReadUpload(id string) ([]byte, error)
}

// UploadSource serves a stored upload as source "upload:<id>".
type UploadSource struct {
	upload model.Upload
	store  ContentReader
}

// NewUploadSource wraps a stored upload. The upload's format must be known.
func NewUploadSource(u model.Upload, store ContentReader) (*UploadSource, error) {
	if _, err := FormatFromName("x." + u.Format); err != nil {
		return nil, err
	}
	return &UploadSource{upload: u, store: store}, nil
}

func (s *UploadSource) ID() string           { return s.upload.SourceID() }
func (s *UploadSource) Kind() string         { return "upload" }
func (s *UploadSource) Upload() model.Upload { return s.upload }

func (s *UploadSource) Fetch(ctx context.Context) (*Table, error) {
	content, err := s.store.ReadUpload(s.upload.ID)
	if err != nil {
		return nil, err
	}
	return Read(bytes.NewReader(content), Format(s.upload.Format))
}
