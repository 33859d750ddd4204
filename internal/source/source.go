package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/martinsuchenak/camdash/internal/model"
)

// Source produces an inventory table on demand.
type Source interface {
	// ID is the stable key the source is cached and addressed under.
	ID() string
	// Kind is "sheet", "file" or "upload".
	Kind() string
	Fetch(ctx context.Context) (*Table, error)
}

// Load fetches and decodes a source into a snapshot stamped with now.
func Load(ctx context.Context, src Source, now time.Time) (*model.Snapshot, error) {
	t, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src.ID(), err)
	}
	snap, err := Decode(t)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", src.ID(), err)
	}
	snap.Source = src.ID()
	snap.FetchedAt = now
	return snap, nil
}

// FileSource reads a local .csv or .xlsx file on every fetch.
type FileSource struct {
	id   string
	path string
}

// NewFileSource returns a source for path, registered as id. The format is
// checked up front.
func NewFileSource(id, path string) (*FileSource, error) {
	if _, err := FormatFromName(path); err != nil {
		return nil, err
	}
	return &FileSource{id: id, path: path}, nil
}

func (s *FileSource) ID() string   { return s.id }
func (s *FileSource) Kind() string { return "file" }
func (s *FileSource) Path() string { return s.path }

func (s *FileSource) Fetch(ctx context.Context) (*Table, error) {
	format, err := FormatFromName(s.path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(s.path), err)
	}
	defer f.Close()
	return Read(f, format)
}

// ReadFile reads and decodes a spreadsheet file in one step.
func ReadFile(path string, now time.Time) (*model.Snapshot, error) {
	src, err := NewFileSource("file", path)
	if err != nil {
		return nil, err
	}
	return Load(context.Background(), src, now)
}
