package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/martinsuchenak/camdash/internal/log"
	"github.com/martinsuchenak/camdash/internal/model"
)

// SQLiteStorage implements UploadStorage with SQLite backend
type SQLiteStorage struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewSQLiteStorage creates a new SQLite-based storage
func NewSQLiteStorage(dataDir string) (*SQLiteStorage, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, "uploads.db")

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer
	db.SetMaxIdleConns(1)

	ss := &SQLiteStorage{
		db:   db,
		path: dbPath,
	}

	if err := ss.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return ss, nil
}

// Path returns the database file path
func (ss *SQLiteStorage) Path() string {
	return ss.path
}

// Close closes the database connection
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

const uploadColumns = `id, name, format, size, checksum, uploaded_at`

// ListUploads returns all uploads, newest first
func (ss *SQLiteStorage) ListUploads() ([]model.Upload, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	rows, err := ss.db.Query(`SELECT ` + uploadColumns + ` FROM uploads ORDER BY uploaded_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying uploads: %w", err)
	}
	defer rows.Close()

	uploads := make([]model.Upload, 0)
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *u)
	}
	return uploads, rows.Err()
}

// GetUpload retrieves upload metadata by ID
func (ss *SQLiteStorage) GetUpload(id string) (*model.Upload, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return scanUpload(ss.db.QueryRow(`SELECT `+uploadColumns+` FROM uploads WHERE id = ?`, id))
}

// FindUploadByChecksum returns the upload with identical content, if any
func (ss *SQLiteStorage) FindUploadByChecksum(checksum string) (*model.Upload, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return scanUpload(ss.db.QueryRow(`SELECT `+uploadColumns+` FROM uploads WHERE checksum = ? LIMIT 1`, checksum))
}

// ReadUpload returns the stored file content
func (ss *SQLiteStorage) ReadUpload(id string) ([]byte, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	ss.mu.RLock()
	defer ss.mu.RUnlock()

	var content []byte
	err := ss.db.QueryRow(`SELECT content FROM uploads WHERE id = ?`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return content, nil
}

// CreateUpload stores a new upload. ID, Size, Checksum and UploadedAt are
// filled in when empty.
func (ss *SQLiteStorage) CreateUpload(upload *model.Upload, content []byte) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if upload.ID == "" {
		upload.ID = generateUUID()
	}
	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = time.Now().UTC()
	}
	upload.Size = int64(len(content))
	upload.Checksum = Checksum(content)

	_, err := ss.db.Exec(`
		INSERT INTO uploads (id, name, format, size, checksum, content, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, upload.ID, upload.Name, upload.Format, upload.Size, upload.Checksum, content, upload.UploadedAt)
	if err != nil {
		return fmt.Errorf("inserting upload: %w", err)
	}
	return nil
}

// DeleteUpload removes an upload and its content
func (ss *SQLiteStorage) DeleteUpload(id string) error {
	if id == "" {
		return ErrInvalidID
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	result, err := ss.db.Exec(`DELETE FROM uploads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting upload: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrUploadNotFound
	}
	return nil
}

// Checksum returns the hex SHA-256 of content
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*model.Upload, error) {
	var u model.Upload
	err := row.Scan(&u.ID, &u.Name, &u.Format, &u.Size, &u.Checksum, &u.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning upload: %w", err)
	}
	return &u, nil
}

func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		log.Error("Failed to generate UUID", "error", err)
		return uuid.New().String()
	}
	return id.String()
}
