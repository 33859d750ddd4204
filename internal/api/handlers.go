package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/martinsuchenak/camdash/internal/cache"
	"github.com/martinsuchenak/camdash/internal/log"
	"github.com/martinsuchenak/camdash/internal/model"
	"github.com/martinsuchenak/camdash/internal/source"
	"github.com/martinsuchenak/camdash/internal/storage"
)

// Inventory is the snapshot layer the handlers read from. *worker.Refresher
// implements it.
type Inventory interface {
	Snapshot(ctx context.Context, id string) (*model.Snapshot, error)
	Refresh(ctx context.Context, id string) (*model.Snapshot, error)
	Status() []model.SourceStatus
	Add(src source.Source) error
	Remove(id string) bool
}

// Handler handles HTTP requests
type Handler struct {
	inventory  Inventory
	uploads    storage.UploadStorage
	windowDays int
	maxUpload  int64
	now        func() time.Time
}

// DefaultMaxUpload caps the size of an uploaded spreadsheet
const DefaultMaxUpload = 32 << 20

// NewHandler creates a new API handler. uploads may be nil, in which case
// the upload routes answer 503.
func NewHandler(inv Inventory, uploads storage.UploadStorage, windowDays int) *Handler {
	return &Handler{
		inventory:  inv,
		uploads:    uploads,
		windowDays: windowDays,
		maxUpload:  DefaultMaxUpload,
		now:        time.Now,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Sources
	mux.HandleFunc("GET /api/sources", h.listSources)
	mux.HandleFunc("POST /api/sources/{id}/refresh", h.refreshSource)

	// Report views
	mux.HandleFunc("GET /api/report", h.getReport)
	mux.HandleFunc("GET /api/devices", h.listDevices)
	mux.HandleFunc("GET /api/alerts", h.listAlerts)
	mux.HandleFunc("GET /api/firmware", h.listFirmwarePending)
	mux.HandleFunc("GET /api/recent", h.listRecentChanges)

	// Uploads
	mux.HandleFunc("GET /api/uploads", h.listUploads)
	mux.HandleFunc("POST /api/uploads", h.createUpload)
	mux.HandleFunc("GET /api/uploads/{id}", h.getUpload)
	mux.HandleFunc("GET /api/uploads/{id}/content", h.downloadUpload)
	mux.HandleFunc("DELETE /api/uploads/{id}", h.deleteUpload)
}

// listSources handles GET /api/sources
func (h *Handler) listSources(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.inventory.Status())
}

// refreshSource handles POST /api/sources/{id}/refresh
func (h *Handler) refreshSource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "source ID required")
		return
	}

	snap, err := h.inventory.Refresh(r.Context(), id)
	if err != nil {
		h.sourceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"source":     snap.Source,
		"devices":    len(snap.Devices),
		"missing":    snap.Missing,
		"fetched_at": snap.FetchedAt,
	})
}

// sourceError maps snapshot and decode errors to a response
func (h *Handler) sourceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cache.ErrSourceNotFound):
		h.writeError(w, http.StatusNotFound, "source not found")
	case errors.Is(err, source.ErrInvalidTable):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, source.ErrUnsupportedFormat):
		h.writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, http.StatusGatewayTimeout, "source fetch timed out")
	default:
		log.Error("Source fetch failed", "error", err)
		h.writeError(w, http.StatusBadGateway, "fetching source failed")
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// internalError logs the error and writes a generic 500 response
func (h *Handler) internalError(w http.ResponseWriter, err error) {
	log.Error("Internal Server Error", "error", err)
	h.writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

// StaticFileHandler serves in-memory content such as a stored upload
type StaticFileHandler struct {
	name        string
	contentType string
	modTime     time.Time
	content     io.ReadSeeker
}

// NewStaticFileHandler creates a handler for serving static content
func NewStaticFileHandler(name, contentType string, modTime time.Time, content io.ReadSeeker) http.Handler {
	return &StaticFileHandler{
		name:        name,
		contentType: contentType,
		modTime:     modTime,
		content:     content,
	}
}

func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", h.contentType)
	http.ServeContent(w, r, h.name, h.modTime, h.content)
}
