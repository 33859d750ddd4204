package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/martinsuchenak/camdash/internal/log"
	"github.com/martinsuchenak/camdash/internal/model"
	"github.com/martinsuchenak/camdash/internal/registry"
	"github.com/martinsuchenak/camdash/internal/source"
	"github.com/martinsuchenak/camdash/internal/storage"
)

var contentTypes = map[source.Format]string{
	source.FormatCSV:  "text/csv; charset=utf-8",
	source.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// uploadResponse is returned when a file is accepted
type uploadResponse struct {
	Upload    model.Upload  `json:"upload"`
	Source    string        `json:"source"`
	Devices   int           `json:"devices"`
	Missing   []model.Field `json:"missing,omitempty"`
	Duplicate bool          `json:"duplicate,omitempty"`
}

func (h *Handler) requireUploads(w http.ResponseWriter) bool {
	if h.uploads == nil {
		h.writeError(w, http.StatusServiceUnavailable, "uploads are disabled")
		return false
	}
	return true
}

// listUploads handles GET /api/uploads
func (h *Handler) listUploads(w http.ResponseWriter, r *http.Request) {
	if !h.requireUploads(w) {
		return
	}

	uploads, err := h.uploads.ListUploads()
	if err != nil {
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, uploads)
}

// getUpload handles GET /api/uploads/{id}
func (h *Handler) getUpload(w http.ResponseWriter, r *http.Request) {
	if !h.requireUploads(w) {
		return
	}

	upload, err := h.uploads.GetUpload(r.PathValue("id"))
	if err != nil {
		h.uploadError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, upload)
}

// downloadUpload handles GET /api/uploads/{id}/content
func (h *Handler) downloadUpload(w http.ResponseWriter, r *http.Request) {
	if !h.requireUploads(w) {
		return
	}

	id := r.PathValue("id")
	upload, err := h.uploads.GetUpload(id)
	if err != nil {
		h.uploadError(w, err)
		return
	}
	content, err := h.uploads.ReadUpload(id)
	if err != nil {
		h.uploadError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(upload.Name)+`"`)
	NewStaticFileHandler(upload.Name, contentTypes[source.Format(upload.Format)], upload.UploadedAt, bytes.NewReader(content)).ServeHTTP(w, r)
}

// createUpload handles POST /api/uploads
func (h *Handler) createUpload(w http.ResponseWriter, r *http.Request) {
	if !h.requireUploads(w) {
		return
	}

	if r.ContentLength > h.maxUpload {
		h.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	format, err := source.FormatFromName(header.Filename)
	if err != nil {
		h.writeError(w, http.StatusUnsupportedMediaType, "only .xlsx and .csv files are accepted")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "reading upload failed")
		return
	}

	// Reject files the decoder cannot read before storing anything.
	table, err := source.Read(bytes.NewReader(content), format)
	if err == nil {
		_, err = source.Decode(table)
	}
	if err != nil {
		h.sourceError(w, err)
		return
	}

	if existing, err := h.uploads.FindUploadByChecksum(storage.Checksum(content)); err == nil {
		if err := h.registerUpload(*existing); err != nil {
			h.internalError(w, err)
			return
		}
		snap, err := h.inventory.Snapshot(r.Context(), existing.SourceID())
		if err != nil {
			h.sourceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, uploadResponse{
			Upload:    *existing,
			Source:    existing.SourceID(),
			Devices:   len(snap.Devices),
			Missing:   snap.Missing,
			Duplicate: true,
		})
		return
	} else if !errors.Is(err, storage.ErrUploadNotFound) {
		h.internalError(w, err)
		return
	}

	upload := &model.Upload{
		Name:   filepath.Base(header.Filename),
		Format: string(format),
	}
	if err := h.uploads.CreateUpload(upload, content); err != nil {
		h.internalError(w, err)
		return
	}

	if err := h.registerUpload(*upload); err != nil {
		h.internalError(w, err)
		return
	}

	snap, err := h.inventory.Snapshot(r.Context(), upload.SourceID())
	if err != nil {
		h.sourceError(w, err)
		return
	}

	log.Info("Upload stored", "id", upload.ID, "name", upload.Name, "devices", len(snap.Devices))
	h.writeJSON(w, http.StatusCreated, uploadResponse{
		Upload:  *upload,
		Source:  upload.SourceID(),
		Devices: len(snap.Devices),
		Missing: snap.Missing,
	})
}

// deleteUpload handles DELETE /api/uploads/{id}
func (h *Handler) deleteUpload(w http.ResponseWriter, r *http.Request) {
	if !h.requireUploads(w) {
		return
	}

	id := r.PathValue("id")
	if err := h.uploads.DeleteUpload(id); err != nil {
		h.uploadError(w, err)
		return
	}
	h.inventory.Remove(model.UploadSourcePrefix + id)

	log.Info("Upload deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// registerUpload makes a stored upload available as a source
func (h *Handler) registerUpload(u model.Upload) error {
	src, err := source.NewUploadSource(u, h.uploads)
	if err != nil {
		return err
	}
	if err := h.inventory.Add(src); err != nil && !errors.Is(err, registry.ErrSourceExists) {
		return err
	}
	return nil
}

func (h *Handler) uploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrUploadNotFound):
		h.writeError(w, http.StatusNotFound, "upload not found")
	case errors.Is(err, storage.ErrInvalidID):
		h.writeError(w, http.StatusBadRequest, "invalid upload ID")
	default:
		h.internalError(w, err)
	}
}
