package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/storage"
)

const maxUploadBytes = 50 << 20 // 50 MB

// AttachmentHandler accepts and serves attachment files for image-kind
// nodes. Uploads are stored under the attachments directory with a
// UUID-prefixed filename; the returned workspace-relative path is ready to
// store as a node's details_path.
type AttachmentHandler struct {
	ws  *storage.FS
	dir string
}

// NewAttachmentHandler creates a handler over the workspace provider.
// dir is the workspace-relative attachments directory.
func NewAttachmentHandler(ws *storage.FS, dir string) *AttachmentHandler {
	return &AttachmentHandler{ws: ws, dir: dir}
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal).
func safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	return cleaned, nil
}

// ServeFile handles GET /api/attachments/{filename}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	name, err := safeName(filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	abs := filepath.Join(h.ws.Root(), h.dir, name)
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
//
//	@Summary		Upload an attachment for an image node
//	@Tags			attachments
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	AttachmentUploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attachments [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name, err := safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	// A UUID prefix keeps repeat uploads of the same filename from
	// clobbering each other.
	stored := uuid.NewString()[:8] + "-" + name
	rel := path.Join(h.dir, stored)
	if err := h.ws.Write(rel, data); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to store attachment"))
		return
	}

	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Path: rel,
		Size: int64(len(data)),
		URL:  "/api/attachments/" + stored,
	})
}
