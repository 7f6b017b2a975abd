// Package httpx provides the JSON API for the profile insights service.
package httpx

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/talentforge/insights/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	// multipartMemoryLimit caps what ParseMultipartForm buffers in memory;
	// larger uploads spill to disk before we read them back.
	multipartMemoryLimit = 4 << 20
)

// ProfileHandlers provides HTTP handlers for profile lifecycle operations.
type ProfileHandlers struct {
	Svc            *service.ProfileService
	MaxUploadBytes int64
}

// upload is one document pulled out of a multipart form.
type upload struct {
	filename string
	data     []byte
}

// ingestResult reports the outcome for one file of a batch upload.
type ingestResult struct {
	Filename string `json:"filename"`
	ID       string `json:"id,omitempty"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

// readUploads extracts every "file" part from a multipart form. Returns
// false when an error response has already been written.
func (h *ProfileHandlers) readUploads(w http.ResponseWriter, r *http.Request) ([]upload, bool) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_multipart", Err: err})
		return nil, false
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		WriteError(w, ErrorParams{
			Code: http.StatusBadRequest, ErrCode: "missing_file",
			Err: errors.New(`multipart field "file" is required`),
		})
		return nil, false
	}

	uploads := make([]upload, 0, len(headers))
	for _, header := range headers {
		data, err := readPart(header)
		if err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "unreadable_file", Err: err})
			return nil, false
		}
		uploads = append(uploads, upload{filename: header.Filename, data: data})
	}
	return uploads, true
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// readUpload extracts exactly one uploaded document from a multipart form.
func (h *ProfileHandlers) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	uploads, ok := h.readUploads(w, r)
	if !ok {
		return "", nil, false
	}
	if len(uploads) != 1 {
		WriteError(w, ErrorParams{
			Code: http.StatusBadRequest, ErrCode: "single_file_expected",
			Err: errors.New(`exactly one "file" part is expected`),
		})
		return "", nil, false
	}
	return uploads[0].filename, uploads[0].data, true
}

// Ingest handles document upload and profile creation. A single file
// returns the created document; a batch returns per-file outcomes, with
// one file's failure never discarding the others.
func (h *ProfileHandlers) Ingest(w http.ResponseWriter, r *http.Request) {
	uploads, ok := h.readUploads(w, r)
	if !ok {
		return
	}

	if len(uploads) == 1 {
		doc, err := h.Svc.Ingest(r.Context(), uploads[0].filename, uploads[0].data)
		if err != nil {
			WriteAppError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, doc)
		return
	}

	results := make([]ingestResult, 0, len(uploads))
	for _, u := range uploads {
		doc, err := h.Svc.Ingest(r.Context(), u.filename, u.data)
		if err != nil {
			results = append(results, ingestResult{Filename: u.filename, Status: "error", Detail: err.Error()})
			continue
		}
		results = append(results, ingestResult{Filename: u.filename, ID: doc.ID, Status: "success"})
	}
	WriteJSON(w, http.StatusOK, results)
}

// Reingest re-extracts an uploaded document into an existing profile.
func (h *ProfileHandlers) Reingest(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("id")
	filename, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	doc, err := h.Svc.Reingest(r.Context(), profileID, filename, data)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, doc)
}

// Get returns a profile document by id.
func (h *ProfileHandlers) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, doc)
}

// List returns a page of profiles, newest first.
func (h *ProfileHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultListLimit, maxListLimit)
	docs, err := h.Svc.List(r.Context(), limit, offset)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, docs)
}

// Delete removes a profile and all its artifacts.
func (h *ProfileHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
