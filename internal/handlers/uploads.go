package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/medirank/medirank-api/internal/blobstore"
)

const msgNoFile = "No file provided"

type uploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type presignGetRequest struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// uploadURL returns a presigned PUT URL for a direct browser upload
func (r *Router) uploadURL(w http.ResponseWriter, req *http.Request) {
	var body uploadURLRequest
	if err := decodeOptional(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	p, err := r.inspections.PresignUpload(req.Context(), body.Filename, body.ContentType)
	if err != nil {
		r.respondServiceError(w, req, "presign upload", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"uploadUrl": p.UploadURL,
		"fileUrl":   p.FileURL,
	})
}

// uploadServer stores a single multipart file through the server
func (r *Router) uploadServer(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUploadBytes)
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		respondMultipartError(w, err, msgNoFile)
		return
	}
	defer req.MultipartForm.RemoveAll()

	f, fh, err := req.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer f.Close()

	obj, err := r.inspections.UploadFile(req.Context(), blobstore.Upload{
		Body:        f,
		Size:        fh.Size,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
	})
	if err != nil {
		r.respondServiceError(w, req, "upload file", err)
		return
	}
	respondJSON(w, http.StatusOK, obj)
}

// presignGet returns a short-lived read URL for a key or an object URL
func (r *Router) presignGet(w http.ResponseWriter, req *http.Request) {
	var body presignGetRequest
	if err := decodeOptional(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	p, err := r.inspections.PresignDownload(req.Context(), body.Key, body.URL)
	if err != nil {
		r.respondServiceError(w, req, "presign download", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// decodeOptional decodes a JSON body, leaving v zero when the body is empty
// so the service reports which field is missing.
func decodeOptional(req *http.Request, v interface{}) error {
	err := json.NewDecoder(req.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
