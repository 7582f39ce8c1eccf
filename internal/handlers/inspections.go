package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/medirank/medirank-api/internal/blobstore"
	"github.com/medirank/medirank-api/internal/models"
	"github.com/medirank/medirank-api/internal/repository"
)

const (
	msgMissingInspectionField = "Missing inspection field"
	msgMissingInspectionData  = "Missing inspection data"
	msgInvalidInspectionJSON  = "Invalid inspection JSON"
	msgTooManyImages          = "Too many images"
	msgInvalidMultipart       = "Invalid multipart form"
)

// createInspectionMultipart stores a form sent as multipart: the inspection
// field carries the JSON and up to 12 files arrive under images.
func (r *Router) createInspectionMultipart(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUploadBytes)
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		respondMultipartError(w, err, msgMissingInspectionField)
		return
	}
	defer req.MultipartForm.RemoveAll()

	raw := req.FormValue("inspection")
	if raw == "" {
		respondError(w, http.StatusBadRequest, msgMissingInspectionField)
		return
	}
	var payload models.InspectionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidInspectionJSON)
		return
	}

	files := req.MultipartForm.File["images"]
	if len(files) > maxImages {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("%s (max %d)", msgTooManyImages, maxImages))
		return
	}
	uploads, closeAll, err := openUploads(files)
	defer closeAll()
	if err != nil {
		r.respondServiceError(w, req, "open uploads", err)
		return
	}

	in, err := r.inspections.CreateWithUploads(req.Context(), payload, uploads)
	if err != nil {
		r.respondServiceError(w, req, "create inspection", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "inspection": in})
}

// createInspectionJSON stores a form sent as a JSON body.
func (r *Router) createInspectionJSON(w http.ResponseWriter, req *http.Request) {
	payload, ok := decodePayload(w, req)
	if !ok {
		return
	}
	in, err := r.inspections.Create(req.Context(), payload)
	if err != nil {
		r.respondServiceError(w, req, "create inspection", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "inspection": in})
}

// updateInspection replaces every field of an inspection.
func (r *Router) updateInspection(w http.ResponseWriter, req *http.Request) {
	payload, ok := decodePayload(w, req)
	if !ok {
		return
	}
	in, err := r.inspections.Update(req.Context(), mux.Vars(req)["id"], payload)
	if err != nil {
		r.respondServiceError(w, req, "update inspection", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "inspection": in})
}

// listInspections returns the newest inspections.
func (r *Router) listInspections(w http.ResponseWriter, req *http.Request) {
	limit := atoiOr(req.URL.Query().Get("limit"), repository.DefaultListLimit)
	items, err := r.inspections.List(req.Context(), limit)
	if err != nil {
		r.respondServiceError(w, req, "list inspections", err)
		return
	}
	if items == nil {
		items = []models.Inspection{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (r *Router) getInspection(w http.ResponseWriter, req *http.Request) {
	in, err := r.inspections.Get(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.respondServiceError(w, req, "get inspection", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"inspection": in})
}

// inspectionSummary returns status counts.
func (r *Router) inspectionSummary(w http.ResponseWriter, req *http.Request) {
	counts, err := r.inspections.Summarize(req.Context())
	if err != nil {
		r.respondServiceError(w, req, "summarize inspections", err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

// deleteInspection removes an inspection and the files it references. Blob
// failures are logged by the service and do not fail the request.
func (r *Router) deleteInspection(w http.ResponseWriter, req *http.Request) {
	report, err := r.inspections.Delete(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.respondServiceError(w, req, "delete inspection", err)
		return
	}
	if len(report.BlobDeleteFailures) > 0 {
		r.log.Warn("inspection deleted with orphaned files",
			zap.String("id", mux.Vars(req)["id"]),
			zap.Strings("keys", report.BlobDeleteFailures),
		)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// decodePayload reads an inspection JSON body. An empty body or a JSON null
// is reported as missing data.
func decodePayload(w http.ResponseWriter, req *http.Request) (models.InspectionPayload, bool) {
	var payload models.InspectionPayload
	body, err := io.ReadAll(req.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidPayload)
		return payload, false
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		respondError(w, http.StatusBadRequest, msgMissingInspectionData)
		return payload, false
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidPayload)
		return payload, false
	}
	return payload, true
}

// openUploads opens every file header. The returned func closes whatever
// was opened, also on error.
func openUploads(files []*multipart.FileHeader) ([]blobstore.Upload, func(), error) {
	opened := make([]multipart.File, 0, len(files))
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	uploads := make([]blobstore.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		uploads = append(uploads, blobstore.Upload{
			Body:        f,
			Size:        fh.Size,
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
		})
	}
	return uploads, closeAll, nil
}

// respondMultipartError reports a body that could not be parsed. A request
// that is not multipart at all lacks the required field, so missing is sent.
func respondMultipartError(w http.ResponseWriter, err error, missing string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
	case errors.Is(err, http.ErrNotMultipart):
		respondError(w, http.StatusBadRequest, missing)
	default:
		respondError(w, http.StatusBadRequest, msgInvalidMultipart)
	}
}
