package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/medirank/medirank-api/internal/apperr"
	"github.com/medirank/medirank-api/internal/blobstore"
	"github.com/medirank/medirank-api/internal/repository"
)

const (
	msgDatabaseUnavailable = "database unavailable"
	msgStoreNotConfigured  = "Object store not configured on server"
	msgInvalidPayload      = "Invalid request payload"
	msgInternal            = "Internal server error"
)

// failureMessages is the client text for unexpected server faults, by
// operation. The underlying error is only logged.
var failureMessages = map[string]string{
	"register":              "Failed to register user",
	"login":                 "Failed to log in",
	"open uploads":          "Failed to read uploaded files",
	"create inspection":     "Failed to save inspection",
	"update inspection":     "Failed to update inspection",
	"list inspections":      "Failed to list inspections",
	"get inspection":        "Failed to fetch inspection",
	"summarize inspections": "Failed to summarize inspections",
	"delete inspection":     "Failed to delete inspection",
	"inspection report":     "Failed to generate report",
	"presign upload":        "Failed to generate upload url",
	"upload file":           "Failed to upload file on server",
	"presign download":      "Failed to generate download url",
}

// statusFor maps a service error onto an HTTP status and client message.
// Unclassified errors get the fixed failure message for op.
func statusFor(op string, err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrConflict):
		return http.StatusBadRequest, apperr.Message(err)
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized, apperr.Message(err)
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, apperr.Message(err)
	case errors.Is(err, repository.ErrUnavailable):
		return http.StatusServiceUnavailable, msgDatabaseUnavailable
	case errors.Is(err, blobstore.ErrNotConfigured):
		return http.StatusInternalServerError, msgStoreNotConfigured
	default:
		msg, ok := failureMessages[op]
		if !ok {
			msg = msgInternal
		}
		return http.StatusInternalServerError, msg
	}
}

// respondServiceError writes the response for err and logs server faults.
func (r *Router) respondServiceError(w http.ResponseWriter, req *http.Request, op string, err error) {
	status, msg := statusFor(op, err)
	if status >= http.StatusInternalServerError {
		r.log.Error(op+" failed",
			zap.String("path", req.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	respondError(w, status, msg)
}
