package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/medirank/medirank-api/internal/services/printer"
)

// inspectionReport renders a stored inspection as a PDF download
func (r *Router) inspectionReport(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	in, err := r.inspections.Get(req.Context(), id)
	if err != nil {
		r.respondServiceError(w, req, "inspection report", err)
		return
	}

	pdfBytes, err := printer.GenerateInspectionPDF(in, printer.ReportOptions{})
	if err != nil {
		r.log.Error("render inspection report", zap.String("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate PDF: %v", err))
		return
	}

	// Set headers for download
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"inspection_%s.pdf\"", id))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))

	w.Write(pdfBytes)
}
