package printer

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/medirank/medirank-api/internal/attachment"
	"github.com/medirank/medirank-api/internal/models"
)

const (
	pageMargin = 15.0
	qrSize     = 28.0
	lineHeight = 6.0
)

// ReportOptions controls the inspection report.
type ReportOptions struct {
	// QRContent is encoded in the header QR code; the inspection id is used
	// when empty.
	QRContent string
}

// GenerateInspectionPDF renders an inspection as an A4 report.
func GenerateInspectionPDF(in models.Inspection, opts ReportOptions) ([]byte, error) {
	pdf, err := buildInspectionPDF(in, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildInspectionPDF(in models.Inspection, opts ReportOptions) (*gofpdf.Fpdf, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	qrContent := opts.QRContent
	if qrContent == "" {
		qrContent = "inspection:" + in.ID
	}
	qrPng, err := qrcode.Encode(qrContent, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("qr", imgOptions, bytes.NewReader(qrPng))
	pageW, _ := pdf.GetPageSize()
	pdf.ImageOptions("qr", pageW-pageMargin-qrSize, pageMargin, qrSize, qrSize, false, imgOptions, 0, "")

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Inspection Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, tr("ID: "+in.ID), "", 1, "L", false, 0, "")
	if !in.CreatedAt.IsZero() {
		pdf.CellFormat(0, 5, "Submitted: "+in.CreatedAt.UTC().Format(time.RFC1123), "", 1, "L", false, 0, "")
	}
	pdf.SetY(pageMargin + qrSize + 4)

	if h := in.Hospital; h != nil {
		section(pdf, "Hospital")
		field(pdf, tr, "Name", h.Name)
		field(pdf, tr, "Address", h.Address)
		if len(h.Images) > 0 {
			field(pdf, tr, "Images", fmt.Sprintf("%d attached", len(h.Images)))
		}
	}

	section(pdf, "Inspection")
	field(pdf, tr, "Date", in.InspectionDate)
	field(pdf, tr, "Inspector", in.InspectorName)
	field(pdf, tr, "Email", in.InspectorEmail)
	field(pdf, tr, "Status", in.Status)
	if g := in.GeoLocation; g != nil {
		field(pdf, tr, "Location", fmt.Sprintf("%.6f, %.6f", g.Lat, g.Lng))
	}
	if strings.TrimSpace(in.Comments) != "" {
		field(pdf, tr, "Comments", in.Comments)
	}

	section(pdf, fmt.Sprintf("Checklist (%d items)", len(in.Items)))
	for _, it := range in.Items {
		pdf.SetFont("Arial", "B", 10)
		pdf.MultiCell(0, lineHeight, tr(fmt.Sprintf("%d. %s", it.ItemNumber, it.ItemText)), "", "L", false)
		pdf.SetFont("Arial", "", 9)
		details := []string{"Response: " + it.Response}
		if it.LocationAction != "" {
			details = append(details, "Location/Action: "+it.LocationAction)
		}
		if it.ActionDate != "" {
			details = append(details, "Action date: "+it.ActionDate)
		}
		if !it.Photo.IsZero() {
			details = append(details, "Photo: "+describe(it.Photo))
		}
		if !it.Doc.IsZero() {
			details = append(details, "Document: "+describe(it.Doc))
		}
		pdf.MultiCell(0, 5, tr(strings.Join(details, "   ")), "", "L", false)
		pdf.Ln(1)
	}

	section(pdf, "Attachments")
	field(pdf, tr, "Images", fmt.Sprintf("%d", len(in.Images)))
	for i, img := range in.Images {
		field(pdf, tr, fmt.Sprintf("  #%d", i+1), describe(img))
	}
	field(pdf, tr, "Selfie", describe(in.InspectorSelfie))
	field(pdf, tr, "Signature", describe(in.InspectorSignature))

	return pdf, pdf.Error()
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(230, 236, 245)
	pdf.CellFormat(0, 8, title, "", 1, "L", true, 0, "")
	pdf.Ln(1)
}

func field(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	if value == "" {
		value = "-"
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(35, lineHeight, tr(label), "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, lineHeight, tr(value), "", "L", false)
}

// describe prints an attachment without dumping inline payloads.
func describe(a attachment.Attachment) string {
	switch {
	case a.IsZero():
		return "none"
	case a.IsDataURI():
		return "inline image"
	case a.Kind == attachment.KindStored && a.Name != "":
		return a.Name + " (" + a.URL + ")"
	case a.Href() != "":
		return a.Href()
	default:
		return string(a.Raw)
	}
}
