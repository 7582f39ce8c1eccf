package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/medirank/medirank-api/internal/attachment"
)

const (
	StatusDraft     = "draft"
	StatusCompleted = "completed"
	StatusReviewed  = "reviewed"
	StatusUnknown   = "unknown"

	// ResponseNA is the default checklist answer.
	ResponseNA = "na"
)

// GeoLocation is where the inspector was when the form was submitted.
type GeoLocation struct {
	Lat       float64  `json:"lat" bson:"lat"`
	Lng       float64  `json:"lng" bson:"lng"`
	Accuracy  *float64 `json:"accuracy,omitempty" bson:"accuracy,omitempty"`
	Timestamp string   `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
}

// InspectionItem is one checklist row. Its lifecycle is bound to the parent.
type InspectionItem struct {
	ItemNumber     int                   `json:"item_number" bson:"item_number"`
	ItemText       string                `json:"item_text" bson:"item_text"`
	Response       string                `json:"response" bson:"response"`
	LocationAction string                `json:"location_action" bson:"location_action"`
	ActionDate     string                `json:"action_date" bson:"action_date"`
	Photo          attachment.Attachment `json:"photo" bson:"photo"`
	Doc            attachment.Attachment `json:"doc" bson:"doc"`
}

// Hospital is the inspected facility as stored.
type Hospital struct {
	Name    string                `json:"name" bson:"name"`
	Address string                `json:"address" bson:"address"`
	Logo    attachment.Attachment `json:"logo" bson:"logo"`
	Images  attachment.List       `json:"images" bson:"images"`
}

// HospitalInput is the hospital block as received from clients; Images is
// resolved by NormalizeHospital.
type HospitalInput struct {
	Name    string                `json:"name"`
	Address string                `json:"address"`
	Logo    attachment.Attachment `json:"logo"`
	Images  json.RawMessage       `json:"images"`
}

// NormalizeHospital resolves the loosely typed images field into a list.
// On error the returned Hospital still carries name, address and logo, and
// Images holds the client value as a single raw entry.
func NormalizeHospital(in HospitalInput) (Hospital, error) {
	h := Hospital{Name: in.Name, Address: in.Address, Logo: in.Logo}
	images, err := attachment.NormalizeImages(in.Images)
	if err != nil {
		h.Images = attachment.List{rawImages(in.Images)}
		return h, err
	}
	h.Images = images
	return h, nil
}

// rawImages keeps an images value that could not be normalized as a single
// string entry holding the client text.
func rawImages(raw json.RawMessage) attachment.Attachment {
	quoted, _ := json.Marshal(string(bytes.TrimSpace(raw)))
	return attachment.Attachment{Kind: attachment.KindRaw, Raw: quoted}
}

// Inspection is a submitted inspection form. ID is assigned by the store.
type Inspection struct {
	ID                 string                `json:"_id" bson:"-"`
	InspectionDate     string                `json:"inspection_date" bson:"inspection_date"`
	InspectorName      string                `json:"inspector_name" bson:"inspector_name"`
	InspectorEmail     string                `json:"inspector_email" bson:"inspector_email"`
	Comments           string                `json:"comments" bson:"comments"`
	Status             string                `json:"status" bson:"status"`
	Items              []InspectionItem      `json:"items" bson:"items"`
	Images             attachment.List       `json:"images" bson:"images"`
	InspectorSelfie    attachment.Attachment `json:"inspector_selfie" bson:"inspector_selfie"`
	InspectorSignature attachment.Attachment `json:"inspector_signature" bson:"inspector_signature"`
	GeoLocation        *GeoLocation          `json:"geo_location" bson:"geo_location"`
	Hospital           *Hospital             `json:"hospital" bson:"hospital"`
	CreatedAt          time.Time             `json:"created_at" bson:"created_at"`
}

// InspectionPayload is the client-supplied body for create and update.
type InspectionPayload struct {
	InspectionDate     string                `json:"inspection_date"`
	InspectorName      string                `json:"inspector_name"`
	InspectorEmail     string                `json:"inspector_email"`
	Comments           string                `json:"comments"`
	Status             string                `json:"status"`
	Items              []InspectionItem      `json:"items"`
	Images             attachment.List       `json:"images"`
	InspectorSelfie    attachment.Attachment `json:"inspector_selfie"`
	InspectorSignature attachment.Attachment `json:"inspector_signature"`
	GeoLocation        *GeoLocation          `json:"geo_location"`
	Hospital           *HospitalInput        `json:"hospital"`
}

// HasInspectorName reports whether the required inspector_name is present.
func (p InspectionPayload) HasInspectorName() bool {
	return strings.TrimSpace(p.InspectorName) != ""
}

// StatusCounts is the dashboard summary.
type StatusCounts struct {
	Total     int64            `json:"total"`
	Draft     int64            `json:"draft"`
	Completed int64            `json:"completed"`
	Reviewed  int64            `json:"reviewed"`
	Unknown   int64            `json:"unknown"`
	Raw       map[string]int64 `json:"raw"`
}

// NewStatusCounts folds per-status group counts into a summary. Empty
// statuses are folded into unknown.
func NewStatusCounts(total int64, groups map[string]int64) StatusCounts {
	sc := StatusCounts{Total: total, Raw: make(map[string]int64, len(groups))}
	for status, n := range groups {
		if status == "" {
			status = StatusUnknown
		}
		sc.Raw[status] += n
	}
	sc.Draft = sc.Raw[StatusDraft]
	sc.Completed = sc.Raw[StatusCompleted]
	sc.Reviewed = sc.Raw[StatusReviewed]
	sc.Unknown = sc.Raw[StatusUnknown]
	return sc
}

// DeleteReport describes the outcome of a cascade delete.
type DeleteReport struct {
	DocumentDeleted    bool     `json:"documentDeleted"`
	BlobDeleteFailures []string `json:"blobDeleteFailures,omitempty"`
}
