package inspection

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/medirank/medirank-api/internal/attachment"
	"github.com/medirank/medirank-api/internal/blobstore"
	"github.com/medirank/medirank-api/internal/models"
)

// build turns a payload into a document with defaults applied, hospital
// images normalized and an inline signature moved to the blob store. The
// last two steps are fail-open.
func (s *Service) build(ctx context.Context, p models.InspectionPayload) models.Inspection {
	in := models.Inspection{
		InspectionDate:     p.InspectionDate,
		InspectorName:      p.InspectorName,
		InspectorEmail:     p.InspectorEmail,
		Comments:           p.Comments,
		Status:             p.Status,
		Items:              make([]models.InspectionItem, 0, len(p.Items)),
		Images:             p.Images,
		InspectorSelfie:    p.InspectorSelfie,
		InspectorSignature: p.InspectorSignature,
		GeoLocation:        p.GeoLocation,
	}
	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	if in.Images == nil {
		in.Images = attachment.List{}
	}
	for _, it := range p.Items {
		if it.Response == "" {
			it.Response = models.ResponseNA
		}
		in.Items = append(in.Items, it)
	}

	if p.Hospital != nil {
		h, err := models.NormalizeHospital(*p.Hospital)
		if err != nil {
			s.log.Warn("could not normalize hospital images, storing raw value", zap.Error(err))
		}
		in.Hospital = &h
	}

	in.InspectorSignature = s.inlineSignature(ctx, in.InspectorSignature)
	return in
}

// inlineSignature uploads a data: URI signature and returns the stored
// record. Any failure returns the signature unchanged.
func (s *Service) inlineSignature(ctx context.Context, sig attachment.Attachment) attachment.Attachment {
	if !sig.IsDataURI() {
		return sig
	}
	data, err := attachment.ParseDataURI(sig.URL)
	if err != nil {
		s.log.Warn("could not decode signature, keeping inline data", zap.Error(err))
		return sig
	}

	obj, err := s.blobs.Put(ctx, blobstore.Upload{
		Body:        bytes.NewReader(data.Data),
		Size:        int64(len(data.Data)),
		Filename:    fmt.Sprintf("signature_%d.jpg", s.now().UnixMilli()),
		ContentType: data.MIME,
	})
	if err != nil {
		s.log.Warn("could not upload signature, keeping inline data", zap.Error(err))
		return sig
	}
	return attachment.NewStored(obj.URL, obj.Key, data.MIME, "")
}

func (s *Service) storeUploads(ctx context.Context, uploads []blobstore.Upload) (attachment.List, error) {
	images := make(attachment.List, 0, len(uploads))
	for _, u := range uploads {
		obj, err := s.blobs.Put(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", u.Filename, err)
		}
		images = append(images, attachment.NewStored(obj.URL, obj.Key, u.ContentType, u.Filename))
	}
	return images, nil
}

// CascadeKeys lists the store keys referenced by images, the signature, the
// selfie and the hospital images, deduplicated in first-seen order.
func CascadeKeys(in models.Inspection) []string {
	var refs []attachment.Attachment
	refs = append(refs, in.Images...)
	refs = append(refs, in.InspectorSignature, in.InspectorSelfie)
	if in.Hospital != nil {
		refs = append(refs, in.Hospital.Images...)
	}

	seen := make(map[string]struct{}, len(refs))
	var keys []string
	for _, a := range refs {
		key, ok := attachment.ExtractStoreKey(a)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
