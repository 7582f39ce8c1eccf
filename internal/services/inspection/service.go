// Package inspection implements the inspection workflow: creating and
// replacing forms, summaries, and the cascade delete that removes a form
// together with the files it references.
package inspection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/medirank/medirank-api/internal/apperr"
	"github.com/medirank/medirank-api/internal/blobstore"
	"github.com/medirank/medirank-api/internal/metrics"
	"github.com/medirank/medirank-api/internal/models"
	"github.com/medirank/medirank-api/internal/repository"
)

const (
	msgNotFound    = "Inspection not found"
	msgMissingName = "inspector_name is required"

	// cascadeParallelism bounds concurrent blob deletes per request.
	cascadeParallelism = 8
)

// Service coordinates the repository and the blob store.
type Service struct {
	repo    repository.InspectionRepository
	blobs   blobstore.Store
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo repository.InspectionRepository, blobs blobstore.Store, log *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{repo: repo, blobs: blobs, log: log, metrics: m, now: time.Now}
}

// Create stores a form submitted as JSON. Images are taken from the payload.
func (s *Service) Create(ctx context.Context, p models.InspectionPayload) (models.Inspection, error) {
	if !p.HasInspectorName() {
		return models.Inspection{}, apperr.New(apperr.ErrValidation, msgMissingName)
	}
	in := s.build(ctx, p)
	return s.insert(ctx, in)
}

// CreateWithUploads stores a form submitted as multipart. Every uploaded file
// is stored first and the resulting records become the images; an upload
// failure aborts the request.
func (s *Service) CreateWithUploads(ctx context.Context, p models.InspectionPayload, uploads []blobstore.Upload) (models.Inspection, error) {
	if !p.HasInspectorName() {
		return models.Inspection{}, apperr.New(apperr.ErrValidation, msgMissingName)
	}
	in := s.build(ctx, p)

	images, err := s.storeUploads(ctx, uploads)
	if err != nil {
		return models.Inspection{}, err
	}
	in.Images = images
	return s.insert(ctx, in)
}

func (s *Service) insert(ctx context.Context, in models.Inspection) (models.Inspection, error) {
	in.CreatedAt = s.now().UTC().Truncate(time.Millisecond)
	if err := s.repo.Create(ctx, &in); err != nil {
		return models.Inspection{}, fmt.Errorf("save inspection: %w", err)
	}
	s.log.Info("inspection created",
		zap.String("id", in.ID),
		zap.String("status", in.Status),
		zap.Int("items", len(in.Items)),
		zap.Int("images", len(in.Images)))
	return in, nil
}

// Update replaces every mutable field of an inspection. Fields missing from
// the payload are cleared, not merged.
func (s *Service) Update(ctx context.Context, id string, p models.InspectionPayload) (models.Inspection, error) {
	if !p.HasInspectorName() {
		return models.Inspection{}, apperr.New(apperr.ErrValidation, msgMissingName)
	}
	in := s.build(ctx, p)

	out, err := s.repo.Replace(ctx, id, in)
	if err != nil {
		return models.Inspection{}, notFound(err, "update inspection")
	}
	s.log.Info("inspection updated", zap.String("id", id))
	return out, nil
}

// List returns the newest inspections first.
func (s *Service) List(ctx context.Context, limit int) ([]models.Inspection, error) {
	items, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}
	return items, nil
}

// Get returns a single inspection.
func (s *Service) Get(ctx context.Context, id string) (models.Inspection, error) {
	in, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return models.Inspection{}, notFound(err, "get inspection")
	}
	return in, nil
}

// Summarize counts inspections per status.
func (s *Service) Summarize(ctx context.Context) (models.StatusCounts, error) {
	var (
		total  int64
		groups map[string]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.Count(gctx)
		total = n
		return err
	})
	g.Go(func() error {
		m, err := s.repo.CountByStatus(gctx)
		groups = m
		return err
	})
	if err := g.Wait(); err != nil {
		return models.StatusCounts{}, fmt.Errorf("summarize inspections: %w", err)
	}
	return models.NewStatusCounts(total, groups), nil
}

// Delete removes the inspection and, first, every blob it references. Blob
// failures are logged and reported but never fail the call.
func (s *Service) Delete(ctx context.Context, id string) (models.DeleteReport, error) {
	in, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return models.DeleteReport{}, notFound(err, "delete inspection")
	}

	keys := CascadeKeys(in)
	failures := s.deleteBlobs(ctx, id, keys)

	if err := s.repo.Delete(ctx, id); err != nil {
		return models.DeleteReport{BlobDeleteFailures: failures}, notFound(err, "delete inspection")
	}

	s.log.Info("inspection deleted",
		zap.String("id", id),
		zap.Int("blobs", len(keys)),
		zap.Int("blob_failures", len(failures)))
	return models.DeleteReport{DocumentDeleted: true, BlobDeleteFailures: failures}, nil
}

// deleteBlobs deletes keys concurrently and waits for all of them. It returns
// the keys that could not be deleted, in input order.
func (s *Service) deleteBlobs(ctx context.Context, id string, keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	errs := make([]error, len(keys))

	var g errgroup.Group
	g.SetLimit(cascadeParallelism)
	for i, key := range keys {
		g.Go(func() error {
			errs[i] = s.blobs.Delete(ctx, key)
			return nil
		})
	}
	_ = g.Wait()

	var failures []string
	for i, err := range errs {
		if err == nil {
			continue
		}
		failures = append(failures, keys[i])
		s.metrics.CascadeDeleteFailed()
		s.log.Warn("failed to delete blob",
			zap.String("inspection_id", id),
			zap.String("key", keys[i]),
			zap.Error(err))
	}
	return failures
}

func notFound(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(apperr.ErrNotFound, msgNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
