// Package repository persists users and inspections. MongoDB, PostgreSQL (via
// gorm) and an in-memory store implement the same interfaces.
package repository

import (
	"context"
	"errors"

	"github.com/medirank/medirank-api/internal/models"
)

var (
	// ErrNotFound is returned when no document matches, including for ids
	// the backend cannot parse.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate key")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("database unavailable")
)

// DefaultListLimit is the page size of List and also its upper bound.
const DefaultListLimit = 200

// InspectionRepository stores inspection documents.
type InspectionRepository interface {
	// Create assigns in.ID and stores the document.
	Create(ctx context.Context, in *models.Inspection) error
	// Replace overwrites every mutable field of the document with id. ID and
	// CreatedAt of the stored document are kept.
	Replace(ctx context.Context, id string, in models.Inspection) (models.Inspection, error)
	FindByID(ctx context.Context, id string) (models.Inspection, error)
	// List returns documents newest first.
	List(ctx context.Context, limit int) ([]models.Inspection, error)
	// CountByStatus groups documents by status. Missing and null statuses
	// are reported under the empty key.
	CountByStatus(ctx context.Context) (map[string]int64, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

// UserRepository stores user accounts.
type UserRepository interface {
	// Create assigns u.ID and stores the user. ErrDuplicate on a taken email.
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}

// fillDefaults turns absent collections into empty ones so documents written
// by other clients still encode items as an array.
func fillDefaults(in *models.Inspection) {
	if in.Items == nil {
		in.Items = []models.InspectionItem{}
	}
}
