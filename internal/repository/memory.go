package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/medirank/medirank-api/internal/models"
)

// MemoryInspectionRepository keeps inspections in process memory. It backs
// STORE_DRIVER=memory and the service tests.
type MemoryInspectionRepository struct {
	mu   sync.RWMutex
	docs map[string]models.Inspection
}

func NewMemoryInspectionRepository() *MemoryInspectionRepository {
	return &MemoryInspectionRepository{docs: map[string]models.Inspection{}}
}

func (r *MemoryInspectionRepository) Create(_ context.Context, in *models.Inspection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	in.ID = uuid.NewString()
	fillDefaults(in)
	r.docs[in.ID] = *in
	return nil
}

func (r *MemoryInspectionRepository) Replace(_ context.Context, id string, in models.Inspection) (models.Inspection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.docs[id]
	if !ok {
		return models.Inspection{}, ErrNotFound
	}
	in.ID = cur.ID
	in.CreatedAt = cur.CreatedAt
	fillDefaults(&in)
	r.docs[id] = in
	return in, nil
}

func (r *MemoryInspectionRepository) FindByID(_ context.Context, id string) (models.Inspection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return models.Inspection{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryInspectionRepository) List(_ context.Context, limit int) ([]models.Inspection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]models.Inspection, 0, len(r.docs))
	for _, d := range r.docs {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit = clampLimit(limit); len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryInspectionRepository) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	groups := map[string]int64{}
	for _, d := range r.docs {
		groups[d.Status]++
	}
	return groups, nil
}

func (r *MemoryInspectionRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.docs)), nil
}

func (r *MemoryInspectionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

// MemoryUserRepository keeps users in process memory, keyed by email.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: map[string]models.User{}}
}

func (r *MemoryUserRepository) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.Email]; ok {
		return ErrDuplicate
	}
	u.ID = uuid.NewString()
	r.users[u.Email] = *u
	return nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[email]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}
