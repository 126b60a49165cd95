package user

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/simp-lee/userdir/internal/domain"
	"github.com/simp-lee/userdir/internal/pkg"
)

// memoryRepository implements domain.UserRepository in process memory.
// Users are kept in insertion order; callers only ever see clones.
type memoryRepository struct {
	mu    sync.RWMutex
	items []*domain.User
	now   func() time.Time
}

// NewMemoryRepository creates an empty in-memory UserRepository.
func NewMemoryRepository() domain.UserRepository {
	return &memoryRepository{now: time.Now}
}

func (r *memoryRepository) Insert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(user.ID(), true) >= 0 {
		return domain.NewAppError(domain.CodeConflict, "user already exists using id "+user.ID(), nil)
	}
	if err := r.emailTaken(user.Email(), ""); err != nil {
		return err
	}
	r.items = append(r.items, user.Clone())
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id, false)
	if i < 0 {
		return nil, domain.NotFoundf("user", "id", id)
	}
	return r.items[i].Clone(), nil
}

func (r *memoryRepository) FindByIDIncludingDeleted(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id, true)
	if i < 0 {
		return nil, domain.NotFoundf("user", "id", id)
	}
	return r.items[i].Clone(), nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Email() == email && !u.IsDeleted() {
			return u.Clone(), nil
		}
	}
	return nil, domain.NotFoundf("user", "email", email)
}

func (r *memoryRepository) EmailExists(_ context.Context, email string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.emailTaken(email, "")
}

func (r *memoryRepository) FindAll(_ context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*domain.User, 0, len(r.items))
	for _, u := range r.items {
		if !u.IsDeleted() {
			users = append(users, u.Clone())
		}
	}
	return users, nil
}

func (r *memoryRepository) FindAllIncludingDeleted(_ context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*domain.User, 0, len(r.items))
	for _, u := range r.items {
		users = append(users, u.Clone())
	}
	return users, nil
}

func (r *memoryRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(user.ID(), false)
	if i < 0 {
		return domain.NotFoundf("user", "id", user.ID())
	}
	if err := r.emailTaken(user.Email(), user.ID()); err != nil {
		return err
	}
	r.items[i] = user.Clone()
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id, true)
	if i < 0 {
		return domain.NotFoundf("user", "id", id)
	}
	r.items = slices.Delete(r.items, i, i+1)
	return nil
}

func (r *memoryRepository) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id, false)
	if i < 0 {
		return domain.NotFoundf("user", "id", id)
	}
	r.items[i].SoftDelete(r.now())
	return nil
}

func (r *memoryRepository) Restore(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id, true)
	if i < 0 {
		return domain.NotFoundf("user", "id", id)
	}
	u := r.items[i]
	if !u.IsDeleted() {
		return nil
	}
	if err := r.emailTaken(u.Email(), u.ID()); err != nil {
		return err
	}
	u.Restore(r.now())
	return nil
}

func (r *memoryRepository) Search(_ context.Context, params domain.SearchParams) (*domain.SearchResult[*domain.User], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := pkg.SearchSlice(r.items, params, userSearch)
	return domain.MapItems(res, (*domain.User).Clone), nil
}

// indexOf returns the position of the user with id, or -1. Soft-deleted users
// are only considered when includeDeleted is set.
func (r *memoryRepository) indexOf(id string, includeDeleted bool) int {
	return slices.IndexFunc(r.items, func(u *domain.User) bool {
		return u.ID() == id && (includeDeleted || !u.IsDeleted())
	})
}

// emailTaken fails with a conflict when an active user other than exceptID
// owns email.
func (r *memoryRepository) emailTaken(email, exceptID string) error {
	for _, u := range r.items {
		if u.Email() == email && !u.IsDeleted() && u.ID() != exceptID {
			return errEmailTaken
		}
	}
	return nil
}
