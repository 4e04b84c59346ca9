package services

import (
	"context"
	"sync"
	"time"

	"github.com/quickkart/authserver/internal/store"
	"github.com/quickkart/authserver/types"
)

// fakeAdminRepo is an in-memory AdminRepository enforcing id uniqueness the
// way the database unique constraint does.
type fakeAdminRepo struct {
	mu     sync.Mutex
	admins map[string]types.Admin
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{admins: make(map[string]types.Admin)}
}

func (r *fakeAdminRepo) Create(_ context.Context, admin types.Admin) (types.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.admins[admin.ID]; ok {
		return types.Admin{}, store.ErrConflict
	}
	admin.CreatedAt = time.Now()
	r.admins[admin.ID] = admin
	return admin, nil
}

func (r *fakeAdminRepo) GetByID(_ context.Context, id string) (types.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin, ok := r.admins[id]
	if !ok {
		return types.Admin{}, store.ErrNotFound
	}
	return admin, nil
}

// fakeUserRepo is an in-memory UserRepository with an atomic email upsert.
type fakeUserRepo struct {
	mu      sync.Mutex
	byID    map[int]types.User
	byEmail map[string]int
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[int]types.User),
		byEmail: make(map[string]int),
		nextID:  1,
	}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) FindOrCreateByEmail(_ context.Context, email, name string, profileMeta map[string]string) (types.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byEmail[email]; ok {
		return r.byID[id], false, nil
	}
	user := types.User{
		ID:          r.nextID,
		Email:       email,
		Name:        name,
		ProfileMeta: profileMeta,
		CreatedAt:   time.Now(),
	}
	r.nextID++
	r.byID[user.ID] = user
	r.byEmail[email] = user.ID
	return user, true, nil
}

func (r *fakeUserRepo) List(_ context.Context, limit int) ([]types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := []types.User{}
	for id := 1; id < r.nextID && len(users) < limit; id++ {
		if user, ok := r.byID[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}
