package services

import (
	"context"

	"github.com/quickkart/authserver/types"
)

const (
	defaultUserListLimit = 50
	maxUserListLimit     = 100
)

// UserRepository defines persistence operations for end-user accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	FindOrCreateByEmail(ctx context.Context, email, name string, profileMeta map[string]string) (types.User, bool, error)
	List(ctx context.Context, limit int) ([]types.User, error)
}

// IdentityService resolves verified token subjects and serves the bounded
// user listing consumed by external collaborators.
type IdentityService struct {
	admins AdminRepository
	users  UserRepository
}

func NewIdentityService(admins AdminRepository, users UserRepository) *IdentityService {
	return &IdentityService{admins: admins, users: users}
}

func (s *IdentityService) GetUser(ctx context.Context, id int) (types.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *IdentityService) GetAdmin(ctx context.Context, id string) (types.Admin, error) {
	return s.admins.GetByID(ctx, id)
}

func (s *IdentityService) ListUsers(ctx context.Context, limit int) ([]types.User, error) {
	if limit <= 0 {
		limit = defaultUserListLimit
	}
	if limit > maxUserListLimit {
		limit = maxUserListLimit
	}
	return s.users.List(ctx, limit)
}
