package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/quickkart/authserver/types"
)

// AdminRepository handles persistence for administrator accounts.
type AdminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Create inserts a new admin. It returns ErrConflict when an admin with the
// same id already exists; the unique constraint, not a prior lookup, is the
// source of truth so concurrent creates cannot both succeed.
func (r *AdminRepository) Create(ctx context.Context, admin types.Admin) (types.Admin, error) {
	admin.CreatedAt = time.Now()

	const query = `
		INSERT INTO admins (id, password_hash, created_at)
		VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, admin.ID, admin.PasswordHash, admin.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return types.Admin{}, ErrConflict
		}
		return types.Admin{}, err
	}
	return admin, nil
}

func (r *AdminRepository) GetByID(ctx context.Context, id string) (types.Admin, error) {
	const query = `
		SELECT id, password_hash, created_at
		FROM admins
		WHERE id = $1`
	var admin types.Admin
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&admin.ID,
		&admin.PasswordHash,
		&admin.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Admin{}, ErrNotFound
		}
		return types.Admin{}, err
	}
	return admin, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
