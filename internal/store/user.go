package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/quickkart/authserver/types"
)

// UserRepository handles persistence for end-user accounts.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT id, email, name, profile_meta, created_at
		FROM users
		WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT id, email, name, profile_meta, created_at
		FROM users
		WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// FindOrCreateByEmail returns the user with the given email, creating it
// first if absent. The boolean reports whether a new row was created.
//
// The insert relies on the unique index on email: under concurrent callbacks
// for the same new email exactly one insert wins and the loser falls through
// to the select, so both callers converge on the same account. Existing rows
// are returned unchanged (first write wins on name and profile meta).
func (r *UserRepository) FindOrCreateByEmail(ctx context.Context, email, name string, profileMeta map[string]string) (types.User, bool, error) {
	meta, err := json.Marshal(normalizeMeta(profileMeta))
	if err != nil {
		return types.User{}, false, err
	}

	now := time.Now()
	const insert = `
		INSERT INTO users (email, name, profile_meta, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING id`
	var id int
	err = r.db.QueryRowContext(ctx, insert, email, name, meta, now).Scan(&id)
	if err == nil {
		return types.User{
			ID:          id,
			Email:       email,
			Name:        name,
			ProfileMeta: normalizeMeta(profileMeta),
			CreatedAt:   now,
		}, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return types.User{}, false, err
	}

	user, err := r.GetByEmail(ctx, email)
	if err != nil {
		return types.User{}, false, err
	}
	return user, false, nil
}

// List returns users ordered by id, bounded by limit.
func (r *UserRepository) List(ctx context.Context, limit int) ([]types.User, error) {
	const query = `
		SELECT id, email, name, profile_meta, created_at
		FROM users
		ORDER BY id
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row rowScanner) (types.User, error) {
	var user types.User
	var meta []byte
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&meta,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &user.ProfileMeta); err != nil {
			return types.User{}, err
		}
	}
	return user, nil
}

func normalizeMeta(meta map[string]string) map[string]string {
	if meta == nil {
		return map[string]string{}
	}
	return meta
}
