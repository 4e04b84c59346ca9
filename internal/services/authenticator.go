package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/quickkart/authserver/internal/events"
	"github.com/quickkart/authserver/internal/lockout"
	"github.com/quickkart/authserver/internal/store"
	"github.com/quickkart/authserver/types"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers both an unknown admin id and a wrong
	// password, so callers cannot enumerate identifiers.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrLocked is returned while the identifier's lockout window is active.
	ErrLocked = errors.New("account locked")
)

// AdminRepository defines persistence operations for administrator accounts.
type AdminRepository interface {
	Create(ctx context.Context, admin types.Admin) (types.Admin, error)
	GetByID(ctx context.Context, id string) (types.Admin, error)
}

// Authenticator verifies administrator credentials, consulting the lockout
// tracker before touching any password hash.
type Authenticator struct {
	admins  AdminRepository
	lockout *lockout.Tracker
	events  *events.Events
	logger  *slog.Logger
}

func NewAuthenticator(admins AdminRepository, tracker *lockout.Tracker, ev *events.Events, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{admins: admins, lockout: tracker, events: ev, logger: logger}
}

// Verify checks the supplied password for the admin id.
//
// A locked identifier is rejected before any repository or hash work. Unknown
// id and wrong password both return ErrInvalidCredentials; only a genuine
// mismatch counts toward the lockout threshold.
func (a *Authenticator) Verify(ctx context.Context, id, password string) (types.Admin, error) {
	if a.lockout.IsLocked(id) {
		a.logger.Warn("login attempt while locked", "admin_id", id)
		return types.Admin{}, ErrLocked
	}

	admin, err := a.admins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Admin{}, ErrInvalidCredentials
		}
		return types.Admin{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		state := a.lockout.RecordFailure(id)
		if state.LockedUntil != nil {
			a.events.Emit(ctx, events.AdminLockedOut(id))
		} else {
			a.events.Emit(ctx, events.AdminLoginFailed(id))
		}
		return types.Admin{}, ErrInvalidCredentials
	}

	a.lockout.RecordSuccess(id)
	a.events.Emit(ctx, events.AdminLoginSucceeded(id))
	return admin, nil
}
