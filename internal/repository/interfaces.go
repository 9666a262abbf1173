package repository

import (
	"context"
	"time"

	"github.com/xuniversity/auth-service/internal/domain"
)

// UserRepository defines methods for user operations. The login failure
// counter lives here: RecordLoginFailure and RecordLoginSuccess are single
// conditional statements, so concurrent logins never lose an increment.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error

	// RecordLoginFailure increments the failure counter and, when the new
	// count reaches policy.Threshold, sets the lock expiry in the same
	// statement. Returns the post-increment count and lock expiry.
	RecordLoginFailure(ctx context.Context, userID string, policy domain.LockoutPolicy, now time.Time) (int, *time.Time, error)

	// RecordLoginSuccess clears the failure counter and lock and stamps
	// last_login_at
	RecordLoginSuccess(ctx context.Context, userID string, now time.Time) error

	// List returns a page of users ordered by creation time plus the
	// total count
	List(ctx context.Context, offset, limit int) ([]*domain.User, int, error)
}

// SessionRepository defines methods for session operations. Callers pass
// the instant they captured at operation start, so one operation never
// compares expiries against two different clocks.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error

	// GetActiveByTokenHash resolves a refresh-token hash to its session in
	// one conditioned query; revoked and expired rows are misses.
	GetActiveByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.Session, error)

	GetByID(ctx context.Context, id string) (*domain.Session, error)

	// Touch stamps last_accessed_at on an active session
	Touch(ctx context.Context, id string, now time.Time) error

	// Rotate atomically revokes the old session and inserts its
	// replacement. When the old session was already revoked, expired or
	// rotated by a concurrent call, nothing is written and ErrNotFound is
	// returned.
	Rotate(ctx context.Context, oldID string, replacement *domain.Session, now time.Time) error

	// Revoke deactivates a single session; ErrNotFound when it was not active
	Revoke(ctx context.Context, id string, now time.Time) error

	// RevokeAllByUser deactivates every active session of the user and
	// returns how many were revoked
	RevokeAllByUser(ctx context.Context, userID string, now time.Time) (int64, error)

	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	CountActiveByUser(ctx context.Context, userID string, now time.Time) (int, error)

	// DeleteExpired removes sessions whose expiry is past; housekeeping
	// only, lookups already exclude them
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
