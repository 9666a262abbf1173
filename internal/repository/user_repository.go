package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/xuniversity/auth-service/internal/domain"
	"github.com/xuniversity/auth-service/pkg/database"
)

const userColumns = `id, email, password_hash, full_name, role, is_active,
		failed_login_attempts, locked_until, password_changed_at, last_login_at,
		created_at, updated_at`

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, role, is_active,
			failed_login_attempts, password_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	if user.PasswordChangedAt.IsZero() {
		user.PasswordChangedAt = user.CreatedAt
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Role,
		user.IsActive,
		user.FailedLoginAttempts,
		user.PasswordChangedAt,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		// Unique index on LOWER(email) raises unique_violation for any
		// casing of an existing address
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
			}
		}
		return wrapErr(err, "failed to create user")
	}

	return nil
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE LOWER(email) = LOWER($1)`, userColumns)

	user, err := r.scanUser(r.db.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
		}
		return nil, wrapErr(err, "failed to get user by email")
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := r.scanUser(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, wrapErr(err, "failed to get user by id")
	}

	return user, nil
}

// Update updates the mutable profile fields of an existing user
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $2, password_hash = $3, full_name = $4, role = $5, is_active = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Role,
		user.IsActive,
		time.Now(),
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
			}
		}
		return wrapErr(err, "failed to update user")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", user.ID, ErrNotFound)
	}

	return nil
}

// RecordLoginFailure increments the failure counter and applies the lock in
// a single statement. Row-level locking in Postgres serializes concurrent
// callers, so every failure lands in the count exactly once.
func (r *userRepository) RecordLoginFailure(ctx context.Context, userID string, policy domain.LockoutPolicy, now time.Time) (int, *time.Time, error) {
	var (
		attempts    int
		lockedUntil sql.NullTime
		err         error
	)

	if policy.Threshold > 0 {
		query := `
			UPDATE users
			SET failed_login_attempts = failed_login_attempts + 1,
				locked_until = CASE WHEN failed_login_attempts + 1 >= $2 THEN $3 ELSE locked_until END,
				updated_at = $4
			WHERE id = $1
			RETURNING failed_login_attempts, locked_until
		`
		err = r.db.DB.QueryRowContext(ctx, query, userID, policy.Threshold, policy.LockExpiry(now), now).
			Scan(&attempts, &lockedUntil)
	} else {
		query := `
			UPDATE users
			SET failed_login_attempts = failed_login_attempts + 1, updated_at = $2
			WHERE id = $1
			RETURNING failed_login_attempts, locked_until
		`
		err = r.db.DB.QueryRowContext(ctx, query, userID, now).Scan(&attempts, &lockedUntil)
	}

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
		}
		return 0, nil, wrapErr(err, "failed to record login failure")
	}

	if lockedUntil.Valid {
		return attempts, &lockedUntil.Time, nil
	}
	return attempts, nil, nil
}

// RecordLoginSuccess clears the failure counter and lock and stamps the
// last login time
func (r *userRepository) RecordLoginSuccess(ctx context.Context, userID string, now time.Time) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL, last_login_at = $2, updated_at = $2
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, userID, now)
	if err != nil {
		return wrapErr(err, "failed to record login success")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	return nil
}

// List returns a page of users ordered by newest first plus the total count
func (r *userRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, int, error) {
	var total int
	if err := r.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, wrapErr(err, "failed to count users")
	}

	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at DESC OFFSET $1 LIMIT $2`, userColumns)
	rows, err := r.db.DB.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, wrapErr(err, "failed to list users")
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, wrapErr(err, "failed to scan user row")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapErr(err, "failed to iterate users")
	}

	return users, total, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *userRepository) scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var (
		lockedUntil sql.NullTime
		lastLoginAt sql.NullTime
	)

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Role,
		&user.IsActive,
		&user.FailedLoginAttempts,
		&lockedUntil,
		&user.PasswordChangedAt,
		&lastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lockedUntil.Valid {
		user.LockedUntil = &lockedUntil.Time
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}

	return user, nil
}
