package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xuniversity/auth-service/internal/domain"
	"github.com/xuniversity/auth-service/pkg/database"
)

const sessionColumns = `id, user_id, refresh_token_hash, user_agent, ip_address,
		created_at, last_accessed_at, expires_at, is_active, revoked_at`

// sessionRepository implements SessionRepository interface
type sessionRepository struct {
	db *database.Postgres
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.Postgres) SessionRepository {
	return &sessionRepository{db: db}
}

// Create creates a new session in the database
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastAccessedAt.IsZero() {
		session.LastAccessedAt = session.CreatedAt
	}
	session.IsActive = true

	query := `
		INSERT INTO sessions (id, user_id, refresh_token_hash, user_agent, ip_address,
			created_at, last_accessed_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.DB.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.RefreshTokenHash,
		session.UserAgent,
		session.IPAddress,
		session.CreatedAt,
		session.LastAccessedAt,
		session.ExpiresAt,
		session.IsActive,
	)
	if err != nil {
		return wrapErr(err, "failed to create session")
	}

	return nil
}

// GetActiveByTokenHash resolves a refresh-token hash to its session. The
// active and expiry conditions live in the query itself, so a revoked or
// expired session is indistinguishable from an absent one.
func (r *sessionRepository) GetActiveByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sessions
		WHERE refresh_token_hash = $1 AND is_active = TRUE AND expires_at > $2
	`, sessionColumns)

	session, err := r.scanSession(r.db.DB.QueryRowContext(ctx, query, tokenHash, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no active session for token: %w", ErrNotFound)
		}
		return nil, wrapErr(err, "failed to get session by token hash")
	}

	return session, nil
}

// GetByID retrieves a session by ID regardless of state
func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)

	session, err := r.scanSession(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session with id %s not found: %w", id, ErrNotFound)
		}
		return nil, wrapErr(err, "failed to get session by id")
	}

	return session, nil
}

// Touch stamps last_accessed_at on an active session
func (r *sessionRepository) Touch(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE sessions
		SET last_accessed_at = $2
		WHERE id = $1 AND is_active = TRUE
	`

	result, err := r.db.DB.ExecContext(ctx, query, id, now)
	if err != nil {
		return wrapErr(err, "failed to touch session")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("session with id %s not active: %w", id, ErrNotFound)
	}

	return nil
}

// Rotate revokes the old session and inserts its replacement in one
// transaction. The revocation is conditional on the old row still being
// usable; of two concurrent rotations of the same session exactly one
// commits, the other returns ErrNotFound having written nothing.
func (r *sessionRepository) Rotate(ctx context.Context, oldID string, replacement *domain.Session, now time.Time) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr(err, "failed to begin rotation")
	}
	defer tx.Rollback()

	revoke := `
		UPDATE sessions
		SET is_active = FALSE, revoked_at = $2
		WHERE id = $1 AND is_active = TRUE AND expires_at > $2
	`
	result, err := tx.ExecContext(ctx, revoke, oldID, now)
	if err != nil {
		return wrapErr(err, "failed to revoke session for rotation")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session with id %s not active: %w", oldID, ErrNotFound)
	}

	if replacement.ID == "" {
		replacement.ID = uuid.New().String()
	}
	if replacement.CreatedAt.IsZero() {
		replacement.CreatedAt = now
	}
	if replacement.LastAccessedAt.IsZero() {
		replacement.LastAccessedAt = replacement.CreatedAt
	}
	replacement.IsActive = true

	insert := `
		INSERT INTO sessions (id, user_id, refresh_token_hash, user_agent, ip_address,
			created_at, last_accessed_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, insert,
		replacement.ID,
		replacement.UserID,
		replacement.RefreshTokenHash,
		replacement.UserAgent,
		replacement.IPAddress,
		replacement.CreatedAt,
		replacement.LastAccessedAt,
		replacement.ExpiresAt,
		replacement.IsActive,
	)
	if err != nil {
		return wrapErr(err, "failed to insert replacement session")
	}

	if err := tx.Commit(); err != nil {
		return wrapErr(err, "failed to commit rotation")
	}

	return nil
}

// Revoke deactivates a single session. Revoking a session that is already
// inactive returns ErrNotFound.
func (r *sessionRepository) Revoke(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE sessions
		SET is_active = FALSE, revoked_at = $2
		WHERE id = $1 AND is_active = TRUE
	`

	result, err := r.db.DB.ExecContext(ctx, query, id, now)
	if err != nil {
		return wrapErr(err, "failed to revoke session")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("session with id %s not active: %w", id, ErrNotFound)
	}

	return nil
}

// RevokeAllByUser deactivates every active session of the user. Revoking
// zero sessions is not an error; logout-all is idempotent.
func (r *sessionRepository) RevokeAllByUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	query := `
		UPDATE sessions
		SET is_active = FALSE, revoked_at = $2
		WHERE user_id = $1 AND is_active = TRUE
	`

	result, err := r.db.DB.ExecContext(ctx, query, userID, now)
	if err != nil {
		return 0, wrapErr(err, "failed to revoke user sessions")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// ListByUser returns all sessions of the user, newest first
func (r *sessionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, sessionColumns)

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, wrapErr(err, "failed to list sessions")
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, wrapErr(err, "failed to scan session row")
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "failed to iterate sessions")
	}

	return sessions, nil
}

// CountActiveByUser counts the user's usable sessions
func (r *sessionRepository) CountActiveByUser(ctx context.Context, userID string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM sessions
		WHERE user_id = $1 AND is_active = TRUE AND expires_at > $2
	`

	var count int
	if err := r.db.DB.QueryRowContext(ctx, query, userID, now).Scan(&count); err != nil {
		return 0, wrapErr(err, "failed to count active sessions")
	}

	return count, nil
}

// DeleteExpired removes sessions whose expiry has passed
func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, wrapErr(err, "failed to delete expired sessions")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func (r *sessionRepository) scanSession(row rowScanner) (*domain.Session, error) {
	session := &domain.Session{}
	var (
		userAgent sql.NullString
		ipAddress sql.NullString
		revokedAt sql.NullTime
	)

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshTokenHash,
		&userAgent,
		&ipAddress,
		&session.CreatedAt,
		&session.LastAccessedAt,
		&session.ExpiresAt,
		&session.IsActive,
		&revokedAt,
	)
	if err != nil {
		return nil, err
	}

	if userAgent.Valid {
		session.UserAgent = &userAgent.String
	}
	if ipAddress.Valid {
		session.IPAddress = &ipAddress.String
	}
	if revokedAt.Valid {
		session.RevokedAt = &revokedAt.Time
	}

	return session, nil
}
