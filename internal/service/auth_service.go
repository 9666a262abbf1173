package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xuniversity/auth-service/internal/domain"
	"github.com/xuniversity/auth-service/internal/dto"
	"github.com/xuniversity/auth-service/internal/repository"
	"github.com/xuniversity/auth-service/internal/utils"
)

// AuthOptions bundles the tunables the auth service needs from config
type AuthOptions struct {
	BCryptCost     int
	PasswordPolicy domain.PasswordPolicy
	LockoutPolicy  domain.LockoutPolicy
	RotateRefresh  bool
}

// authService implements AuthService interface
type authService struct {
	userRepo       repository.UserRepository
	sessionRepo    repository.SessionRepository
	jwtManager     *utils.JWTManager
	passwordPolicy domain.PasswordPolicy
	lockoutPolicy  domain.LockoutPolicy
	bcryptCost     int
	rotateRefresh  bool
	logger         *zap.Logger
	metrics        *authMetrics
	now            func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	jwtManager *utils.JWTManager,
	opts AuthOptions,
	logger *zap.Logger,
) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		jwtManager:     jwtManager,
		passwordPolicy: opts.PasswordPolicy,
		lockoutPolicy:  opts.LockoutPolicy,
		bcryptCost:     opts.BCryptCost,
		rotateRefresh:  opts.RotateRefresh,
		logger:         logger,
		metrics:        newAuthMetrics(),
		now:            time.Now,
	}
}

// Register registers a new user and opens their first session
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest, device dto.DeviceInfo) (*AuthResponseWithRefreshToken, error) {
	email := utils.SanitizeEmail(req.Email)
	if !utils.ValidateEmail(email) {
		return nil, domain.ErrInvalidEmail
	}

	if err := s.passwordPolicy.Validate(req.Password); err != nil {
		return nil, err
	}

	role := domain.RoleStudent
	if req.Role != "" {
		parsed, err := domain.ParseRole(req.Role)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, req.Role)
		}
		role = parsed
	}

	// Cheap pre-check; the unique index on LOWER(email) still decides races
	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, domain.ErrEmailTaken
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		Role:         role,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role.String()))

	return s.issueSession(ctx, user, device, s.now())
}

// Login authenticates a user. The lockout guard runs before the password
// comparison, so a locked account costs no bcrypt work and the lock answer
// does not depend on whether the password was right.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, device dto.DeviceInfo) (*AuthResponseWithRefreshToken, error) {
	now := s.now()

	user, err := s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.recordLogin(ctx, "invalid_credentials")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Locked(now) {
		s.metrics.recordLogin(ctx, "locked")
		return nil, &domain.AccountLockedError{RetryAfter: user.LockRemaining(now)}
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		attempts, lockedUntil, ferr := s.userRepo.RecordLoginFailure(ctx, user.ID, s.lockoutPolicy, now)
		if ferr != nil {
			// A wrong password with a broken guard must not look like a
			// wrong password: the counter never advanced, so the caller
			// has to see the store error and retry.
			s.logger.Error("failed to record login failure",
				zap.String("user_id", user.ID),
				zap.Error(ferr))
			s.metrics.recordLogin(ctx, "error")
			return nil, fmt.Errorf("failed to record login failure: %w", ferr)
		}

		if lockedUntil != nil && lockedUntil.After(now) {
			s.logger.Warn("account locked after repeated failures",
				zap.String("user_id", user.ID),
				zap.Int("failed_attempts", attempts),
				zap.Time("locked_until", *lockedUntil))
			s.metrics.recordLockout(ctx)
			s.metrics.recordLogin(ctx, "locked")
			return nil, &domain.AccountLockedError{RetryAfter: lockedUntil.Sub(now)}
		}

		s.metrics.recordLogin(ctx, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		s.metrics.recordLogin(ctx, "disabled")
		return nil, domain.ErrAccountDisabled
	}

	if err := s.userRepo.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		// Letting the login through would leave the failure counter
		// un-reset on a degraded store.
		s.logger.Error("failed to record login success",
			zap.String("user_id", user.ID),
			zap.Error(err))
		s.metrics.recordLogin(ctx, "error")
		return nil, fmt.Errorf("failed to record login success: %w", err)
	}

	s.metrics.recordLogin(ctx, "success")
	return s.issueSession(ctx, user, device, now)
}

// RefreshToken exchanges a refresh token for a new access token. With
// rotation enabled the session is replaced atomically and the old refresh
// token dies with it; without rotation the session is only touched and the
// same refresh token stays valid until it expires.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string, device dto.DeviceInfo) (*AuthResponseWithRefreshToken, error) {
	now := s.now()

	if _, err := s.jwtManager.ParseToken(refreshToken, domain.TokenKindRefresh); err != nil {
		return nil, err
	}

	tokenHash := hashToken(refreshToken)

	session, err := s.sessionRepo.GetActiveByTokenHash(ctx, tokenHash, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDisabled
	}

	if !s.rotateRefresh {
		if err := s.sessionRepo.Touch(ctx, session.ID, now); err != nil {
			s.logger.Warn("failed to touch session",
				zap.String("session_id", session.ID),
				zap.Error(err))
		}

		accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Role, session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to generate access token: %w", err)
		}

		// The refresh token is reused, so its reported lifetime (and the
		// cookie armed from it) must not outlive the session.
		resp := s.buildAuthResponse(user, accessToken, refreshToken)
		resp.ExpiresIn = int(session.ExpiresAt.Sub(now).Seconds())
		return resp, nil
	}

	replacement := newSession(user.ID, device, now, s.jwtManager.GetRefreshTokenExpiry())

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Role, replacement.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	newRefreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, replacement.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	replacement.RefreshTokenHash = hashToken(newRefreshToken)

	if err := s.sessionRepo.Rotate(ctx, session.ID, replacement, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// A concurrent refresh won the rotation
			return nil, domain.ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	s.metrics.recordSessionIssued(ctx)
	s.metrics.recordSessionsRevoked(ctx, 1)

	return s.buildAuthResponse(user, accessToken, newRefreshToken), nil
}

// Logout revokes the caller's current session, a named session they own,
// or every session they own
func (s *authService) Logout(ctx context.Context, claims *domain.TokenClaims, scope, sessionID string) error {
	now := s.now()

	if scope == dto.LogoutScopeAll {
		revoked, err := s.sessionRepo.RevokeAllByUser(ctx, claims.UserID, now)
		if err != nil {
			return fmt.Errorf("failed to revoke user sessions: %w", err)
		}
		s.logger.Info("all sessions revoked",
			zap.String("user_id", claims.UserID),
			zap.Int64("revoked", revoked))
		s.metrics.recordSessionsRevoked(ctx, revoked)
		return nil
	}

	target := sessionID
	if target == "" {
		target = claims.SessionID
	}
	if target != claims.SessionID {
		if err := s.checkSessionOwner(ctx, claims.UserID, target); err != nil {
			return err
		}
	}

	if err := s.sessionRepo.Revoke(ctx, target, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrSessionInvalid
		}
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.metrics.recordSessionsRevoked(ctx, 1)
	return nil
}

// ValidateToken verifies an access token with the codec alone. No store is
// consulted, so validation stays pure and side-effect free.
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	return s.jwtManager.ParseToken(token, domain.TokenKindAccess)
}

// GetProfile returns the user's profile with their active session count
func (s *authService) GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	active, err := s.sessionRepo.CountActiveByUser(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	response := &dto.UserResponse{
		ID:             user.ID,
		Email:          user.Email,
		FullName:       user.FullName,
		Role:           user.Role.String(),
		IsActive:       user.IsActive,
		CreatedAt:      user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      user.UpdatedAt.Format(time.RFC3339),
		ActiveSessions: active,
	}
	if user.LastLoginAt != nil {
		lastLogin := user.LastLoginAt.Format(time.RFC3339)
		response.LastLoginAt = &lastLogin
	}

	return response, nil
}

// ListSessions returns the caller's sessions, newest first, flagging the
// one their access token belongs to
func (s *authService) ListSessions(ctx context.Context, claims *domain.TokenClaims) ([]dto.SessionResponse, error) {
	sessions, err := s.sessionRepo.ListByUser(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	now := s.now()
	out := make([]dto.SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, dto.SessionResponse{
			ID:             sess.ID,
			UserAgent:      sess.UserAgent,
			IPAddress:      sess.IPAddress,
			CreatedAt:      sess.CreatedAt.Format(time.RFC3339),
			LastAccessedAt: sess.LastAccessedAt.Format(time.RFC3339),
			ExpiresAt:      sess.ExpiresAt.Format(time.RFC3339),
			IsActive:       sess.Usable(now),
			Current:        sess.ID == claims.SessionID,
		})
	}

	return out, nil
}

// RevokeSession revokes one session owned by the caller
func (s *authService) RevokeSession(ctx context.Context, claims *domain.TokenClaims, sessionID string) error {
	if err := s.checkSessionOwner(ctx, claims.UserID, sessionID); err != nil {
		return err
	}

	if err := s.sessionRepo.Revoke(ctx, sessionID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrSessionInvalid
		}
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.metrics.recordSessionsRevoked(ctx, 1)
	return nil
}

// ListUsers returns a page of all users; the handler layer restricts this
// to admins
func (s *authService) ListUsers(ctx context.Context, page, perPage int) (*dto.UserListResponse, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	users, total, err := s.userRepo.List(ctx, (page-1)*perPage, perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := &dto.UserListResponse{
		Users:   make([]dto.UserSummary, 0, len(users)),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}
	for _, user := range users {
		summary := dto.UserSummary{
			ID:        user.ID,
			Email:     user.Email,
			FullName:  user.FullName,
			Role:      user.Role.String(),
			IsActive:  user.IsActive,
			CreatedAt: user.CreatedAt.Format(time.RFC3339),
		}
		if user.LastLoginAt != nil {
			lastLogin := user.LastLoginAt.Format(time.RFC3339)
			summary.LastLoginAt = &lastLogin
		}
		out.Users = append(out.Users, summary)
	}

	return out, nil
}

// checkSessionOwner verifies the session exists and belongs to the user.
// Foreign and unknown sessions get the same answer, so session ids cannot
// be probed.
func (s *authService) checkSessionOwner(ctx context.Context, userID, sessionID string) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrSessionInvalid
		}
		return fmt.Errorf("failed to get session: %w", err)
	}
	if session.UserID != userID {
		return domain.ErrSessionInvalid
	}
	return nil
}

// hashToken hashes a token using SHA256 for storage and lookup
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
