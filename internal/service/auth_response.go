package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xuniversity/auth-service/internal/domain"
	"github.com/xuniversity/auth-service/internal/dto"
)

// AuthResponseWithRefreshToken contains auth response and refresh token
type AuthResponseWithRefreshToken struct {
	AuthResponse *dto.AuthResponse
	RefreshToken string
	ExpiresIn    int // Refresh token expiry in seconds
}

// newSession builds an unsaved session record. The id is minted here
// because both tokens embed it before the row exists.
func newSession(userID string, device dto.DeviceInfo, now time.Time, ttl time.Duration) *domain.Session {
	session := &domain.Session{
		ID:             uuid.New().String(),
		UserID:         userID,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(ttl),
	}
	if device.UserAgent != "" {
		ua := device.UserAgent
		session.UserAgent = &ua
	}
	if device.IP != "" {
		ip := device.IP
		session.IPAddress = &ip
	}
	return session
}

// issueSession mints an access+refresh pair, persists the session holding
// the refresh token's hash, and builds the response
func (s *authService) issueSession(ctx context.Context, user *domain.User, device dto.DeviceInfo, now time.Time) (*AuthResponseWithRefreshToken, error) {
	session := newSession(user.ID, device, now, s.jwtManager.GetRefreshTokenExpiry())

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Role, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	session.RefreshTokenHash = hashToken(refreshToken)

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.metrics.recordSessionIssued(ctx)
	return s.buildAuthResponse(user, accessToken, refreshToken), nil
}

func (s *authService) buildAuthResponse(user *domain.User, accessToken, refreshToken string) *AuthResponseWithRefreshToken {
	return &AuthResponseWithRefreshToken{
		AuthResponse: &dto.AuthResponse{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresIn:   s.jwtManager.GetAccessTokenExpiry(),
			User: dto.UserInfo{
				ID:       user.ID,
				Email:    user.Email,
				FullName: user.FullName,
				Role:     user.Role.String(),
			},
		},
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtManager.GetRefreshTokenExpiry().Seconds()),
	}
}
