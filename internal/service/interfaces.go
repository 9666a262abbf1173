package service

import (
	"context"

	"github.com/xuniversity/auth-service/internal/domain"
	"github.com/xuniversity/auth-service/internal/dto"
)

// AuthService defines methods for authentication operations
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest, device dto.DeviceInfo) (*AuthResponseWithRefreshToken, error)
	Login(ctx context.Context, req *dto.LoginRequest, device dto.DeviceInfo) (*AuthResponseWithRefreshToken, error)
	RefreshToken(ctx context.Context, refreshToken string, device dto.DeviceInfo) (*AuthResponseWithRefreshToken, error)
	Logout(ctx context.Context, claims *domain.TokenClaims, scope, sessionID string) error
	ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error)
	GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error)
	ListSessions(ctx context.Context, claims *domain.TokenClaims) ([]dto.SessionResponse, error)
	RevokeSession(ctx context.Context, claims *domain.TokenClaims, sessionID string) error
	ListUsers(ctx context.Context, page, perPage int) (*dto.UserListResponse, error)
}
