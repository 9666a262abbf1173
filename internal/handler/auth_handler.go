package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xuniversity/auth-service/internal/dto"
	"github.com/xuniversity/auth-service/internal/service"
)

const refreshCookieName = "refresh_token"
const refreshCookiePath = "/api/v1/auth/refresh"

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func deviceInfo(c *gin.Context) dto.DeviceInfo {
	return dto.DeviceInfo{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}

func setRefreshCookie(c *gin.Context, token string, maxAge int) {
	c.SetCookie(refreshCookieName, token, maxAge, refreshCookiePath, "", true, true)
}

// Register handles user registration
// @Summary Register a new user
// @Description Register a new user in the system
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration request"
// @Success 201 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	response, err := h.authService.Register(c.Request.Context(), &req, deviceInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	setRefreshCookie(c, response.RefreshToken, response.ExpiresIn)

	body := *response.AuthResponse
	body.RefreshToken = response.RefreshToken
	c.JSON(http.StatusCreated, body)
}

// Login handles user login
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 423 {object} dto.ErrorResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	response, err := h.authService.Login(c.Request.Context(), &req, deviceInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	setRefreshCookie(c, response.RefreshToken, response.ExpiresIn)

	body := *response.AuthResponse
	body.RefreshToken = response.RefreshToken
	c.JSON(http.StatusOK, body)
}

// Refresh handles token refresh. The refresh token is read from the JSON
// body first, then from the cookie, so both browser and API clients work.
// @Summary Refresh tokens
// @Description Exchange a refresh token for a new access token
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Validation failed",
				Message: err.Error(),
			})
			return
		}
	}

	refreshToken := req.RefreshToken
	if refreshToken == "" {
		refreshToken, _ = c.Cookie(refreshCookieName)
	}
	if refreshToken == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "refresh token missing",
		})
		return
	}

	response, err := h.authService.RefreshToken(c.Request.Context(), refreshToken, deviceInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	setRefreshCookie(c, response.RefreshToken, response.ExpiresIn)

	body := *response.AuthResponse
	body.RefreshToken = response.RefreshToken
	c.JSON(http.StatusOK, body)
}

// Logout handles user logout
// @Summary Logout user
// @Description Revoke the current session, a named session, or all sessions
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "authentication required",
		})
		return
	}

	var req dto.LogoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Validation failed",
				Message: err.Error(),
			})
			return
		}
	}

	if err := h.authService.Logout(c.Request.Context(), claims, req.Scope, req.SessionID); err != nil {
		respondError(c, err)
		return
	}

	setRefreshCookie(c, "", -1)

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Logged out successfully",
	})
}

// Validate echoes the verified claims of the presented access token. It is
// stateless; downstream services call it to check tokens they received.
// @Summary Validate access token
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.ValidateResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/validate [get]
func (h *AuthHandler) Validate(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "authentication required",
		})
		return
	}

	c.JSON(http.StatusOK, dto.ValidateResponse{
		UserID:    claims.UserID,
		Role:      claims.Role.String(),
		SessionID: claims.SessionID,
		ExpiresAt: claims.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// GetMe handles getting current user profile
// @Summary Get current user profile
// @Description Get the authenticated user's profile and active session count
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "authentication required",
		})
		return
	}

	user, err := h.authService.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListSessions lists the caller's sessions
// @Summary List own sessions
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.SessionResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/sessions [get]
func (h *AuthHandler) ListSessions(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "authentication required",
		})
		return
	}

	sessions, err := h.authService.ListSessions(c.Request.Context(), claims)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// RevokeSession revokes one session owned by the caller
// @Summary Revoke a session
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/sessions/{id} [delete]
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "authentication required",
		})
		return
	}

	sessionID := c.Param("id")
	if err := h.authService.RevokeSession(c.Request.Context(), claims, sessionID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Session revoked",
	})
}

// ListUsers returns a page of users; admin only
// @Summary List users
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} dto.UserListResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /admin/users [get]
func (h *AuthHandler) ListUsers(c *gin.Context) {
	page := intQuery(c, "page", 1)
	perPage := intQuery(c, "per_page", 20)

	users, err := h.authService.ListUsers(c.Request.Context(), page, perPage)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func intQuery(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
