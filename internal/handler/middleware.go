package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xuniversity/auth-service/internal/domain"
	"github.com/xuniversity/auth-service/internal/dto"
	"github.com/xuniversity/auth-service/internal/service"
)

const claimsContextKey = "claims"

// AuthMiddleware validates the bearer access token and adds its claims to
// the request context
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Authorization header is required",
			})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role.String())
		c.Set(claimsContextKey, claims)

		c.Next()
	}
}

// RequireRole allows the request through only when the authenticated
// caller's role grants at least min. Must run after AuthMiddleware.
func RequireRole(min domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "authentication required",
			})
			c.Abort()
			return
		}

		if !claims.Role.Valid() || !claims.Role.AtLeast(min) {
			c.JSON(http.StatusForbidden, dto.ErrorResponse{
				Error:   "Forbidden",
				Message: "insufficient role",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// claimsFromContext returns the claims AuthMiddleware stored, if any
func claimsFromContext(c *gin.Context) (*domain.TokenClaims, bool) {
	value, exists := c.Get(claimsContextKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*domain.TokenClaims)
	return claims, ok
}
