package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xuniversity/auth-service/internal/domain"
	"github.com/xuniversity/auth-service/internal/dto"
	"github.com/xuniversity/auth-service/internal/repository"
)

// respondError maps service errors onto HTTP statuses. Internal details
// only surface for expected 4xx kinds; everything unrecognized becomes an
// opaque 500.
func respondError(c *gin.Context, err error) {
	var lockedErr *domain.AccountLockedError
	if errors.As(err, &lockedErr) {
		retryAfter := int(math.Ceil(lockedErr.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusLocked, dto.ErrorResponse{
			Error:   "Locked",
			Message: lockedErr.Error(),
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenKindMismatch),
		errors.Is(err, domain.ErrSessionInvalid):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrAccountLocked):
		c.JSON(http.StatusLocked, dto.ErrorResponse{
			Error:   "Locked",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{
			Error:   "Forbidden",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrEmailTaken):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "Conflict",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrWeakPassword),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not found",
			Message: "resource not found",
		})
	case errors.Is(err, domain.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "Service unavailable",
			Message: "storage unavailable, retry later",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "something went wrong",
		})
	}
}
