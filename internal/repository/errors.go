package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/xuniversity/auth-service/internal/domain"
)

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create a user with an existing email
	ErrDuplicateEmail = errors.New("user with this email already exists")
)

// wrapErr wraps a database error, folding timeouts, cancellations and
// connection failures into domain.ErrStoreUnavailable so callers can tell
// retriable outages apart from terminal failures.
func wrapErr(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.As(err, &netErr):
		return fmt.Errorf("%s: %v: %w", msg, err, domain.ErrStoreUnavailable)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
