package domain

import (
	"errors"
	"fmt"
	"time"
)

// Authentication and session errors. Handlers translate these into HTTP
// statuses; everything not listed here is treated as internal.
var (
	// ErrInvalidCredentials is returned on login when the email is unknown
	// or the password does not match. The two cases are indistinguishable
	// to callers on purpose.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountLocked is returned when the account is temporarily locked
	// after repeated failed logins. Match with errors.Is; the concrete
	// value is an *AccountLockedError carrying the remaining wait.
	ErrAccountLocked = errors.New("account temporarily locked")

	// ErrAccountDisabled is returned when credentials are valid but the
	// account has been deactivated
	ErrAccountDisabled = errors.New("account is disabled")

	// ErrEmailTaken is returned on registration when the email is already used
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidEmail is returned when an email address fails shape validation
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidRole is returned when a role value is outside the closed set
	ErrInvalidRole = errors.New("invalid role")

	// ErrWeakPassword is returned when a password fails the strength policy
	ErrWeakPassword = errors.New("password does not meet requirements")

	// ErrTokenInvalid is returned for malformed, tampered or unverifiable tokens
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrTokenExpired is returned for well-formed tokens past their expiry
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenKindMismatch is returned when a token of one kind is presented
	// where the other kind is required
	ErrTokenKindMismatch = errors.New("wrong token kind")

	// ErrSessionInvalid is returned when a refresh token maps to no usable
	// session: unknown, expired, revoked, or lost a rotation race
	ErrSessionInvalid = errors.New("session is not active")

	// ErrStoreUnavailable is returned when the backing store cannot be
	// reached. It is the only error clients may meaningfully retry.
	ErrStoreUnavailable = errors.New("storage unavailable")
)

// AccountLockedError carries how long the caller should wait before the
// next attempt. errors.Is(err, ErrAccountLocked) matches it.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account temporarily locked, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}
