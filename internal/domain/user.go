package domain

import "time"

// User represents an account on the platform
type User struct {
	ID                  string     `json:"id" db:"id"`
	Email               string     `json:"email" db:"email"`
	PasswordHash        string     `json:"-" db:"password_hash"`
	FullName            string     `json:"full_name" db:"full_name"`
	Role                Role       `json:"role" db:"role"`
	IsActive            bool       `json:"is_active" db:"is_active"`
	FailedLoginAttempts int        `json:"-" db:"failed_login_attempts"`
	LockedUntil         *time.Time `json:"-" db:"locked_until"`
	PasswordChangedAt   time.Time  `json:"-" db:"password_changed_at"`
	LastLoginAt         *time.Time `json:"last_login_at" db:"last_login_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}
