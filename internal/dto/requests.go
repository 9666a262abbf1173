package dto

// RegisterRequest represents a registration request. Role is optional and
// defaults to student.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required,min=1,max=200"`
	Role     string `json:"role" binding:"omitempty,oneof=student instructor admin"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries the refresh token when it is not supplied via cookie
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout scopes
const (
	LogoutScopeOne = "one"
	LogoutScopeAll = "all"
)

// LogoutRequest selects what to revoke. Scope defaults to "one", which
// revokes the session the presented access token belongs to; SessionID may
// name another session owned by the caller.
type LogoutRequest struct {
	Scope     string `json:"scope" binding:"omitempty,oneof=one all"`
	SessionID string `json:"session_id" binding:"omitempty,uuid"`
}

// DeviceInfo captures where a request came from, for session records
type DeviceInfo struct {
	UserAgent string
	IP        string
}
