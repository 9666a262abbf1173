package dto

// AuthResponse represents an authentication response
type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	User         UserInfo `json:"user"`
}

// UserInfo represents user information in auth responses
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// UserResponse represents a full user profile
type UserResponse struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	FullName       string  `json:"full_name"`
	Role           string  `json:"role"`
	IsActive       bool    `json:"is_active"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	LastLoginAt    *string `json:"last_login_at"`
	ActiveSessions int     `json:"active_sessions"`
}

// UserListResponse is a page of users for the admin listing
type UserListResponse struct {
	Users   []UserSummary `json:"users"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

// UserSummary is the per-row shape of the admin listing
type UserSummary struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	FullName    string  `json:"full_name"`
	Role        string  `json:"role"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
	LastLoginAt *string `json:"last_login_at"`
}

// SessionResponse describes one session of the caller. The token hash is
// never included.
type SessionResponse struct {
	ID             string  `json:"id"`
	UserAgent      *string `json:"user_agent"`
	IPAddress      *string `json:"ip_address"`
	CreatedAt      string  `json:"created_at"`
	LastAccessedAt string  `json:"last_accessed_at"`
	ExpiresAt      string  `json:"expires_at"`
	IsActive       bool    `json:"is_active"`
	Current        bool    `json:"current"`
}

// ValidateResponse echoes the verified claims of an access token
type ValidateResponse struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	ExpiresAt string `json:"expires_at"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
