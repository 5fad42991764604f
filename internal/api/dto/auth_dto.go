package dto

import "time"

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserBrief `json:"user"`
}

// UserBrief identifies the authenticated user.
type UserBrief struct {
	ID       int64    `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// CreateUserRequest payload for admin-created accounts.
type CreateUserRequest struct {
	FirstNames   string  `json:"first_names"`
	LastName     string  `json:"last_name"`
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	DepartmentID *int64  `json:"department_id"`
	RoleIDs      []int64 `json:"role_ids"`
}
