package model

import "time"

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleMember UserRole = "member"
	UserRoleUser   UserRole = "user"
)

// Rank orders roles so that a higher rank satisfies every lower requirement.
func (r UserRole) Rank() int {
	switch r {
	case UserRoleAdmin:
		return 3
	case UserRoleMember:
		return 2
	case UserRoleUser:
		return 1
	default:
		return 0
	}
}

func (r UserRole) Valid() bool {
	return r.Rank() > 0
}

type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateUserRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type LoginResponse struct {
	User      *User  `json:"user"`
	CSRFToken string `json:"csrfToken"`
	ExpiresAt int64  `json:"expiresAt"`
}

// TokenClaims is the identity carried by a verified session token.
type TokenClaims struct {
	UserID   string   `json:"userId"`
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role"`
	CSRF     string   `json:"-"`
	// FromCookie is set when the token was read from the session cookie
	// rather than the Authorization header.
	FromCookie bool `json:"-"`
}
