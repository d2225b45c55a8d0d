package users

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a Vogon account with its public profile.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Username     string    `bun:"username,notnull" json:"username"`
	Email        string    `bun:"email,notnull" json:"email"`
	FullName     string    `bun:"full_name,notnull" json:"fullName"`
	Affiliation  string    `bun:"affiliation,notnull" json:"affiliation"`
	Location     string    `bun:"location,notnull" json:"location"`
	Link         string    `bun:"link,notnull" json:"link"`
	ImageFile    string    `bun:"imagefile,notnull" json:"imagefile"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	IsAdmin      bool      `bun:"is_admin,notnull" json:"isAdmin"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:now()" json:"updatedAt"`
}

// DisplayName prefers the full name over the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Email    string `json:"email" validate:"omitempty,email"`
	FullName string `json:"fullName" validate:"max=255"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the session token for API clients.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

// UpdateProfileRequest is the body of PATCH /api/users/me; nil fields are unchanged.
type UpdateProfileRequest struct {
	Email       *string `json:"email" validate:"omitempty,email"`
	FullName    *string `json:"fullName" validate:"omitempty,max=255"`
	Affiliation *string `json:"affiliation" validate:"omitempty,max=255"`
	Location    *string `json:"location" validate:"omitempty,max=255"`
	Link        *string `json:"link" validate:"omitempty,url"`
}

// ListResponse is returned by GET /api/users
type ListResponse struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
}
