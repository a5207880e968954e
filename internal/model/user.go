package model

import "time"

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleGuest  = "guest"
)

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	RecoveryEmail  string    `json:"recovery_email,omitempty"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"role"`
	IsBanned       bool      `json:"is_banned"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PublicUser is the profile shape exposed to other members.
type PublicUser struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Role           string    `json:"role"`
	IsBanned       bool      `json:"is_banned"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Username:       u.Username,
		Role:           u.Role,
		IsBanned:       u.IsBanned,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

// SessionClaims is the decoded identity carried by a session token.
type SessionClaims struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	TokenID   string    `json:"jti"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

type SessionToken struct {
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      PublicUser `json:"user"`
}

// Actor identifies who performs an operation and from where.
type Actor struct {
	UserID    string
	Username  string
	Role      string
	SessionID string
	IP        string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanModify reports whether the actor owns the resource or is an admin.
func (a Actor) CanModify(ownerID string) bool {
	return a.IsAdmin() || (a.UserID != "" && a.UserID == ownerID)
}
