package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated operator in responses.
type UserInfo struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name"`
	Department Department `json:"department"`
	Role       UserRole   `json:"role"`
	TeamAccess []string   `json:"team_access"`
	AllTeams   bool       `json:"all_teams"`
}

// JWTClaims is the session carried by access tokens. Services receive it as the actor.
type JWTClaims struct {
	UserID     string     `json:"user_id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name"`
	Department Department `json:"department"`
	Role       UserRole   `json:"role"`
	TeamAccess []string   `json:"team_access"`
	AllTeams   bool       `json:"all_teams"`
	jwt.RegisteredClaims
}

// Info converts the claims into the public profile.
func (c *JWTClaims) Info() UserInfo {
	return UserInfo{
		ID:         c.UserID,
		Email:      c.Email,
		FullName:   c.FullName,
		Department: c.Department,
		Role:       c.Role,
		TeamAccess: c.TeamAccess,
		AllTeams:   c.AllTeams,
	}
}
