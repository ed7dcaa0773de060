package models

// PasswordReset asks operations to reset a player's game account password.
type PasswordReset struct {
	RequestBase
	Status            ReviewStatus `db:"status" json:"status"`
	GamePlatform      string       `db:"game_platform" json:"game_platform"`
	GameUsername      string       `db:"game_username" json:"game_username"`
	SuggestedUsername *string      `db:"suggested_username" json:"suggested_username,omitempty"`
	NewPassword       *string      `db:"new_password" json:"-"`
}

// Type implements Request.
func (p *PasswordReset) Type() RequestType { return RequestTypeResetPassword }

// CurrentStatus implements Request.
func (p *PasswordReset) CurrentStatus() string { return string(p.Status) }
