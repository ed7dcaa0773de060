package dto

import "github.com/therafiali/internal-app-sub000/internal/models"

// CreatePasswordResetRequest asks for a game account password reset.
type CreatePasswordResetRequest struct {
	PlayerRef
	GamePlatform      string `json:"game_platform" validate:"required,max=64"`
	GameUsername      string `json:"game_username" validate:"required,max=64"`
	SuggestedUsername string `json:"suggested_username" validate:"omitempty,max=64"`
	Notes             string `json:"notes" validate:"omitempty,max=1000"`
}

// ProcessPasswordResetRequest completes a reset with the new password.
type ProcessPasswordResetRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=4,max=64"`
	Notes       string `json:"notes" validate:"omitempty,max=1000"`
}

// PasswordResetView is the list/detail shape of a password reset.
type PasswordResetView struct {
	*models.PasswordReset
	Elapsed string `json:"elapsed"`
}
