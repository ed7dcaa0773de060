package dto

import "github.com/therafiali/internal-app-sub000/internal/models"

// CreateUserRequest provisions an operator.
type CreateUserRequest struct {
	Email      string            `json:"email" validate:"required,email"`
	FullName   string            `json:"full_name" validate:"required,max=128"`
	Department models.Department `json:"department" validate:"required,oneof=Support Operations Verification Finance Admin Audit"`
	Role       models.UserRole   `json:"role" validate:"required,oneof=agent manager admin executive shift_incharge"`
	TeamAccess []string          `json:"team_access" validate:"omitempty,dive,max=32"`
	AllTeams   bool              `json:"all_teams"`
	Password   string            `json:"password" validate:"required,min=8"`
	Active     *bool             `json:"active"`
}
