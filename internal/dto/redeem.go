package dto

import (
	"github.com/shopspring/decimal"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

// CreateRedeemRequest registers a withdrawal. Submission is subject to the
// player's rolling redeem limits.
type CreateRedeemRequest struct {
	PlayerRef
	TotalAmount    decimal.Decimal       `json:"total_amount" validate:"gt=0"`
	GamePlatform   string                `json:"game_platform" validate:"required,max=64"`
	GameUsername   string                `json:"game_username" validate:"required,max=64"`
	PaymentMethods models.PaymentMethods `json:"payment_methods" validate:"required,min=1,max=5,dive"`
	Notes          string                `json:"notes" validate:"omitempty,max=1000"`
}

// RedeemView is the list/detail shape of a redeem.
type RedeemView struct {
	*models.Redeem
	Remaining decimal.Decimal `json:"remaining"`
	Elapsed   string          `json:"elapsed"`
}
